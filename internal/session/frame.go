// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/ztachat-tui/internal/model"
)

// FrameTypeMessage is the only frame type carried on the channel today.
const FrameTypeMessage = "message"

// Frame is one JSON text frame on the chat channel.
type Frame struct {
	Type           string            `json:"type"`
	ID             string            `json:"id,omitempty"`
	ConversationID model.ID          `json:"conversation_id,omitempty"`
	SenderID       model.ID          `json:"sender_id"`
	Content        string            `json:"content"`
	ContentType    model.ContentType `json:"content_type,omitempty"`
	SentAt         time.Time         `json:"sent_at"`
}

// NewTextFrame builds an outbound text frame for target.
func NewTextFrame(target model.ConnectionInfo, text string, now time.Time) Frame {
	return Frame{
		Type:           FrameTypeMessage,
		ID:             uuid.NewString(),
		ConversationID: model.ID(target.ConversationID),
		SenderID:       model.ID(target.ParticipantID),
		Content:        text,
		ContentType:    model.ContentText,
		SentAt:         now.UTC(),
	}
}

// Encode returns the JSON wire form.
func (f Frame) Encode() ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return data, nil
}

// DecodeFrame parses an inbound frame. Legacy raw-text frames and frames
// without a sender are rejected with ErrUnattributedFrame.
func DecodeFrame(data []byte) (Frame, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Frame{}, fmt.Errorf("%w: raw text frame", ErrUnattributedFrame)
	}

	var f Frame
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrUnattributedFrame, err)
	}

	if f.Type == "" {
		f.Type = FrameTypeMessage
	}
	if f.Type != FrameTypeMessage {
		return Frame{}, fmt.Errorf("%w: %q", ErrUnsupportedFrame, f.Type)
	}
	if f.SenderID.IsZero() {
		return Frame{}, ErrUnattributedFrame
	}
	if f.ContentType == "" {
		f.ContentType = model.ContentText
	}
	return f, nil
}

// Message converts the frame into a display message.
func (f Frame) Message() model.DisplayMessage {
	return model.DisplayMessage{
		ID:             f.ID,
		ConversationID: f.ConversationID.String(),
		SenderID:       f.SenderID.String(),
		Content:        f.Content,
		ContentType:    f.ContentType,
		Timestamp:      f.SentAt,
	}
}
