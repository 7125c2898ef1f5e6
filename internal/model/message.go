// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// ID is an opaque identifier. The backend uses numeric database keys, the
// client treats them as strings. Both JSON numbers and strings decode.
type ID string

// UnmarshalJSON accepts 42, "42" and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(b), err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the identifier text.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the identifier is empty or the numeric zero the
// backend uses for "unset".
func (id ID) IsZero() bool {
	return id == "" || id == "0"
}

// Uint parses a numeric identifier. Non-numeric identifiers return an error.
func (id ID) Uint() (uint64, error) {
	return strconv.ParseUint(string(id), 10, 64)
}

// =============================================================================
// CONTENT TYPE
// =============================================================================

// ContentType is the kind of a message content part.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentFile  ContentType = "file"
	ContentVideo ContentType = "video"
	ContentAudio ContentType = "audio"
	ContentLink  ContentType = "link"
)

// Valid reports whether t is one of the known content types.
func (t ContentType) Valid() bool {
	switch t {
	case ContentText, ContentImage, ContentFile, ContentVideo, ContentAudio, ContentLink:
		return true
	}
	return false
}

// Tag returns the bracketed label shown before non-text content, or "" for text.
func (t ContentType) Tag() string {
	if t == "" || t == ContentText {
		return ""
	}
	return "[" + string(t) + "]"
}

// =============================================================================
// HISTORY ENVELOPES
// =============================================================================

// RawContent is one content part of a persisted message.
type RawContent struct {
	ID          ID          `json:"ID"`
	ContentType ContentType `json:"ContentType"`
	Content     string      `json:"Content"`
}

// RawMessage is a persisted message envelope as returned by the history
// endpoint. Field names follow the backend's JSON.
type RawMessage struct {
	ID             ID           `json:"ID"`
	CreatedAt      time.Time    `json:"CreatedAt"`
	ConversationID ID           `json:"ConversationID"`
	SenderID       ID           `json:"SenderID"`
	ReceiverID     ID           `json:"ReceiverID"`
	IsRead         bool         `json:"IsRead"`
	Content        []RawContent `json:"Content"`
}

// =============================================================================
// DISPLAY MESSAGE
// =============================================================================

// DisplayMessage is a single renderable chat line.
type DisplayMessage struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id,omitempty"`
	SenderID       string      `json:"sender_id"`
	Content        string      `json:"content"`
	ContentType    ContentType `json:"content_type,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
}

// Flatten turns envelopes into display messages, one per content part.
// Every part inherits the envelope's sender and creation time. The result is
// sorted ascending by timestamp; parts of one envelope keep their order.
func Flatten(envelopes []RawMessage) []DisplayMessage {
	total := 0
	for _, env := range envelopes {
		total += len(env.Content)
	}

	out := make([]DisplayMessage, 0, total)
	for _, env := range envelopes {
		for i, part := range env.Content {
			ct := part.ContentType
			if ct == "" {
				ct = ContentText
			}
			out = append(out, DisplayMessage{
				ID:             partID(env.ID, part.ID, i),
				ConversationID: env.ConversationID.String(),
				SenderID:       env.SenderID.String(),
				Content:        part.Content,
				ContentType:    ct,
				Timestamp:      env.CreatedAt,
			})
		}
	}

	SortByTime(out)
	return out
}

func partID(envelope, part ID, index int) string {
	if !part.IsZero() {
		return envelope.String() + "." + part.String()
	}
	return envelope.String() + "#" + strconv.Itoa(index)
}

// SortByTime sorts messages ascending by timestamp, keeping the relative
// order of equal timestamps.
func SortByTime(msgs []DisplayMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}

// IsOrdered reports whether msgs are non-decreasing by timestamp.
func IsOrdered(msgs []DisplayMessage) bool {
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp.Before(msgs[i-1].Timestamp) {
			return false
		}
	}
	return true
}
