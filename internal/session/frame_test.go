// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ztachat-tui/internal/model"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
		sender  model.ID
	}{
		{"numeric sender", `{"type":"message","sender_id":5,"content":"hi"}`, nil, "5"},
		{"string sender", `{"type":"message","sender_id":"u-5","content":"hi"}`, nil, "u-5"},
		{"type defaults to message", `{"sender_id":5,"content":"hi"}`, nil, "5"},
		{"raw text", `hello there`, ErrUnattributedFrame, ""},
		{"empty", ``, ErrUnattributedFrame, ""},
		{"missing sender", `{"type":"message","content":"hi"}`, ErrUnattributedFrame, ""},
		{"zero sender", `{"type":"message","sender_id":0,"content":"hi"}`, ErrUnattributedFrame, ""},
		{"broken json", `{"type":`, ErrUnattributedFrame, ""},
		{"unknown type", `{"type":"typing","sender_id":5}`, ErrUnsupportedFrame, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodeFrame([]byte(tt.in))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.sender, f.SenderID)
			require.Equal(t, FrameTypeMessage, f.Type)
			require.Equal(t, model.ContentText, f.ContentType)
		})
	}
}

func TestNewTextFrame_Encode(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	target := model.ConnectionInfo{ConversationID: "7", ParticipantID: "2"}

	f := NewTextFrame(target, "hello", now)
	require.NotEmpty(t, f.ID)

	data, err := f.Encode()
	require.NoError(t, err)

	back, err := DecodeFrame(data)
	require.NoError(t, err)
	require.Equal(t, f.ID, back.ID)
	require.Equal(t, model.ID("2"), back.SenderID)
	require.True(t, back.SentAt.Equal(now))

	msg := back.Message()
	require.Equal(t, "2", msg.SenderID)
	require.Equal(t, "7", msg.ConversationID)
	require.Equal(t, "hello", msg.Content)
}

func TestConnectionError(t *testing.T) {
	err := &ConnectionError{
		Op:     "dial",
		Target: model.ConnectionInfo{ConversationID: "7", ParticipantID: "2"},
		Err:    ErrSuperseded,
	}
	require.ErrorIs(t, err, ErrConnection)
	require.ErrorIs(t, err, ErrSuperseded)
	require.Contains(t, err.Error(), "conversation=7")
}
