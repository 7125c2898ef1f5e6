// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ztachat-tui/internal/model"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func TestMerge_DedupWindow(t *testing.T) {
	tests := []struct {
		name      string
		first     string
		gap       time.Duration
		sender    string
		text      string
		wantAdded bool
	}{
		{"same instant", "hi", 0, "1", "hi", false},
		{"just inside window", "hi", 999 * time.Millisecond, "1", "hi", false},
		{"earlier inside window", "hi", -500 * time.Millisecond, "1", "hi", false},
		{"exactly one second", "hi", time.Second, "1", "hi", true},
		{"well outside window", "hi", 3 * time.Second, "1", "hi", true},
		{"other sender", "hi", 0, "2", "hi", true},
		{"other content", "hi", 0, "1", "hello", true},
		{"canonically equal content", "caf\u00e9", 0, "1", "cafe\u0301", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, ok := Merge(nil, tt.first, "1", t0, DefaultDedupWindow)
			require.True(t, ok)

			got, added := Merge(first, tt.text, tt.sender, t0.Add(tt.gap), DefaultDedupWindow)
			require.Equal(t, tt.wantAdded, added)
			if tt.wantAdded {
				require.Len(t, got, 2)
			} else {
				require.Len(t, got, 1)
			}
		})
	}
}

func TestMerge_Idempotent(t *testing.T) {
	once, ok := Merge(nil, "hello", "1", t0, DefaultDedupWindow)
	require.True(t, ok)

	twice, ok := Merge(once, "hello", "1", t0.Add(200*time.Millisecond), DefaultDedupWindow)
	require.False(t, ok)
	require.Equal(t, once, twice)
}

func TestMerge_ChecksEveryEntry(t *testing.T) {
	msgs, _ := Merge(nil, "hello", "1", t0, DefaultDedupWindow)
	msgs, _ = Merge(msgs, "other", "2", t0.Add(100*time.Millisecond), DefaultDedupWindow)
	msgs, _ = Merge(msgs, "more", "2", t0.Add(200*time.Millisecond), DefaultDedupWindow)

	// The duplicate is not the last entry but is still found.
	_, ok := Merge(msgs, "hello", "1", t0.Add(300*time.Millisecond), DefaultDedupWindow)
	require.False(t, ok)
}

func TestMerge_KeepsOrder(t *testing.T) {
	history := []model.DisplayMessage{
		{ID: "1", SenderID: "1", Content: "a", Timestamp: t0},
		{ID: "2", SenderID: "2", Content: "b", Timestamp: t0.Add(10 * time.Second)},
	}

	// A live message stamped before the last history entry (clock skew).
	got, ok := Merge(history, "c", "1", t0.Add(5*time.Second), DefaultDedupWindow)
	require.True(t, ok)
	require.True(t, model.IsOrdered(got))
	require.Equal(t, "c", got[1].Content)

	got, ok = Merge(got, "d", "2", t0.Add(10*time.Second), DefaultDedupWindow)
	require.True(t, ok)
	require.True(t, model.IsOrdered(got))
	require.Equal(t, "d", got[3].Content, "equal timestamps keep arrival order")
}

func TestMerge_DoesNotModifyInput(t *testing.T) {
	history := make([]model.DisplayMessage, 1, 8)
	history[0] = model.DisplayMessage{ID: "1", SenderID: "1", Content: "a", Timestamp: t0.Add(time.Minute)}

	got, ok := Merge(history, "b", "2", t0, DefaultDedupWindow)
	require.True(t, ok)
	require.Equal(t, "a", history[0].Content)
	require.Equal(t, "b", got[0].Content)
}

func TestMerge_RefusesBlankAndAnonymous(t *testing.T) {
	_, ok := Merge(nil, "   ", "1", t0, DefaultDedupWindow)
	require.False(t, ok)
	_, ok = Merge(nil, "hi", "", t0, DefaultDedupWindow)
	require.False(t, ok)
}
