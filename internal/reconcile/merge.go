// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/ztachat-tui/internal/model"
)

// DefaultDedupWindow is how close two identical messages from one sender
// must be to count as the same message.
const DefaultDedupWindow = time.Second

// livePrefix marks IDs of entries that have no server copy yet.
const livePrefix = "live-"

// Merge returns existing with a live message appended, unless it duplicates
// an entry already present. The new entry is stamped with now and inserted
// after every entry whose timestamp is not later than now. existing is never
// modified. The second result reports whether the message was added.
func Merge(existing []model.DisplayMessage, text, senderID string, now time.Time, window time.Duration) ([]model.DisplayMessage, bool) {
	msg, ok := liveMessage(text, model.ContentText, senderID, now)
	if !ok {
		return existing, false
	}
	return mergeMessage(existing, msg, window)
}

// liveMessage builds the entry for a live arrival. Blank content and a
// missing sender are refused; an unknown content type is treated as text.
func liveMessage(content string, ct model.ContentType, senderID string, now time.Time) (model.DisplayMessage, bool) {
	if strings.TrimSpace(content) == "" || senderID == "" {
		return model.DisplayMessage{}, false
	}
	if !ct.Valid() {
		ct = model.ContentText
	}
	return model.DisplayMessage{
		ID:          livePrefix + uuid.NewString(),
		SenderID:    senderID,
		Content:     content,
		ContentType: ct,
		Timestamp:   now,
	}, true
}

// mergeMessage is Merge for a prepared message.
func mergeMessage(existing []model.DisplayMessage, msg model.DisplayMessage, window time.Duration) ([]model.DisplayMessage, bool) {
	if IsDuplicate(existing, msg, window) {
		return existing, false
	}

	i := sort.Search(len(existing), func(i int) bool {
		return existing[i].Timestamp.After(msg.Timestamp)
	})

	out := make([]model.DisplayMessage, 0, len(existing)+1)
	out = append(out, existing[:i]...)
	out = append(out, msg)
	out = append(out, existing[i:]...)
	return out, true
}

// adoptLiveIDs gives each fetched entry that duplicates a live entry of prev
// the live entry's ID, so a message keeps one ID once the server copy
// replaces it.
func adoptLiveIDs(fetched, prev []model.DisplayMessage, window time.Duration) {
	for _, p := range prev {
		if !strings.HasPrefix(p.ID, livePrefix) {
			continue
		}
		if i := duplicateIndex(fetched, p, window); i >= 0 && !strings.HasPrefix(fetched[i].ID, livePrefix) {
			fetched[i].ID = p.ID
		}
	}
}

// IsDuplicate reports whether any entry has the same sender and content as
// msg with a timestamp strictly less than window away.
func IsDuplicate(existing []model.DisplayMessage, msg model.DisplayMessage, window time.Duration) bool {
	return duplicateIndex(existing, msg, window) >= 0
}

// duplicateIndex returns the index of the first entry msg duplicates, or -1.
func duplicateIndex(existing []model.DisplayMessage, msg model.DisplayMessage, window time.Duration) int {
	content := normalize(msg.Content)
	for i, m := range existing {
		if m.SenderID != msg.SenderID {
			continue
		}
		if absDuration(m.Timestamp.Sub(msg.Timestamp)) >= window {
			continue
		}
		if normalize(m.Content) == content {
			return i
		}
	}
	return -1
}

// normalize maps canonically equivalent strings to the same bytes.
func normalize(s string) string {
	return norm.NFC.String(s)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
