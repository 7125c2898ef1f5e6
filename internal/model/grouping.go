// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// GROUPING
// =============================================================================

// GroupedMessage is a DisplayMessage with the presentation flags derived from
// its neighbours. It is recomputed on every render and never stored.
type GroupedMessage struct {
	DisplayMessage

	// IsOwn is true when the local participant sent the message.
	IsOwn bool

	// IsFirstInGroup is true when the previous entry has a different sender.
	IsFirstInGroup bool

	// IsLastInGroup is true when the next entry has a different sender.
	IsLastInGroup bool
}

// Group derives ownership and grouping flags for an ordered sequence.
// localID identifies the local participant; an empty localID marks nothing
// as own.
func Group(msgs []DisplayMessage, localID string) []GroupedMessage {
	out := make([]GroupedMessage, len(msgs))
	for i, m := range msgs {
		out[i] = GroupedMessage{
			DisplayMessage: m,
			IsOwn:          localID != "" && m.SenderID == localID,
			IsFirstInGroup: i == 0 || msgs[i-1].SenderID != m.SenderID,
			IsLastInGroup:  i == len(msgs)-1 || msgs[i+1].SenderID != m.SenderID,
		}
	}
	return out
}
