// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the ztachat client:
// history envelopes as the backend returns them, the flattened display
// messages a view renders, and the user-service entities.
//
// # Key Types
//
//   - RawMessage, RawContent: persisted envelope with one or more content parts
//   - DisplayMessage: one renderable chat line
//   - GroupedMessage: DisplayMessage plus derived ownership and grouping flags
//   - ConnectionInfo: the (conversation, participant) pair a channel is bound to
//   - Profile, FriendRequest, Conversation: user-service entities
//   - ID: opaque identifier accepting numeric or string JSON
//
// # Usage
//
// Flatten a history response and derive grouping for rendering:
//
//	msgs := model.Flatten(envelopes)
//	for _, g := range model.Group(msgs, me) {
//	    render(g.Content, g.IsOwn, g.IsLastInGroup)
//	}
package model
