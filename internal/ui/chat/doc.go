// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the conversation view of the ztachat TUI.

The view is a Bubble Tea model bound to one conversation. It owns no
connection or message state of its own: the session.Manager holds the live
channel and the reconcile.Reconciler holds the ordered message sequence.
The view subscribes to both and renders what they report.

# Key Components

## Model (model.go)

  - Init dials the channel and loads history concurrently
  - Enter sends through the manager; the text joins the sequence only when
    the send was accepted
  - Inbound frames are merged into the reconciler, which drops echoes
  - Ctrl+R reconnects, Ctrl+L reloads history

## Rendering (view.go)

Messages are grouped by sender. The first message of a group carries the
sender's name and, when enabled, its time. Own messages are right-aligned.
Non-text content is prefixed with its type tag.

## Commands (messages.go)

ConnectCmd and LoadHistoryCmd run the blocking calls off the update loop.
Snapshots reach the view through a one-slot channel that always holds the
newest one.

# Usage

	m := chat.New(chat.Options{
		Manager:    session.NewManager(cfg, dialer, log),
		Reconciler: reconcile.New(client),
		Target:     model.ConnectionInfo{ConversationID: "7", ParticipantID: "1"},
		PeerName:   "bob",
	})
	defer m.Close()
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
*/
package chat
