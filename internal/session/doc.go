// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session manages the single real-time channel to the chat service.
//
// A Manager owns at most one websocket, bound to a (conversation, participant)
// pair. Connecting to a new pair closes the old channel before the new one
// opens; connecting to the pair already open is a no-op. While an attempt is
// in flight further Connect calls are dropped.
//
// # Key Types
//
//   - Manager: connection state machine, send gate and subscriber list
//   - State: Idle, Connecting, Open, Closed, Errored
//   - Event: state transitions and inbound frames delivered to subscribers
//   - Frame: the JSON wire format, always carrying the sender's identity
//   - Dialer/Conn: transport seam; WSDialer is the gorilla/websocket one
//
// # Usage
//
//	mgr := session.NewManager(cfg, nil, logger.Named("session"))
//	unsub := mgr.Subscribe(func(ev session.Event) { ... })
//	defer unsub()
//
//	if err := mgr.Connect(ctx, convID, profileID); err != nil {
//	    return err
//	}
//	ok := mgr.SendMessage("hello")
//
// Inside a bubbletea program use Listen and WaitForEvent to receive events
// as tea.Msg values.
package session
