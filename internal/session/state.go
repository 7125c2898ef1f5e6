// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

// State is the connection state of a Manager.
type State int

const (
	// Idle means no channel and no target.
	Idle State = iota
	// Connecting means a dial is in flight. Further Connect calls are dropped.
	Connecting
	// Open means the channel is live and SendMessage transmits.
	Open
	// Closed means the channel ended; the target is cleared.
	Closed
	// Errored means the last attempt failed; LastError holds the cause.
	Errored
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// CanTransitionTo reports whether moving from s to next is legal.
//
//	Idle       -> Connecting
//	Connecting -> Open | Errored | Idle
//	Open       -> Closed | Idle
//	Closed     -> Connecting | Idle
//	Errored    -> Connecting | Idle
func (s State) CanTransitionTo(next State) bool {
	switch s {
	case Idle:
		return next == Connecting
	case Connecting:
		return next == Open || next == Errored || next == Idle
	case Open:
		return next == Closed || next == Idle
	case Closed, Errored:
		return next == Connecting || next == Idle
	}
	return false
}

// CanSend reports whether a message may be transmitted in this state.
func (s State) CanSend() bool {
	return s == Open
}
