// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"time"

	"github.com/jeranaias/ztachat-tui/internal/model"
)

// EventKind says what an Event carries.
type EventKind int

const (
	// EventState is a state transition.
	EventState EventKind = iota
	// EventFrame is an inbound, attributed frame.
	EventFrame
	// EventFrameRejected is an inbound frame that was dropped.
	EventFrameRejected
	// EventError is an error that did not change state, e.g. invalid arguments.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventState:
		return "state"
	case EventFrame:
		return "frame"
	case EventFrameRejected:
		return "frame_rejected"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers in the order it was produced.
type Event struct {
	Kind EventKind

	// State is the manager state after the event; Prev the state before a
	// transition (equal to State for non-transition events).
	State State
	Prev  State

	// Target is the channel the event belongs to. For a Closed event it is
	// the channel that closed, even though the manager's target is cleared.
	Target model.ConnectionInfo

	// Frame is set for EventFrame.
	Frame *Frame

	// Err is set for EventError, EventFrameRejected and failed transitions.
	Err error

	At time.Time
}

// Status is a point-in-time view of a Manager.
type Status struct {
	State     State
	Target    model.ConnectionInfo
	LastError error
}
