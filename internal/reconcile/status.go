// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

// Status is the history state of the current conversation.
type Status int

const (
	NoHistory Status = iota
	Loading
	Loaded
)

func (s Status) String() string {
	switch s {
	case NoHistory:
		return "no_history"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "unknown"
	}
}
