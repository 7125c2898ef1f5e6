// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"

	"github.com/jeranaias/ztachat-tui/internal/model"
)

// Sentinel errors.
var (
	// ErrInvalidArguments is returned by Connect when an identifier is empty.
	ErrInvalidArguments = errors.New("conversation id and participant id are required")

	// ErrConnection matches every *ConnectionError via errors.Is.
	ErrConnection = errors.New("connection error")

	// ErrConnectInProgress is returned to callers dropped by the reentrancy guard.
	ErrConnectInProgress = errors.New("connection attempt already in progress")

	// ErrSuperseded is returned by a Connect whose attempt was cancelled by
	// Disconnect before the dial finished.
	ErrSuperseded = errors.New("connection attempt superseded")

	// ErrUnattributedFrame marks an inbound frame that does not name its sender.
	ErrUnattributedFrame = errors.New("frame has no sender identity")

	// ErrUnsupportedFrame marks a well-formed frame of an unknown type.
	ErrUnsupportedFrame = errors.New("unsupported frame type")
)

// ConnectionError describes a dial or channel failure.
type ConnectionError struct {
	Op     string // "dial", "read", "write"
	Target model.ConnectionInfo
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrConnection) hold for every ConnectionError.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}
