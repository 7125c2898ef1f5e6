// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrStaleResult is returned by a load whose target changed, or which was
	// overtaken by a newer load, while it was in flight. Its result is discarded.
	ErrStaleResult = errors.New("history result is stale")

	// ErrNoConversation is returned when no conversation id is given.
	ErrNoConversation = errors.New("conversation id is required")
)

// HistoryFetchError reports a failed history load. The previous sequence is
// left as it was.
type HistoryFetchError struct {
	ConversationID string
	Err            error
}

func (e *HistoryFetchError) Error() string {
	return fmt.Sprintf("load history for conversation %q: %v", e.ConversationID, e.Err)
}

func (e *HistoryFetchError) Unwrap() error {
	return e.Err
}
