// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ztachat-tui/internal/model"
	"github.com/jeranaias/ztachat-tui/internal/reconcile"
	"github.com/jeranaias/ztachat-tui/internal/session"
	"github.com/jeranaias/ztachat-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// ConnectResultMsg reports how a Connect call ended.
type ConnectResultMsg struct {
	Target model.ConnectionInfo
	Err    error
}

// HistoryResultMsg reports how a history load ended.
type HistoryResultMsg struct {
	ConversationID string
	Count          int
	Err            error
}

// SettingsMsg applies changed display settings to a running view.
type SettingsMsg struct {
	Theme          *styles.Theme
	ShowTimestamps bool
}

// SnapshotMsg carries the reconciler's latest view.
type SnapshotMsg struct {
	reconcile.Snapshot
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// ConnectCmd dials target on mgr.
func ConnectCmd(mgr *session.Manager, target model.ConnectionInfo, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := mgr.Connect(ctx, target.ConversationID, target.ParticipantID)
		return ConnectResultMsg{Target: target, Err: err}
	}
}

// LoadHistoryCmd replaces the reconciler's sequence with fetched history.
func LoadHistoryCmd(rec *reconcile.Reconciler, conversationID string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		msgs, err := rec.LoadHistory(ctx, conversationID)
		return HistoryResultMsg{ConversationID: conversationID, Count: len(msgs), Err: err}
	}
}

// WaitForSnapshot blocks for the next snapshot. It yields nil once the
// channel is closed.
func WaitForSnapshot(snaps <-chan reconcile.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-snaps
		if !ok {
			return nil
		}
		return SnapshotMsg{Snapshot: snap}
	}
}

// listenSnapshots forwards reconciler snapshots, keeping only the newest
// one when the view falls behind.
func listenSnapshots(rec *reconcile.Reconciler) (<-chan reconcile.Snapshot, func()) {
	out := make(chan reconcile.Snapshot, 1)
	done := make(chan struct{})

	unsub := rec.Subscribe(func(s reconcile.Snapshot) {
		for {
			select {
			case <-done:
				return
			case out <- s:
				return
			default:
			}
			select {
			case old := <-out:
				if old.Version > s.Version {
					s = old
				}
			default:
			}
		}
	})

	var once sync.Once
	return out, func() {
		once.Do(func() {
			unsub()
			close(done)
		})
	}
}
