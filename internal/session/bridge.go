// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// EventMsg wraps an Event for delivery through a bubbletea program.
type EventMsg struct {
	Event
}

// Listen subscribes to m and returns a channel that yields every event in
// order. The channel is unbounded so subscribers never stall the manager.
// Call stop to unsubscribe; undelivered events are dropped and the channel
// is closed.
func Listen(m *Manager) (events <-chan Event, stop func()) {
	out := make(chan Event)

	var (
		mu      sync.Mutex
		pending []Event
		closed  bool
	)
	wake := make(chan struct{}, 1)
	quit := make(chan struct{})

	unsub := m.Subscribe(func(ev Event) {
		mu.Lock()
		if !closed {
			pending = append(pending, ev)
		}
		mu.Unlock()
		select {
		case wake <- struct{}{}:
		default:
		}
	})

	go func() {
		defer close(out)
		for {
			mu.Lock()
			batch := pending
			pending = nil
			done := closed
			mu.Unlock()

			if done {
				return
			}
			for _, ev := range batch {
				select {
				case out <- ev:
				case <-quit:
					return
				}
			}
			if len(batch) == 0 {
				select {
				case <-wake:
				case <-quit:
					return
				}
			}
		}
	}()

	var once sync.Once
	stop = func() {
		once.Do(func() {
			unsub()
			mu.Lock()
			closed = true
			pending = nil
			mu.Unlock()
			close(quit)
		})
	}
	return out, stop
}

// WaitForEvent returns a command that blocks for the next event. Re-issue it
// after handling each EventMsg. It yields nil once the channel is closed.
func WaitForEvent(events <-chan Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return EventMsg{Event: ev}
	}
}
