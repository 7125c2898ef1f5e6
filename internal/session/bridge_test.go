// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListen_DeliversInOrder(t *testing.T) {
	m, _, _ := newTestManager(t)
	events, stop := Listen(m)
	defer stop()

	require.NoError(t, m.Connect(context.Background(), "7", "2"))
	m.Disconnect()

	var got []State
	timeout := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case ev := <-events:
			got = append(got, ev.State)
		case <-timeout:
			t.Fatalf("got %v, want three events", got)
		}
	}
	require.Equal(t, []State{Connecting, Open, Idle}, got)
}

func TestListen_StopClosesChannel(t *testing.T) {
	m, _, _ := newTestManager(t)
	events, stop := Listen(m)

	require.NoError(t, m.Connect(context.Background(), "7", "2"))
	stop()
	stop()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after stop")
		}
	}
}

func TestWaitForEvent(t *testing.T) {
	ch := make(chan Event, 1)
	ch <- Event{Kind: EventState, State: Open}

	msg := WaitForEvent(ch)()
	em, ok := msg.(EventMsg)
	require.True(t, ok, "got %T", msg)
	require.Equal(t, Open, em.State)

	close(ch)
	require.Nil(t, WaitForEvent(ch)())
}
