// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ztachat-tui/internal/config"
	"github.com/jeranaias/ztachat-tui/internal/model"
)

// wsServer is a minimal chat endpoint: it records each connection's query,
// greets with one frame, and relays whatever the client sends back to it.
type wsServer struct {
	*httptest.Server

	mu      sync.Mutex
	queries []url.Values
	got     chan []byte

	live atomic.Int32
}

func newWSServer(t *testing.T, greeting string) *wsServer {
	t.Helper()
	s := &wsServer{got: make(chan []byte, 16)}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		s.live.Add(1)
		defer s.live.Add(-1)

		s.mu.Lock()
		s.queries = append(s.queries, r.URL.Query())
		s.mu.Unlock()

		if greeting != "" {
			conn.WriteMessage(websocket.TextMessage, []byte(greeting))
		}
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(data) == "bye" {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			s.got <- data
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *wsServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
}

func testDialer(url string) *WSDialer {
	cfg := config.Default()
	cfg.Server.ChatURL = url
	return NewWSDialer(cfg)
}

func TestChannelURL(t *testing.T) {
	got, err := ChannelURL("ws://localhost:8080/ws", model.ConnectionInfo{ConversationID: "7", ParticipantID: "2"})
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	require.Equal(t, "/ws", u.Path)
	require.Equal(t, "7", u.Query().Get("conversationId"))
	require.Equal(t, "2", u.Query().Get("profileId"))
	require.Equal(t, "2", u.Query().Get("participantId"))
}

func TestWSDialer_RoundTrip(t *testing.T) {
	srv := newWSServer(t, `{"type":"message","sender_id":9,"content":"welcome"}`)
	d := testDialer(srv.wsURL()).WithHeader("Authorization", "token")

	conn, err := d.Dial(context.Background(), model.ConnectionInfo{ConversationID: "7", ParticipantID: "2"})
	require.NoError(t, err)
	defer conn.Close()

	data, err := conn.ReadFrame()
	require.NoError(t, err)
	f, err := DecodeFrame(data)
	require.NoError(t, err)
	require.Equal(t, "welcome", f.Content)

	require.NoError(t, conn.WriteFrame([]byte(`{"content":"ping"}`)))
	select {
	case got := <-srv.got:
		require.JSONEq(t, `{"content":"ping"}`, string(got))
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the frame")
	}

	srv.mu.Lock()
	q := srv.queries[0]
	srv.mu.Unlock()
	require.Equal(t, "7", q.Get("conversationId"))
	require.Equal(t, "2", q.Get("profileId"))

	require.NoError(t, conn.WriteFrame([]byte("bye")))
	_, err = conn.ReadFrame()
	require.ErrorIs(t, err, io.EOF, "normal close reads as EOF")
}

func TestWSDialer_HandshakeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	d := testDialer("ws" + strings.TrimPrefix(srv.URL, "http"))
	_, err := d.Dial(context.Background(), model.ConnectionInfo{ConversationID: "7", ParticipantID: "2"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "403")
}

// TestManager_RealServer runs the manager against a live websocket endpoint
// and checks only the last channel survives.
func TestManager_RealServer(t *testing.T) {
	srv := newWSServer(t, "")
	m := NewManager(nil, testDialer(srv.wsURL()), nil)
	defer m.Disconnect()

	require.NoError(t, m.Connect(context.Background(), "A", "1"))
	require.True(t, m.SendMessage("first"))

	select {
	case got := <-srv.got:
		f, err := DecodeFrame(got)
		require.NoError(t, err)
		require.Equal(t, "first", f.Content)
		require.Equal(t, model.ID("1"), f.SenderID)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the frame")
	}

	require.NoError(t, m.Connect(context.Background(), "B", "1"))
	require.NoError(t, m.Connect(context.Background(), "C", "1"))

	require.Eventually(t, func() bool { return srv.live.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "C", m.Target().ConversationID)

	m.Disconnect()
	require.Eventually(t, func() bool { return srv.live.Load() == 0 }, 2*time.Second, 10*time.Millisecond)
}
