// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ztachat-tui/internal/model"
	"github.com/jeranaias/ztachat-tui/internal/reconcile"
	"github.com/jeranaias/ztachat-tui/internal/session"
	"github.com/jeranaias/ztachat-tui/internal/ui/styles"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	closed  chan struct{}
	once    sync.Once
}

func (c *fakeConn) ReadFrame() ([]byte, error) {
	<-c.closed
	return nil, io.EOF
}

func (c *fakeConn) WriteFrame(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.written...)
}

type fakeDialer struct{ conn *fakeConn }

func (d *fakeDialer) Dial(ctx context.Context, target model.ConnectionInfo) (session.Conn, error) {
	return d.conn, nil
}

type fakeFetcher struct {
	history []model.RawMessage
	err     error
}

func (f *fakeFetcher) FetchHistory(ctx context.Context, conversationID string) ([]model.RawMessage, error) {
	return f.history, f.err
}

var (
	t0     = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	target = model.ConnectionInfo{ConversationID: "7", ParticipantID: "1"}
)

type fixture struct {
	m    Model
	mgr  *session.Manager
	rec  *reconcile.Reconciler
	conn *fakeConn
}

func newFixture(t *testing.T, fetcher *fakeFetcher) *fixture {
	t.Helper()
	if fetcher == nil {
		fetcher = &fakeFetcher{}
	}
	conn := &fakeConn{closed: make(chan struct{})}
	mgr := session.NewManager(nil, &fakeDialer{conn: conn}, nil)
	rec := reconcile.New(fetcher, reconcile.WithClock(func() time.Time { return t0 }))

	m := New(Options{
		Manager:    mgr,
		Reconciler: rec,
		Theme:      styles.NewTheme(styles.ThemeDark),
		Target:     target,
		LocalName:  "alice",
		PeerName:   "bob",
		Now:        func() time.Time { return t0 },
	})
	t.Cleanup(m.Close)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return &fixture{m: next.(Model), mgr: mgr, rec: rec, conn: conn}
}

func (f *fixture) update(msg tea.Msg) tea.Cmd {
	next, cmd := f.m.Update(msg)
	f.m = next.(Model)
	return cmd
}

// sync pulls the reconciler's current snapshot into the model, as the
// snapshot listener would.
func (f *fixture) sync() {
	f.update(SnapshotMsg{Snapshot: f.rec.Snapshot()})
}

// =============================================================================
// SEND
// =============================================================================

func TestSubmit_SendsAndMerges(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.mgr.Connect(context.Background(), target.ConversationID, target.ParticipantID))

	f.m.input.SetValue("  hello bob  ")
	f.update(tea.KeyMsg{Type: tea.KeyEnter})

	frames := f.conn.frames()
	require.Len(t, frames, 1)
	var sent session.Frame
	require.NoError(t, json.Unmarshal(frames[0], &sent))
	require.Equal(t, "hello bob", sent.Content)
	require.Equal(t, model.ID("1"), sent.SenderID)

	require.Empty(t, f.m.input.Value())
	f.sync()
	msgs := f.m.Messages()
	require.Len(t, msgs, 1)
	require.True(t, msgs[0].IsOwn)
	require.Equal(t, "hello bob", msgs[0].Content)
}

func TestSubmit_NotOpenKeepsInput(t *testing.T) {
	f := newFixture(t, nil)

	f.m.input.SetValue("queued?")
	f.update(tea.KeyMsg{Type: tea.KeyEnter})

	require.Empty(t, f.conn.frames())
	require.Equal(t, "queued?", f.m.input.Value())
	require.Contains(t, f.m.Notice(), "idle")
	require.Empty(t, f.rec.Snapshot().Messages, "unsent text is not shown as sent")
}

func TestSubmit_BlankIgnored(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.mgr.Connect(context.Background(), target.ConversationID, target.ParticipantID))

	f.m.input.SetValue("   ")
	f.update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Empty(t, f.conn.frames())
	require.Empty(t, f.m.Notice())
}

// =============================================================================
// SESSION EVENTS
// =============================================================================

func TestSessionEvent_FrameMerged(t *testing.T) {
	f := newFixture(t, nil)

	frame := &session.Frame{
		Type:           session.FrameTypeMessage,
		ConversationID: "7",
		SenderID:       "2",
		Content:        "https://example.com/cat.png",
		ContentType:    model.ContentImage,
	}
	cmd := f.update(session.EventMsg{Event: session.Event{Kind: session.EventFrame, State: session.Open, Frame: frame}})
	require.NotNil(t, cmd, "the view keeps listening")

	f.sync()
	msgs := f.m.Messages()
	require.Len(t, msgs, 1)
	require.False(t, msgs[0].IsOwn)
	require.Equal(t, "https://example.com/cat.png", msgs[0].Content)
	require.Equal(t, model.ContentImage, msgs[0].ContentType)
	require.Contains(t, f.m.View(), "[image]")
}

func TestSessionEvent_FrameForOtherConversationIgnored(t *testing.T) {
	f := newFixture(t, nil)

	frame := &session.Frame{ConversationID: "99", SenderID: "2", Content: "elsewhere"}
	f.update(session.EventMsg{Event: session.Event{Kind: session.EventFrame, Frame: frame}})
	require.Empty(t, f.rec.Snapshot().Messages)
}

func TestSessionEvent_StateNotices(t *testing.T) {
	tests := []struct {
		name  string
		event session.Event
		want  string
	}{
		{"clean close", session.Event{Kind: session.EventState, State: session.Closed, Prev: session.Open}, "connection closed"},
		{"lost", session.Event{Kind: session.EventState, State: session.Closed, Prev: session.Open, Err: io.ErrUnexpectedEOF}, "connection lost"},
		{"errored", session.Event{Kind: session.EventState, State: session.Errored, Prev: session.Connecting, Err: session.ErrConnection}, "connection error"},
		{"rejected", session.Event{Kind: session.EventFrameRejected, State: session.Open, Err: session.ErrUnattributedFrame}, "without a sender"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.update(session.EventMsg{Event: tt.event})
			require.Contains(t, f.m.Notice(), tt.want)
		})
	}
}

func TestSessionEvent_OpenClearsNotice(t *testing.T) {
	f := newFixture(t, nil)
	f.m.notice = "connection closed"
	f.update(session.EventMsg{Event: session.Event{Kind: session.EventState, State: session.Open, Prev: session.Connecting}})
	require.Empty(t, f.m.Notice())
	require.Equal(t, session.Open, f.m.ConnectionState())
}

func TestConnectResult(t *testing.T) {
	f := newFixture(t, nil)

	f.update(ConnectResultMsg{Target: target, Err: session.ErrConnectInProgress})
	require.Empty(t, f.m.Notice(), "a dropped duplicate connect is silent")

	f.update(ConnectResultMsg{Target: target, Err: session.ErrInvalidArguments})
	require.Contains(t, f.m.Notice(), "connect failed")
}

// =============================================================================
// HISTORY
// =============================================================================

func TestInitCommands_LoadHistory(t *testing.T) {
	fetcher := &fakeFetcher{history: []model.RawMessage{
		{ID: "1", CreatedAt: t0, ConversationID: "7", SenderID: "2", Content: []model.RawContent{{Content: "hi"}}},
		{ID: "2", CreatedAt: t0.Add(time.Second), ConversationID: "7", SenderID: "1", Content: []model.RawContent{{Content: "hey"}}},
	}}
	f := newFixture(t, fetcher)

	msg := LoadHistoryCmd(f.rec, target.ConversationID, time.Second)()
	res, ok := msg.(HistoryResultMsg)
	require.True(t, ok)
	require.NoError(t, res.Err)
	require.Equal(t, 2, res.Count)

	f.sync()
	view := f.m.View()
	require.Contains(t, view, "bob")
	require.Contains(t, view, "alice")
	require.Contains(t, view, "hey")
}

func TestHistoryResult_FailureNotice(t *testing.T) {
	f := newFixture(t, &fakeFetcher{err: io.ErrUnexpectedEOF})

	msg := LoadHistoryCmd(f.rec, target.ConversationID, time.Second)()
	f.update(msg)
	require.Contains(t, f.m.Notice(), "history unavailable")

	f.update(HistoryResultMsg{ConversationID: "7", Err: reconcile.ErrStaleResult})
	require.Contains(t, f.m.Notice(), "history unavailable", "stale results do not overwrite the notice")
}

// =============================================================================
// RENDERING
// =============================================================================

func TestRenderMessages_GroupHeaders(t *testing.T) {
	f := newFixture(t, &fakeFetcher{history: []model.RawMessage{
		{ID: "1", CreatedAt: t0, ConversationID: "7", SenderID: "2", Content: []model.RawContent{{Content: "one"}}},
		{ID: "2", CreatedAt: t0.Add(time.Second), ConversationID: "7", SenderID: "2", Content: []model.RawContent{{Content: "two"}}},
		{ID: "3", CreatedAt: t0.Add(2 * time.Second), ConversationID: "7", SenderID: "1", Content: []model.RawContent{{Content: "three"}}},
	}})
	_, err := f.rec.LoadHistory(context.Background(), "7")
	require.NoError(t, err)
	f.sync()

	out := f.m.renderMessages()
	require.Equal(t, 1, strings.Count(out, "bob"), "one header for bob's group")
	require.Equal(t, 1, strings.Count(out, "alice"))
	require.Less(t, strings.Index(out, "one"), strings.Index(out, "two"))
	require.Less(t, strings.Index(out, "two"), strings.Index(out, "three"))
}

func TestRenderEmptyState(t *testing.T) {
	f := newFixture(t, nil)
	require.Contains(t, f.m.renderMessages(), "No messages yet")
}

func TestView_NotReady(t *testing.T) {
	conn := &fakeConn{closed: make(chan struct{})}
	m := New(Options{
		Manager:    session.NewManager(nil, &fakeDialer{conn: conn}, nil),
		Reconciler: reconcile.New(&fakeFetcher{}),
		Target:     target,
	})
	defer m.Close()
	require.Equal(t, "loading...", m.View())
}

func TestHelpToggle(t *testing.T) {
	f := newFixture(t, nil)
	f.update(tea.KeyMsg{Type: tea.KeyF1})
	require.Contains(t, f.m.View(), "reload history")
	f.update(tea.KeyMsg{Type: tea.KeyF1})
	require.NotContains(t, f.m.View(), "reload history")
}

func TestSettings_AppliesLive(t *testing.T) {
	f := newFixture(t, nil)
	f.rec.MergeLive("7", "hi", "2")
	f.sync()

	stamp := formatTimestamp(t0.Local(), t0)
	require.NotContains(t, f.m.renderMessages(), stamp)

	light := styles.NewTheme(styles.ThemeLight)
	f.update(SettingsMsg{Theme: light, ShowTimestamps: true})
	require.Same(t, light, f.m.theme)
	require.Equal(t, 80, light.Width)
	require.Contains(t, f.m.renderMessages(), stamp)

	f.update(SettingsMsg{ShowTimestamps: false})
	require.Same(t, light, f.m.theme, "nil theme keeps the current one")
	require.NotContains(t, f.m.renderMessages(), stamp)
}

// =============================================================================
// SNAPSHOT LISTENER
// =============================================================================

func TestListenSnapshots_KeepsNewest(t *testing.T) {
	rec := reconcile.New(&fakeFetcher{})
	snaps, stop := listenSnapshots(rec)
	defer stop()

	rec.SetTarget("7")
	for i := 0; i < 5; i++ {
		rec.MergeLive("7", "m"+string(rune('a'+i)), "2")
	}

	got := <-snaps
	require.Equal(t, rec.Snapshot().Version, got.Version)
	require.Len(t, got.Messages, 5)
}

// =============================================================================
// FORMATTING
// =============================================================================

func TestFormatTimestamp(t *testing.T) {
	now := time.Date(2025, 3, 7, 18, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want string
	}{
		{now.Add(-time.Hour), "17:00"},
		{now.AddDate(0, 0, -2), "Wed 18:00"},
		{now.AddDate(0, -1, 0), "Feb 7 18:00"},
	}
	for _, tt := range tests {
		if got := formatTimestamp(tt.at, now); got != tt.want {
			t.Errorf("formatTimestamp(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}
