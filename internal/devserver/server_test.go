// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"

	"github.com/jeranaias/ztachat-tui/internal/api"
	"github.com/jeranaias/ztachat-tui/internal/config"
	"github.com/jeranaias/ztachat-tui/internal/model"
	"github.com/jeranaias/ztachat-tui/internal/session"
)

// =============================================================================
// HARNESS
// =============================================================================

type harness struct {
	t   *testing.T
	srv *Server
	ts  *httptest.Server
	cfg *config.Config

	mu    sync.Mutex
	codes map[string]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, codes: make(map[string]string)}
	h.srv = New(
		WithLogger(zaptest.NewLogger(t)),
		WithSecret([]byte("test-secret")),
		WithOTPSink(func(email, code string) {
			h.mu.Lock()
			h.codes[email] = code
			h.mu.Unlock()
		}),
	)
	h.ts = httptest.NewServer(h.srv.Handler())
	t.Cleanup(func() {
		h.srv.Shutdown(context.Background())
		h.ts.Close()
	})

	h.cfg = config.Default()
	h.cfg.Server.AuthURL = h.ts.URL + "/v1/auth"
	h.cfg.Server.UserURL = h.ts.URL + "/v1/u"
	h.cfg.Server.ChatURL = "ws" + strings.TrimPrefix(h.ts.URL, "http") + "/ws"
	h.cfg.Server.MaxRetries = 0
	return h
}

func (h *harness) code(email string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.codes[email]
}

func (h *harness) client() *api.Client {
	return api.NewClient(h.cfg).WithLimiter(rate.NewLimiter(rate.Inf, 1))
}

// login runs the full OTP flow and returns a client holding a session token.
func (h *harness) login(email, password string) (*api.Client, model.Profile) {
	h.t.Helper()
	ctx := context.Background()
	c := h.client()
	require.NoError(h.t, c.SendOTP(ctx, email))
	_, err := c.VerifyOTP(ctx, email, h.code(email))
	require.NoError(h.t, err)
	_, err = c.Login(ctx, email, password)
	require.NoError(h.t, err)
	me, err := c.CurrentUser(ctx)
	require.NoError(h.t, err)
	return c, me
}

func (h *harness) manager() *session.Manager {
	m := session.NewManager(h.cfg, nil, zaptest.NewLogger(h.t))
	h.t.Cleanup(m.Disconnect)
	return m
}

// frames collects inbound frames from m.
func frames(m *session.Manager) func() []session.Frame {
	var mu sync.Mutex
	var got []session.Frame
	m.Subscribe(func(ev session.Event) {
		if ev.Kind == session.EventFrame {
			mu.Lock()
			got = append(got, *ev.Frame)
			mu.Unlock()
		}
	})
	return func() []session.Frame {
		mu.Lock()
		defer mu.Unlock()
		return append([]session.Frame(nil), got...)
	}
}

// =============================================================================
// AUTH
// =============================================================================

func TestLoginFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c, me := h.login("alice@example.com", "pw-alice")
	require.Equal(t, "alice", me.Username)
	require.Equal(t, "alice@example.com", me.Email)

	claims, err := c.Claims()
	require.NoError(t, err)
	require.Equal(t, me.ID, claims.UserID)
	require.WithinDuration(t, time.Now().Add(SessionTokenTTL), claims.ExpiresAt, time.Minute)

	// A second login with the wrong password is refused.
	other := h.client()
	require.NoError(t, other.SendOTP(ctx, "alice@example.com"))
	_, err = other.VerifyOTP(ctx, "alice@example.com", h.code("alice@example.com"))
	require.NoError(t, err)
	_, err = other.Login(ctx, "alice@example.com", "wrong")
	require.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestLogin_WrongCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.client()

	require.NoError(t, c.SendOTP(ctx, "bob@example.com"))
	n, err := strconv.Atoi(h.code("bob@example.com"))
	require.NoError(t, err)
	wrong := fmt.Sprintf("%06d", (n+500000)%1000000)

	_, err = c.VerifyOTP(ctx, "bob@example.com", wrong)
	require.ErrorIs(t, err, api.ErrUnauthorized)
	require.Empty(t, c.Token())
}

func TestLogin_TokenEmailMismatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.client()

	require.NoError(t, c.SendOTP(ctx, "carol@example.com"))
	_, err := c.VerifyOTP(ctx, "carol@example.com", h.code("carol@example.com"))
	require.NoError(t, err)

	_, err = c.Login(ctx, "mallory@example.com", "pw")
	require.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestVerifyTokenClaims(t *testing.T) {
	h := newHarness(t)
	c, _ := h.login("dave@example.com", "pw")

	req, err := http.NewRequest(http.MethodGet, h.ts.URL+"/v1/auth/verify_token_claims", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+c.Token())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req.Header.Set("Authorization", c.Token())
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "missing Bearer prefix")
}

// =============================================================================
// USERS AND FRIENDS
// =============================================================================

func TestFriendFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	alice, _ := h.login("alice@example.com", "pw")
	bob, _ := h.login("bob@example.com", "pw")
	require.NoError(t, h.srv.AddUser("albert@example.com", "pw"))

	found, err := alice.SearchUsers(ctx, "al")
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.Equal(t, "albert", found[0].Username)

	all, err := alice.Users(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	require.NoError(t, alice.SendFriendRequest(ctx, "alice", "bob"))
	err = alice.SendFriendRequest(ctx, "alice", "bob")
	require.ErrorIs(t, err, api.ErrBadRequest, "duplicate request")
	err = alice.SendFriendRequest(ctx, "alice", "nobody")
	require.ErrorIs(t, err, api.ErrNotFound)

	_, err = alice.Conversation(ctx, "alice", "bob")
	require.ErrorIs(t, err, api.ErrNotFound, "no conversation before accepting")

	reqs, err := bob.FriendRequests(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, "alice", reqs[0].Requester.Username)

	require.NoError(t, bob.AcceptFriendRequest(ctx, reqs[0].ID, "alice", "bob"))

	reqs, err = bob.FriendRequests(ctx, "bob")
	require.NoError(t, err)
	require.Empty(t, reqs)

	friends, err := alice.Friends(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, friends, 1)
	require.Equal(t, "bob", friends[0].Username)

	conv, err := bob.Conversation(ctx, "bob", "alice")
	require.NoError(t, err)
	require.False(t, conv.ID.IsZero())
	require.True(t, conv.Includes(friends[0].ID.String()))
}

func TestCurrentUser_RequiresToken(t *testing.T) {
	h := newHarness(t)
	_, err := h.client().CurrentUser(context.Background())
	require.ErrorIs(t, err, api.ErrNoToken)
}

// =============================================================================
// CHAT
// =============================================================================

type pair struct {
	alice, bob     model.Profile
	aliceC         *api.Client
	conversationID string
}

func setupPair(t *testing.T, h *harness) pair {
	t.Helper()
	aliceC, alice := h.login("alice@example.com", "pw")
	_, bob := h.login("bob@example.com", "pw")
	conv, err := h.srv.Befriend("alice", "bob")
	require.NoError(t, err)
	return pair{alice: alice, bob: bob, aliceC: aliceC, conversationID: conv}
}

func TestChat_RelayWithoutEcho(t *testing.T) {
	h := newHarness(t)
	p := setupPair(t, h)
	ctx := context.Background()

	ma, mb := h.manager(), h.manager()
	gotA, gotB := frames(ma), frames(mb)

	require.NoError(t, ma.Connect(ctx, p.conversationID, p.alice.ID.String()))
	require.NoError(t, mb.Connect(ctx, p.conversationID, p.bob.ID.String()))
	require.Eventually(t, func() bool { return h.srv.Connections(p.conversationID) == 2 },
		2*time.Second, 10*time.Millisecond)

	require.True(t, ma.SendMessage("hi bob"))
	require.Eventually(t, func() bool { return len(gotB()) == 1 }, 2*time.Second, 10*time.Millisecond)

	f := gotB()[0]
	require.Equal(t, "hi bob", f.Content)
	require.Equal(t, p.alice.ID, f.SenderID)
	require.Equal(t, model.ID(p.conversationID), f.ConversationID)

	require.True(t, mb.SendMessage("hi alice"))
	require.Eventually(t, func() bool { return len(gotA()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "hi alice", gotA()[0].Content, "alice only sees bob's message")
	require.Len(t, gotB(), 1, "bob's own message is not echoed")

	history, err := p.aliceC.FetchHistory(ctx, p.conversationID)
	require.NoError(t, err)
	msgs := model.Flatten(history)
	require.Len(t, msgs, 2)
	require.Equal(t, "hi bob", msgs[0].Content)
	require.Equal(t, p.bob.ID.String(), msgs[1].SenderID)
	require.True(t, model.IsOrdered(msgs))
}

func TestChat_NonMemberForbidden(t *testing.T) {
	h := newHarness(t)
	p := setupPair(t, h)
	_, carol := h.login("carol@example.com", "pw")

	m := h.manager()
	err := m.Connect(context.Background(), p.conversationID, carol.ID.String())
	require.ErrorIs(t, err, session.ErrConnection)
	require.Contains(t, err.Error(), "403")
	require.Equal(t, session.Errored, m.State())
	require.Zero(t, h.srv.Connections(p.conversationID))
}

func TestChat_SwitchingTargetLeavesOneSocket(t *testing.T) {
	h := newHarness(t)
	p := setupPair(t, h)
	require.NoError(t, h.srv.AddUser("carol@example.com", "pw"))
	other, err := h.srv.Befriend("alice", "carol")
	require.NoError(t, err)

	m := h.manager()
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx, p.conversationID, p.alice.ID.String()))
	require.NoError(t, m.Connect(ctx, other, p.alice.ID.String()))

	require.Eventually(t, func() bool {
		return h.srv.Connections(p.conversationID) == 0 && h.srv.Connections(other) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestShutdown_ClosesChannels(t *testing.T) {
	h := newHarness(t)
	p := setupPair(t, h)

	m := h.manager()
	require.NoError(t, m.Connect(context.Background(), p.conversationID, p.alice.ID.String()))
	require.Equal(t, session.Open, m.State())

	require.NoError(t, h.srv.Shutdown(context.Background()))
	require.Eventually(t, func() bool { return m.State() == session.Closed }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, m.LastError(), "a going-away close is a clean close")
	require.True(t, m.Target().IsZero())
}

// =============================================================================
// DATA
// =============================================================================

func TestData_RawTextFrameAccepted(t *testing.T) {
	d := newData(time.Now)
	_, err := d.login("a@x.io", "pw")
	require.NoError(t, err)
	_, err = d.login("b@x.io", "pw")
	require.NoError(t, err)
	conv, err := d.befriend("a", "b")
	require.NoError(t, err)
	cid, _ := parseID(conv.ID.String())

	h := newHub(d, zaptest.NewLogger(t))
	c := &client{hub: h, conversationID: cid, profileID: 1, send: make(chan []byte, 1)}
	c.handle([]byte("  plain text  "))
	c.handle([]byte(`{"content":"framed","content_type":"link"}`))
	c.handle([]byte("   "))

	got := d.history(cid)
	require.Len(t, got, 2)
	require.Equal(t, "plain text", got[0].Content[0].Content)
	require.Equal(t, model.ContentText, got[0].Content[0].ContentType)
	require.Equal(t, model.ContentLink, got[1].Content[0].ContentType)
	require.Equal(t, model.ID("2"), got[0].ReceiverID)
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in   string
		want uint
		ok   bool
	}{
		{"7", 7, true},
		{" 12 ", 12, true},
		{"0", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"-1", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseID(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("parseID(%q) = %d, %v, want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
