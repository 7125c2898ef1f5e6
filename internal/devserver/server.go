// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DefaultAddr is where serve-dev listens unless told otherwise.
const DefaultAddr = "127.0.0.1:8080"

// =============================================================================
// OPTIONS
// =============================================================================

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSecret sets the token signing key. A random key is used otherwise.
func WithSecret(secret []byte) Option {
	return func(s *Server) {
		if len(secret) > 0 {
			s.tokens.secret = secret
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithOTPSink receives every issued one-time code instead of a mail server.
func WithOTPSink(fn func(email, code string)) Option {
	return func(s *Server) { s.otpSink = fn }
}

// =============================================================================
// SERVER
// =============================================================================

// Server is an in-process stand-in for the auth, user and chat services. It
// serves all three under one address: /v1/auth, /v1/u and /ws.
type Server struct {
	engine  *gin.Engine
	data    *data
	hub     *hub
	otps    *otpIssuer
	tokens  *tokenIssuer
	log     *zap.Logger
	now     func() time.Time
	otpSink func(email, code string)

	mu     sync.Mutex
	http   *http.Server
	closed bool
}

// New builds a server with an empty data set.
func New(opts ...Option) *Server {
	s := &Server{
		log:    zap.NewNop(),
		now:    time.Now,
		tokens: &tokenIssuer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.tokens.secret) == 0 {
		s.tokens.secret = randomKey()
	}
	now := func() time.Time { return s.now() }
	s.tokens.now = now
	s.data = newData(now)
	s.otps = newOTPIssuer(now)
	s.hub = newHub(s.data, s.log.Named("hub"))
	if s.otpSink == nil {
		s.otpSink = func(email, code string) {
			s.log.Info("one-time code issued", zap.String("email", email), zap.String("code", code))
		}
	}

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	auth := s.engine.Group("/v1/auth")
	auth.POST("/otp_sent", s.sendOTP)
	auth.POST("/verify_otp", s.verifyOTP)
	auth.POST("/login_account", s.login)
	auth.GET("/verify_token_claims", s.verifyTokenClaims)

	users := s.engine.Group("/v1/u")
	users.GET("/get_users", s.getUsers)
	users.GET("/search_users", s.searchUsers)
	users.GET("/current_user", s.currentUser)
	users.PUT("/send_friend_request", s.sendFriendRequest)
	users.GET("/get_friend_requests", s.getFriendRequests)
	users.PUT("/accept_friend_request", s.acceptFriendRequest)
	users.GET("/get_friends", s.getFriends)
	users.GET("/get_conversation", s.getConversation)
	users.GET("/get_messages", s.getMessages)

	s.engine.GET("/ws", s.chat)
	s.engine.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
}

// Handler returns the HTTP handler, for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.http = srv
	s.mu.Unlock()

	s.log.Info("dev server listening", zap.String("addr", l.Addr().String()))
	err := srv.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown closes every chat socket and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.close()

	s.mu.Lock()
	s.closed = true
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.log.Info("dev server shutting down")
	return srv.Shutdown(ctx)
}

// =============================================================================
// SEEDING
// =============================================================================

// AddUser creates an account as if it had logged in once.
func (s *Server) AddUser(email, password string) error {
	_, err := s.data.login(strings.TrimSpace(email), password)
	return err
}

// Befriend opens a conversation between two existing users and returns its id.
func (s *Server) Befriend(userOne, userTwo string) (string, error) {
	conv, err := s.data.befriend(userOne, userTwo)
	if err != nil {
		return "", err
	}
	return conv.ID.String(), nil
}

// Connections returns how many chat sockets are open in a conversation.
func (s *Server) Connections(conversationID string) int {
	id, ok := parseID(conversationID)
	if !ok {
		return 0
	}
	return s.hub.connections(id)
}

// =============================================================================
// HELPERS
// =============================================================================

// respond writes the backend envelope plus any payload fields.
func respond(c *gin.Context, status int, message string, errDetail any, payload gin.H) {
	body := gin.H{
		"code":    status,
		"success": status >= 200 && status < 300,
		"message": message,
	}
	if errDetail != nil {
		if err, ok := errDetail.(error); ok {
			errDetail = err.Error()
		}
		body["error"] = errDetail
	}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// authenticate verifies the bearer token or writes a 401.
func (s *Server) authenticate(c *gin.Context) (*claims, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		respond(c, http.StatusUnauthorized, "Unauthorized", "Authorization header is missing", nil)
		return nil, false
	}
	cl, err := s.tokens.parse(header)
	if err != nil {
		respond(c, http.StatusUnauthorized, "Unauthorized", "Invalid JWT token: "+err.Error(), nil)
		return nil, false
	}
	return cl, true
}

func (s *Server) requestLogger() gin.HandlerFunc {
	log := s.log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

func randomKey() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("devserver: no randomness: " + err.Error())
	}
	return b
}

func randomHex(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}
