// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jeranaias/ztachat-tui/internal/model"
)

// =============================================================================
// AUTH ROUTES
// =============================================================================

func (s *Server) sendOTP(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || !strings.Contains(body.Email, "@") {
		respond(c, http.StatusBadRequest, "Bad Request", "a valid email is required", nil)
		return
	}
	email := strings.TrimSpace(body.Email)

	code, err := s.otps.issue(email)
	if err != nil {
		s.log.Error("otp issue failed", zap.Error(err))
		respond(c, http.StatusInternalServerError, "Internal Server Error", "could not issue code", nil)
		return
	}
	s.otpSink(email, code)
	respond(c, http.StatusOK, "OTP sent successfully", nil, nil)
}

func (s *Server) verifyOTP(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
		OTP   uint64 `json:"otp"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Email == "" {
		respond(c, http.StatusBadRequest, "Bad Request", "email and otp are required", nil)
		return
	}
	email := strings.TrimSpace(body.Email)

	if err := s.otps.verify(email, body.OTP); err != nil {
		respond(c, http.StatusUnauthorized, "Unauthorized", err, nil)
		return
	}

	// The account may not exist yet; login creates it.
	var userID uint
	if p, ok := s.data.profileByEmail(email); ok {
		userID, _ = parseID(p.ID.String())
	}
	token, err := s.tokens.issue(email, userID, OTPTokenTTL)
	if err != nil {
		respond(c, http.StatusInternalServerError, "Internal Server Error", "could not sign token", nil)
		return
	}
	respond(c, http.StatusOK, "OTP verified", nil, gin.H{"token": token})
}

func (s *Server) login(c *gin.Context) {
	cl, ok := s.authenticate(c)
	if !ok {
		return
	}
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Email == "" || body.Password == "" {
		respond(c, http.StatusBadRequest, "Bad Request", "email and password are required", nil)
		return
	}
	email := strings.TrimSpace(body.Email)
	if email != cl.Email {
		respond(c, http.StatusUnauthorized, "Unauthorized", "token does not belong to this email", nil)
		return
	}

	acc, err := s.data.login(email, body.Password)
	switch {
	case errors.Is(err, errBadPassword):
		respond(c, http.StatusUnauthorized, "Unauthorized", err, nil)
		return
	case err != nil:
		respond(c, http.StatusBadRequest, "Bad Request", err, nil)
		return
	}

	token, err := s.tokens.issue(acc.email, acc.id, SessionTokenTTL)
	if err != nil {
		respond(c, http.StatusInternalServerError, "Internal Server Error", "could not sign token", nil)
		return
	}
	respond(c, http.StatusOK, "Login successful", nil, gin.H{
		"token":       token,
		"private_key": randomHex(32),
	})
}

func (s *Server) verifyTokenClaims(c *gin.Context) {
	cl, ok := s.authenticate(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, "Token is valid", nil, gin.H{
		"user": gin.H{"email": cl.Email, "user_id": cl.UserID},
	})
}

// =============================================================================
// USER ROUTES
// =============================================================================

func (s *Server) getUsers(c *gin.Context) {
	respond(c, http.StatusOK, "Users fetched", nil, gin.H{"data": s.data.profilesSorted(nil)})
}

func (s *Server) searchUsers(c *gin.Context) {
	prefix := strings.TrimSpace(c.Query("username"))
	if prefix == "" {
		respond(c, http.StatusBadRequest, "Bad Request", "username is required", nil)
		return
	}
	found := s.data.profilesSorted(func(p *model.Profile) bool {
		return strings.HasPrefix(p.Username, prefix)
	})
	respond(c, http.StatusOK, "Users fetched", nil, gin.H{"data": found})
}

func (s *Server) currentUser(c *gin.Context) {
	cl, ok := s.authenticate(c)
	if !ok {
		return
	}
	p, found := s.data.profileByEmail(cl.Email)
	if !found {
		respond(c, http.StatusNotFound, "Not Found", errUserNotFound, nil)
		return
	}
	respond(c, http.StatusOK, "Profile fetched", nil, gin.H{"profile": p})
}

func (s *Server) sendFriendRequest(c *gin.Context) {
	cl, ok := s.authenticate(c)
	if !ok {
		return
	}
	var body struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Username) == "" {
		respond(c, http.StatusBadRequest, "Bad Request", "username is required", nil)
		return
	}

	req, err := s.data.sendRequest(cl.Email, strings.TrimSpace(body.Username))
	switch {
	case errors.Is(err, errUserNotFound):
		respond(c, http.StatusNotFound, "Not Found", err, nil)
		return
	case err != nil:
		respond(c, http.StatusBadRequest, "Bad Request", err, nil)
		return
	}
	respond(c, http.StatusOK, "Friend request sent", nil, gin.H{"data": req})
}

func (s *Server) getFriendRequests(c *gin.Context) {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		respond(c, http.StatusBadRequest, "Bad Request", "username is required", nil)
		return
	}
	respond(c, http.StatusOK, "Friend requests fetched", nil, gin.H{"requests": s.data.pendingFor(username)})
}

func (s *Server) acceptFriendRequest(c *gin.Context) {
	if _, ok := s.authenticate(c); !ok {
		return
	}
	var body struct {
		RequestID uint `json:"request_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.RequestID == 0 {
		respond(c, http.StatusBadRequest, "Bad Request", "request_id is required", nil)
		return
	}

	conv, err := s.data.accept(body.RequestID)
	if err != nil {
		respond(c, http.StatusNotFound, "Not Found", err, nil)
		return
	}
	respond(c, http.StatusOK, "Friend request accepted", nil, gin.H{"conversation": conv})
}

func (s *Server) getFriends(c *gin.Context) {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		respond(c, http.StatusBadRequest, "Bad Request", "username is required", nil)
		return
	}
	friends := s.data.friendsOf(username)
	if friends == nil {
		friends = []model.Profile{}
	}
	respond(c, http.StatusOK, "Friends fetched", nil, gin.H{"data": friends})
}

func (s *Server) getConversation(c *gin.Context) {
	one := strings.TrimSpace(c.Query("user_one_username"))
	two := strings.TrimSpace(c.Query("user_two_username"))
	if one == "" || two == "" {
		respond(c, http.StatusBadRequest, "Bad Request", "both usernames are required", nil)
		return
	}
	conv, err := s.data.conversationBetween(one, two)
	if err != nil {
		respond(c, http.StatusNotFound, "Not Found", err, nil)
		return
	}
	respond(c, http.StatusOK, "Conversation fetched", nil, gin.H{"conversation": conv})
}

func (s *Server) getMessages(c *gin.Context) {
	id, ok := parseID(c.Query("conversationId"))
	if !ok {
		respond(c, http.StatusBadRequest, "Bad Request", "conversationId is required", nil)
		return
	}
	respond(c, http.StatusOK, "Messages fetched", nil, gin.H{"data": s.data.history(id)})
}

// =============================================================================
// CHAT SOCKET
// =============================================================================

func (s *Server) chat(c *gin.Context) {
	conv, ok := parseID(c.Query("conversationId"))
	if !ok {
		respond(c, http.StatusBadRequest, "Bad Request", "conversationId is required", nil)
		return
	}
	profile, ok := parseID(c.Query("profileId"))
	if !ok {
		respond(c, http.StatusBadRequest, "Bad Request", "profileId is required", nil)
		return
	}
	if !s.data.member(conv, profile) {
		respond(c, http.StatusForbidden, "Forbidden", "profile is not part of this conversation", nil)
		return
	}
	s.hub.serve(c.Writer, c.Request, conv, profile)
}
