// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jeranaias/ztachat-tui/internal/model"
)

// =============================================================================
// TOKEN CLAIMS
// =============================================================================

// Claims are the fields the auth service signs into its tokens.
type Claims struct {
	Email     string
	UserID    model.ID
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at now. A token with
// no expiry never expires.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

type tokenClaims struct {
	Email  string   `json:"email"`
	UserID model.ID `json:"user_id"`
	jwt.RegisteredClaims
}

// ParseClaims decodes the claims of token without verifying its signature.
// The client never holds the signing key; the backend verifies on every call.
func ParseClaims(token string) (Claims, error) {
	token = strings.TrimPrefix(strings.TrimSpace(token), "Bearer ")
	if token == "" {
		return Claims{}, ErrNoToken
	}

	var tc tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
		return Claims{}, fmt.Errorf("malformed token: %w", err)
	}

	c := Claims{Email: tc.Email, UserID: tc.UserID}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	return c, nil
}

// Claims returns the claims of the current token.
func (c *Client) Claims() (Claims, error) {
	return ParseClaims(c.Token())
}

// checkToken refuses a missing or expired token before a round trip.
func (c *Client) checkToken(token string) error {
	if token == "" {
		return ErrNoToken
	}
	claims, err := ParseClaims(token)
	if err != nil {
		return err
	}
	if claims.Expired(c.now()) {
		return fmt.Errorf("%w at %s", ErrTokenExpired, claims.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// =============================================================================
// OTP LOGIN FLOW
// =============================================================================

// LoginResult is the response of a successful login.
type LoginResult struct {
	Token      string `json:"token"`
	PrivateKey string `json:"private_key"`
}

// SendOTP asks the auth service to mail a one-time code to email.
func (c *Client) SendOTP(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrBadRequest)
	}
	return c.do(ctx, request{
		method: http.MethodPost,
		url:    c.authURL + "/otp_sent",
		body:   map[string]string{"email": email},
	}, nil)
}

// VerifyOTP exchanges the mailed code for a short-lived token. The client
// keeps the token so the following Login call can present it.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	code, err := strconv.ParseUint(strings.TrimSpace(otp), 10, 32)
	if err != nil {
		return "", fmt.Errorf("%w: code must be numeric", ErrBadRequest)
	}

	var resp struct {
		envelope
		Token string `json:"token"`
	}
	err = c.do(ctx, request{
		method: http.MethodPost,
		url:    c.authURL + "/verify_otp",
		body: struct {
			Email string `json:"email"`
			OTP   uint64 `json:"otp"`
		}{strings.TrimSpace(email), code},
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("verify_otp: empty token in response")
	}
	c.SetToken(resp.Token)
	return resp.Token, nil
}

// Login presents the OTP token from VerifyOTP with email and password. The
// backend creates the account on first login. On success the client switches
// to the returned session token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var resp struct {
		envelope
		LoginResult
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		url:    c.authURL + "/login_account",
		body:   map[string]string{"email": strings.TrimSpace(email), "password": password},
		auth:   true,
	}, &resp)
	if err != nil {
		return LoginResult{}, err
	}
	if resp.Token == "" {
		return LoginResult{}, fmt.Errorf("login_account: empty token in response")
	}
	c.SetToken(resp.Token)
	return resp.LoginResult, nil
}
