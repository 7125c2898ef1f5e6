// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// OTPPeriod is how long a mailed code stays valid.
	OTPPeriod = 5 * time.Minute

	// OTPTokenTTL is the lifetime of the token returned by verify_otp.
	OTPTokenTTL = 5 * time.Minute

	// SessionTokenTTL is the lifetime of the token returned by login_account.
	SessionTokenTTL = 24 * time.Hour
)

var errInvalidOTP = errors.New("invalid or expired code")

// =============================================================================
// ONE-TIME CODES
// =============================================================================

// otpIssuer hands out time-based codes, one TOTP secret per email.
type otpIssuer struct {
	mu      sync.Mutex
	secrets map[string]string
	now     func() time.Time
}

func newOTPIssuer(now func() time.Time) *otpIssuer {
	return &otpIssuer{secrets: make(map[string]string), now: now}
}

func (o *otpIssuer) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(OTPPeriod / time.Second),
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// issue returns the current code for email.
func (o *otpIssuer) issue(email string) (string, error) {
	o.mu.Lock()
	secret, ok := o.secrets[email]
	if !ok {
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      "ztachat-dev",
			AccountName: email,
			Period:      uint(OTPPeriod / time.Second),
		})
		if err != nil {
			o.mu.Unlock()
			return "", fmt.Errorf("generate otp secret: %w", err)
		}
		secret = key.Secret()
		o.secrets[email] = secret
	}
	o.mu.Unlock()

	return totp.GenerateCodeCustom(secret, o.now(), o.opts())
}

// verify checks code for email. Codes arrive as JSON numbers, so leading
// zeros are restored before validation.
func (o *otpIssuer) verify(email string, code uint64) error {
	o.mu.Lock()
	secret, ok := o.secrets[email]
	o.mu.Unlock()
	if !ok {
		return errInvalidOTP
	}
	valid, err := totp.ValidateCustom(fmt.Sprintf("%06d", code), secret, o.now(), o.opts())
	if err != nil || !valid {
		return errInvalidOTP
	}
	return nil
}

// =============================================================================
// TOKENS
// =============================================================================

// claims mirrors what the auth service signs.
type claims struct {
	Email  string `json:"email"`
	UserID uint   `json:"user_id"`
	jwt.RegisteredClaims
}

type tokenIssuer struct {
	secret []byte
	now    func() time.Time
}

func (t *tokenIssuer) issue(email string, userID uint, ttl time.Duration) (string, error) {
	now := t.now()
	c := claims{
		Email:  email,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "ztachat-dev",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}

// parse verifies a "Bearer <token>" header value.
func (t *tokenIssuer) parse(header string) (*claims, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, errors.New("invalid authorization header format")
	}
	var c claims
	_, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), &c,
		func(tok *jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, err
	}
	if c.Email == "" {
		return nil, errors.New("token is missing the email claim")
	}
	return &c, nil
}
