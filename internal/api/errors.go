// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common backend responses. *APIError wraps one of them
// when the status maps to it, so callers use errors.Is.
var (
	// ErrUnauthorized indicates a missing, invalid or expired token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the requested user, conversation or request does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrBadRequest indicates the backend rejected the request data.
	ErrBadRequest = errors.New("bad request")

	// ErrNoToken indicates a call that needs a session token was made without one.
	ErrNoToken = errors.New("no session token")

	// ErrTokenExpired indicates the stored token is past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrResponseTooLarge indicates the response body exceeded MaxResponseSize.
	ErrResponseTooLarge = errors.New("response too large")
)

// APIError is a non-2xx response from the auth or user service.
type APIError struct {
	Status  int
	Code    int
	Message string
	Detail  string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Detail != "" && e.Detail != msg {
		return fmt.Sprintf("api error (HTTP %d): %s: %s", e.Status, msg, e.Detail)
	}
	return fmt.Sprintf("api error (HTTP %d): %s", e.Status, msg)
}

// Unwrap returns the sentinel matching the status, if any.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrBadRequest
	}
	return nil
}

// Temporary reports whether retrying the request may succeed.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}
