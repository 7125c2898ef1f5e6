// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the REST client for the auth and user services.
//
// Every response is the backend's JSON envelope
// {code, success, message, error} plus one payload field. Non-2xx responses
// become *APIError values that unwrap to ErrUnauthorized, ErrNotFound,
// ErrRateLimited or ErrBadRequest. Requests are paced by a token-bucket
// limiter; 429 and 5xx responses are retried with exponential backoff.
//
// # Key Types
//
//   - Client: auth flow, profiles, friends, conversations and history
//   - Claims: the email, user id and expiry read from a token
//   - APIError: a decoded error response
//
// # Usage
//
//	c := api.NewClient(cfg).WithLogger(logger.Named("api"))
//	if err := c.SendOTP(ctx, email); err != nil { ... }
//	if _, err := c.VerifyOTP(ctx, email, code); err != nil { ... }
//	res, err := c.Login(ctx, email, password)
//
//	me, err := c.CurrentUser(ctx)
//	conv, err := c.Conversation(ctx, me.Username, "bob")
//
// Client implements reconcile.HistoryFetcher through FetchHistory.
package api
