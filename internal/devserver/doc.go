// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package devserver is an in-process stand-in for the ztaChat backend.
//
// It serves the auth routes (/v1/auth), the user routes (/v1/u) and the chat
// socket (/ws) from one gin engine backed by in-memory data. One-time codes
// are real TOTP codes handed to a sink instead of a mail server, and tokens
// are HS256 JWTs with the same claims the auth service signs. The chat hub
// persists each inbound frame and relays it to the other participants of the
// conversation; the sender never receives its own frame back.
//
// It backs `ztachat serve-dev` and the end-to-end tests of the api and
// session packages.
//
// # Key Types
//
//   - Server: routes, hub and data with Serve/Shutdown
//   - Option: WithLogger, WithSecret, WithClock, WithOTPSink
//
// # Usage
//
//	srv := devserver.New(devserver.WithLogger(logger.Named("devserver")))
//	l, err := net.Listen("tcp", devserver.DefaultAddr)
//	go srv.Serve(l)
//	defer srv.Shutdown(ctx)
package devserver
