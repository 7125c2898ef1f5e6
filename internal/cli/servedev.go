// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// servedev.go - Local fake backend.
//
// Command: serve-dev [--addr ADDR]
//
// Serves the auth, user and chat routes from one process. One-time login
// codes are printed instead of mailed.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/ztachat-tui/internal/devserver"
)

// shutdownTimeout bounds the graceful stop of serve-dev.
const shutdownTimeout = 5 * time.Second

// HandleServeDev runs the dev server until ctx is cancelled.
func HandleServeDev(ctx context.Context, args Args, log *zap.Logger, out io.Writer) error {
	addr := args.Addr
	if addr == "" {
		addr = devserver.DefaultAddr
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return NewCommandError("serve-dev", "listen", err)
	}
	return serveDev(ctx, l, log, out)
}

func serveDev(ctx context.Context, l net.Listener, log *zap.Logger, out io.Writer) error {
	var mu sync.Mutex
	srv := devserver.New(
		devserver.WithLogger(log.Named("devserver")),
		devserver.WithOTPSink(func(email, code string) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(out, "%s one-time code for %s: %s\n", WarningStyle.Render("[otp]"), email, code)
		}),
	)

	host := l.Addr().String()
	mu.Lock()
	fmt.Fprintln(out, TitleStyle.Render("ztachat dev server"))
	fmt.Fprintln(out, RenderField("auth", "http://"+host+"/v1/auth"))
	fmt.Fprintln(out, RenderField("user", "http://"+host+"/v1/u"))
	fmt.Fprintln(out, RenderField("chat", "ws://"+host+"/ws"))
	fmt.Fprintln(out, DimStyle.Render("Point the client at it with ZTACHAT_AUTH_URL, ZTACHAT_USER_URL and ZTACHAT_CHAT_URL."))
	mu.Unlock()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(l) }()

	select {
	case err := <-errCh:
		return NewCommandError("serve-dev", "serve", err)
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(stopCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return NewCommandError("serve-dev", "shutdown", err)
	}
	return NewCommandError("serve-dev", "serve", <-errCh)
}
