// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// account.go - login, logout and whoami.
//
// Command: login [EMAIL]
//
// The auth service mails a one-time code to EMAIL. The code is exchanged for
// a short-lived token, which is then presented with the password. The first
// login creates the account. The session token, private key and profile are
// kept in the credential store.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/ztachat-tui/internal/api"
	"github.com/jeranaias/ztachat-tui/internal/ui/styles"
)

// HandleLogin runs the interactive OTP + password login.
func HandleLogin(ctx context.Context, app *App, args Args) error {
	email := strings.TrimSpace(args.Subcommand)
	if email == "" {
		line, err := app.Prompt.Line("Email: ")
		if err != nil {
			return err
		}
		email = strings.TrimSpace(line)
	}
	if !strings.Contains(email, "@") {
		return NewValidationErrorWithExample("email", email, "not an email address", "ztachat login alice@example.com")
	}

	if err := app.Client.SendOTP(ctx, email); err != nil {
		return NewCommandError("login", "send code", err)
	}
	if !args.JSON {
		fmt.Fprintf(app.Out, "A one-time code was sent to %s.\n", email)
	}

	code, err := app.Prompt.Line("Code: ")
	if err != nil {
		return err
	}
	if _, err := app.Client.VerifyOTP(ctx, email, code); err != nil {
		return NewCommandError("login", "verify code", err)
	}

	password, err := app.Prompt.Secret("Password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return NewValidationError("password", "", "must not be empty")
	}

	res, err := app.Client.Login(ctx, email, password)
	if err != nil {
		return NewCommandError("login", "", err)
	}
	profile, err := app.Client.CurrentUser(ctx)
	if err != nil {
		return NewCommandError("login", "profile", err)
	}
	if err := app.SaveSession(ctx, res, profile); err != nil {
		return NewCommandError("login", "save session", err)
	}
	app.Log.Info("logged in", zap.String("username", profile.Username))

	id := Identity{ProfileID: profile.ID.String(), Username: profile.Username, Email: profile.Email}
	if args.JSON {
		return NewJSONResponse("login", id).Write(app.Out)
	}
	fmt.Fprintln(app.Out, styles.RenderSuccess(fmt.Sprintf("Logged in as %s (%s)", id.Username, id.Email)))
	return nil
}

// HandleLogout forgets the stored session.
func HandleLogout(ctx context.Context, app *App, args Args) error {
	if err := app.ClearSession(ctx); err != nil {
		return NewCommandError("logout", "", err)
	}
	if args.JSON {
		return NewJSONResponse("logout", nil).Write(app.Out)
	}
	fmt.Fprintln(app.Out, styles.RenderSuccess("Logged out"))
	return nil
}

// WhoamiData is the JSON form of whoami.
type WhoamiData struct {
	Identity
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Expired   bool      `json:"expired"`
}

// HandleWhoami shows the account the stored token belongs to.
func HandleWhoami(ctx context.Context, app *App, args Args) error {
	claims, err := app.Client.Claims()
	if errors.Is(err, api.ErrNoToken) {
		return ErrNotLoggedIn
	}
	if err != nil {
		return NewCommandError("whoami", "", err)
	}

	data := WhoamiData{
		Identity:  Identity{Email: claims.Email, ProfileID: claims.UserID.String()},
		ExpiresAt: claims.ExpiresAt,
		Expired:   claims.Expired(time.Now()),
	}
	if !data.Expired {
		if id, err := app.Identity(ctx); err == nil {
			data.Identity = id
		} else {
			app.Log.Debug("profile lookup failed", zap.Error(err))
		}
	}

	if args.JSON {
		return NewJSONResponse("whoami", data).Write(app.Out)
	}

	fmt.Fprintln(app.Out, TitleStyle.Render("Account"))
	fmt.Fprintln(app.Out, RenderField("Email", data.Email))
	if data.Username != "" {
		fmt.Fprintln(app.Out, RenderField("Username", data.Username))
	}
	fmt.Fprintln(app.Out, RenderField("Profile ID", data.ProfileID))
	if !data.ExpiresAt.IsZero() {
		exp := data.ExpiresAt.Local().Format(time.RFC1123)
		if data.Expired {
			exp = ErrorStyle.Render(exp + " (expired)")
		}
		fmt.Fprintln(app.Out, RenderField("Expires", exp))
	}
	return nil
}
