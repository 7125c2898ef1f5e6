// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Shared wiring for commands that talk to the backend.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/ztachat-tui/internal/api"
	"github.com/jeranaias/ztachat-tui/internal/config"
	"github.com/jeranaias/ztachat-tui/internal/credstore"
	"github.com/jeranaias/ztachat-tui/internal/logger"
	"github.com/jeranaias/ztachat-tui/internal/model"
	"github.com/jeranaias/ztachat-tui/internal/reconcile"
	"github.com/jeranaias/ztachat-tui/internal/session"
	"github.com/jeranaias/ztachat-tui/internal/ui/styles"
)

// =============================================================================
// APP
// =============================================================================

// App holds the configuration, logger, credential store and API client a
// command works with.
type App struct {
	Config *config.Config
	Log    *zap.Logger
	Store  *credstore.Store
	Client *api.Client

	Out    io.Writer
	Prompt Prompter

	ownsStore bool
}

// AppOption configures an App.
type AppOption func(*App)

// WithOutput sends command output to w instead of stdout.
func WithOutput(w io.Writer) AppOption {
	return func(a *App) { a.Out = w }
}

// WithPrompter replaces the terminal prompter.
func WithPrompter(p Prompter) AppOption {
	return func(a *App) { a.Prompt = p }
}

// WithAppLogger sets the logger components are named from.
func WithAppLogger(l *zap.Logger) AppOption {
	return func(a *App) {
		if l != nil {
			a.Log = l
		}
	}
}

// WithStore uses an already open store. The App does not close it.
func WithStore(s *credstore.Store) AppOption {
	return func(a *App) { a.Store = s }
}

// OpenApp loads the configuration, starts file logging and builds the App.
// A config file that fails to parse is reported and the defaults are used.
func OpenApp(ctx context.Context, args Args, opts ...AppOption) (*App, error) {
	cfg, err := config.Load()
	if cfg == nil {
		return nil, err
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, styles.RenderWarning(err.Error()))
	}

	logFile, err := cfg.LogFile()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.Options{
		Level:  cfg.Log.Level,
		File:   logFile,
		Stderr: args.Verbose,
		Color:  ColorsEnabled(),
	}); err != nil {
		return nil, fmt.Errorf("failed to start logging: %w", err)
	}

	return NewApp(ctx, cfg, append([]AppOption{WithAppLogger(logger.L())}, opts...)...)
}

// NewApp builds an App from cfg. Unless a store was given, the credential
// store named in cfg is opened and any stored session token is handed to the
// client.
func NewApp(ctx context.Context, cfg *config.Config, opts ...AppOption) (*App, error) {
	a := &App{
		Config: cfg,
		Log:    zap.NewNop(),
		Out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.Prompt == nil {
		a.Prompt = NewTermPrompter()
	}

	if a.Store == nil {
		storeOpts, err := credstore.FromConfig(cfg)
		if err != nil {
			return nil, err
		}
		storeOpts = append(storeOpts, credstore.WithLogger(a.Log.Named("credstore")))
		s, err := credstore.Open(ctx, cfg.Store.Name, storeOpts...)
		if err != nil {
			return nil, err
		}
		a.Store = s
		a.ownsStore = true
	}

	if a.Client == nil {
		a.Client = api.NewClient(cfg).WithLogger(a.Log.Named("api"))
	}
	if token, err := a.Store.Get(credstore.KeyAuthToken); err == nil {
		a.Client.SetToken(token)
	}
	return a, nil
}

// Close closes the store if the App opened it.
func (a *App) Close() error {
	if a.ownsStore {
		return a.Store.Close()
	}
	return nil
}

// =============================================================================
// SESSION IDENTITY
// =============================================================================

// Identity is the logged-in account as the client remembers it.
type Identity struct {
	ProfileID string `json:"profile_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}

// Identity returns the stored account. The profile is fetched once and
// remembered when only the token is stored.
func (a *App) Identity(ctx context.Context) (Identity, error) {
	if a.Client.Token() == "" {
		return Identity{}, ErrNotLoggedIn
	}
	claims, err := a.Client.Claims()
	if err != nil {
		return Identity{}, err
	}

	id := Identity{Email: claims.Email}
	id.ProfileID, _ = a.Store.Get(credstore.KeyProfileID)
	id.Username, _ = a.Store.Get(credstore.KeyUsername)
	if id.ProfileID != "" && id.Username != "" {
		return id, nil
	}

	profile, err := a.Client.CurrentUser(ctx)
	if err != nil {
		return Identity{}, err
	}
	if err := a.rememberProfile(ctx, profile); err != nil {
		return Identity{}, err
	}
	return Identity{ProfileID: profile.ID.String(), Username: profile.Username, Email: profile.Email}, nil
}

// SaveSession stores the login result and the account's profile.
func (a *App) SaveSession(ctx context.Context, res api.LoginResult, profile model.Profile) error {
	if err := a.Store.Set(credstore.KeyAuthToken, res.Token); err != nil {
		return err
	}
	if res.PrivateKey != "" {
		if err := a.Store.Set(credstore.KeyPrivateKey, res.PrivateKey); err != nil {
			return err
		}
	}
	return a.rememberProfile(ctx, profile)
}

func (a *App) rememberProfile(ctx context.Context, profile model.Profile) error {
	if err := a.Store.Set(credstore.KeyProfileID, profile.ID.String()); err != nil {
		return err
	}
	if err := a.Store.Set(credstore.KeyUsername, profile.Username); err != nil {
		return err
	}
	return a.Store.Save(ctx)
}

// ClearSession forgets every stored credential.
func (a *App) ClearSession(ctx context.Context) error {
	for _, key := range []string{credstore.KeyAuthToken, credstore.KeyPrivateKey, credstore.KeyProfileID, credstore.KeyUsername} {
		if err := a.Store.Delete(key); err != nil {
			return err
		}
	}
	a.Client.SetToken("")
	return a.Store.Save(ctx)
}

// =============================================================================
// CONVERSATION WIRING
// =============================================================================

// Target is a resolved conversation with a friend.
type Target struct {
	model.ConnectionInfo
	Me   Identity
	Peer model.Profile
}

// ResolveTarget finds the conversation between the logged-in account and
// peer.
func (a *App) ResolveTarget(ctx context.Context, peer string) (Target, error) {
	peer = strings.TrimPrefix(strings.TrimSpace(peer), "@")
	if peer == "" {
		return Target{}, ErrMissingArgument("friend", "ztachat chat bob")
	}
	me, err := a.Identity(ctx)
	if err != nil {
		return Target{}, err
	}
	conv, err := a.Client.Conversation(ctx, me.Username, peer)
	if err != nil {
		return Target{}, fmt.Errorf("no conversation with %s: %w", peer, err)
	}
	return Target{
		ConnectionInfo: model.ConnectionInfo{
			ConversationID: conv.ID.String(),
			ParticipantID:  me.ProfileID,
		},
		Me:   me,
		Peer: conv.Peer(me.ProfileID),
	}, nil
}

// NewManager builds a session manager that presents the session token on
// the websocket upgrade.
func (a *App) NewManager() *session.Manager {
	dialer := session.NewWSDialer(a.Config)
	if token := a.Client.Token(); token != "" {
		dialer = dialer.WithHeader("Authorization", "Bearer "+token)
	}
	return session.NewManager(a.Config, dialer, a.Log.Named("session"))
}

// NewReconciler builds a reconciler that fetches history through the client.
func (a *App) NewReconciler() *reconcile.Reconciler {
	return reconcile.New(a.Client,
		reconcile.WithDedupWindow(a.Config.Reconcile.DedupWindow.D()),
		reconcile.WithLogger(a.Log.Named("reconcile")),
	)
}
