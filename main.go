// ztachat - terminal client for ztaChat.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/ztachat-tui/internal/cli"
	"github.com/jeranaias/ztachat-tui/internal/config"
	"github.com/jeranaias/ztachat-tui/internal/logger"
	"github.com/jeranaias/ztachat-tui/internal/ui/chat"
	"github.com/jeranaias/ztachat-tui/internal/ui/picker"
	"github.com/jeranaias/ztachat-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cmd, args)
	stop()
	logger.Sync()

	if err != nil {
		cli.DisplayError(cmd.String(), err, args.JSON)
		os.Exit(cli.GetExitCode(err))
	}
}

func run(ctx context.Context, cmd cli.Command, args cli.Args) error {
	// Commands that need neither the backend nor the credential store.
	switch cmd {
	case cli.CmdVersion:
		cli.HandleVersion(args)
		return nil
	case cli.CmdHelp:
		cli.HandleHelp()
		return nil
	case cli.CmdUnknown:
		return cli.HandleUnknown(args)
	case cli.CmdConfig:
		cfg, err := config.Load()
		if cfg == nil {
			return err
		}
		if err != nil && args.Subcommand != "set" {
			fmt.Fprintln(os.Stderr, styles.RenderWarning(err.Error()))
		}
		return cli.HandleConfig(cfg, args, os.Stdout, config.Save)
	case cli.CmdServeDev:
		if err := logger.Init(logger.Options{Level: "info", Stderr: true, Color: cli.ColorsEnabled()}); err != nil {
			return err
		}
		return cli.HandleServeDev(ctx, args, logger.L(), os.Stdout)
	}

	if cmd == cli.CmdTUI {
		// stderr belongs to the alt screen
		args.Verbose = false
	}
	app, err := cli.OpenApp(ctx, args)
	if err != nil {
		return err
	}
	defer app.Close()

	switch cmd {
	case cli.CmdLogin:
		return cli.HandleLogin(ctx, app, args)
	case cli.CmdLogout:
		return cli.HandleLogout(ctx, app, args)
	case cli.CmdWhoami:
		return cli.HandleWhoami(ctx, app, args)
	case cli.CmdFriends:
		return cli.HandleFriends(ctx, app, args)
	case cli.CmdChat:
		return cli.HandleChat(ctx, app, args)
	case cli.CmdExport:
		return cli.HandleExport(ctx, app, args)
	default:
		return runTUI(ctx, app, args)
	}
}

// runTUI opens the conversation with args.Peer full screen. Without a peer
// the friend picker runs first.
func runTUI(ctx context.Context, app *cli.App, args cli.Args) error {
	if !cli.IsStdoutTTY() {
		return &cli.TTYRequiredError{Operation: "run the TUI (try: ztachat chat FRIEND)"}
	}
	theme := styles.NewTheme(app.Config.UI.Theme)

	if args.Peer == "" {
		peer, err := pickFriend(ctx, app, theme)
		if err != nil || peer == "" {
			return err
		}
		args.Peer = peer
	}

	target, err := app.ResolveTarget(ctx, args.Peer)
	if err != nil {
		return cli.NewCommandError("tui", "", err)
	}

	m := chat.New(chat.Options{
		Manager:        app.NewManager(),
		Reconciler:     app.NewReconciler(),
		Theme:          styles.NewTheme(app.Config.UI.Theme),
		Target:         target.ConnectionInfo,
		LocalName:      target.Me.Username,
		PeerName:       target.Peer.Username,
		ShowTimestamps: app.Config.UI.ShowTimestamps,
		Timeout:        app.Config.Server.RequestTimeout.D(),
		Log:            app.Log.Named("tui"),
	})
	defer m.Close()

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go watchSettings(watchCtx, app, p)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return cli.NewCommandError("tui", "", err)
	}
	return nil
}

// watchSettings sends theme and timestamp changes from the config file to
// the running view.
func watchSettings(ctx context.Context, app *cli.App, p *tea.Program) {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return
	}
	log := app.Log.Named("config")
	err = config.Watch(ctx, path, config.DefaultWatchDebounce, func(cfg *config.Config, err error) {
		if err != nil {
			log.Warn("config reload failed", zap.Error(err))
			return
		}
		log.Info("config reloaded", zap.String("theme", cfg.UI.Theme))
		p.Send(chat.SettingsMsg{
			Theme:          styles.NewTheme(cfg.UI.Theme),
			ShowTimestamps: cfg.UI.ShowTimestamps,
		})
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Debug("config watch stopped", zap.Error(err))
	}
}

// pickFriend lets the user choose a friend. An empty name means the picker
// was dismissed.
func pickFriend(ctx context.Context, app *cli.App, theme *styles.Theme) (string, error) {
	me, err := app.Identity(ctx)
	if err != nil {
		return "", cli.NewCommandError("tui", "", err)
	}
	friends, err := app.Client.Friends(ctx, me.Username)
	if err != nil {
		return "", cli.NewCommandError("tui", "friends", err)
	}
	if len(friends) == 0 {
		return "", cli.ErrMissingArgument("friend", "ztachat friends request USER")
	}

	p := tea.NewProgram(picker.New(friends, theme),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return "", nil
		}
		return "", cli.NewCommandError("tui", "picker", err)
	}
	chosen, ok := final.(picker.Model).Chosen()
	if !ok {
		return "", nil
	}
	return chosen.Username, nil
}
