// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-TUI commands of
// ztachat.
//
// # Key Types
//
//   - Command: Enumeration of the available commands
//   - Args: Parsed arguments with global and command-specific flags
//   - App: Configuration, logger, credential store and API client shared by
//     commands that talk to the backend
//   - Prompter: Reads answers (and passwords) from the user
//
// # Usage
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdLogin:
//	    app, err := cli.OpenApp(ctx, args)
//	    ...
//	    err = cli.HandleLogin(ctx, app, args)
//	}
//	cli.DisplayError(cmd.String(), err, args.JSON)
//	os.Exit(cli.GetExitCode(err))
//
// # Commands
//
//   - login, logout, whoami: OTP + password login and the stored session
//   - friends: Friends, user search and friend requests
//   - chat: Line-mode chat with one friend
//   - config: Show and edit config.toml
//   - serve-dev: Local fake backend for development
//
// Commands that print data accept --json and wrap their output in a
// JSONResponse.
package cli
