// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for ztachat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// .env files, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServerConfig: Auth, user and chat service endpoints
//   - SessionConfig: Websocket keepalive and frame limits
//   - Duration: time.Duration that reads and writes as "10s"
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (ZTACHAT_*)
//   - .env in the config directory or working directory
//   - ~/.ztachat/config.toml
//   - ~/.ztachat/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	wsURL := cfg.Server.ChatURL
//	window := cfg.Reconcile.DedupWindow.D()
package config
