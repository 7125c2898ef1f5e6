// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logger provides structured logging for ztachat on top of zap.
//
// The terminal UI owns stdout, so log output goes to a file under the
// config directory by default. Line mode can mirror entries to stderr.
//
// # Key Types
//
//   - Options: level, file path and stderr mirroring
//
// # Usage
//
//	if err := logger.Init(logger.Options{Level: "debug", File: path}); err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	log := logger.Named("session")
//	log.Info("channel open", zap.String("conversation_id", id))
package logger
