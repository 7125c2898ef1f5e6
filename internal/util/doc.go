// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across ztachat.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync and rename
//   - AtomicWriteFileWithDir: same, with an explicit parent directory mode
//
// Display Width:
//   - StringWidth, TruncateWidth, PadRight: column-aware string helpers
//   - WrapWidth: word wrapping by terminal columns
//
// # Usage
//
//	// Persist a credential file without ever leaving a half-written copy
//	err := util.AtomicWriteFileWithDir(path, data, 0600, 0700)
//
//	// Fit a username into a fixed-width column
//	cell := util.PadRight(name, 16)
package util
