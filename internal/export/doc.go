// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a conversation transcript to a file.
//
// # Key Types
//
//   - Transcript: The messages of one conversation and who took part
//   - Exporter: Renders a transcript in one format
//   - Options: Output directory and what to include
//
// # Supported Formats
//
//   - Markdown: Human-readable, one heading per message
//   - JSON: Machine-readable, the transcript as stored
//
// # Usage
//
//	exp, err := export.ForFormat("md", opts)
//	path, err := export.ToFile(transcript, exp, opts)
package export
