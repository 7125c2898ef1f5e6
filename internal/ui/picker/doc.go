// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package picker provides the friend picker shown when the TUI starts
// without a friend name.
//
// # Key Types
//
//   - Model: Bubble Tea model; Chosen reports the selection after Run
//   - Match: A friend and its fuzzy score
//
// # Usage
//
//	m, err := tea.NewProgram(picker.New(friends, theme), tea.WithAltScreen()).Run()
//	if p, ok := m.(picker.Model).Chosen(); ok {
//	    // open the conversation with p.Username
//	}
package picker
