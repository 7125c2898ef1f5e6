// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the ztachat TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection. The theme can also be forced with the ui.theme config key.

# Color System (colors.go)

  - Cyan - Brand color, prompts and the local user's name
  - Purple - Peer names and selections
  - Emerald - Open channel
  - Amber - Connecting, history loading
  - Rose - Errors

Own and peer messages use their own bubble tokens (OwnBubbleFg,
PeerBubbleFg). Every status also carries an ASCII indicator so it never
depends on color alone.

# Theme System (theme.go)

	theme := styles.NewTheme(cfg.UI.Theme)
	theme.SetSize(width, height)
	bar := theme.StateStyle(mgr.State().String()).Render("open")

# Animations (animations.go)

DotsSpinner converts to a bubbles spinner with Bubbles().
StateIndicator labels connection states in the status bar.
*/
package styles
