// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// =============================================================================
// SPINNER ANIMATIONS
// =============================================================================

// DotsSpinner - Classic three-dot animation, used while history loads
var DotsSpinner = SpinnerConfig{
	Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
	FPS:    6,
}

// SpinnerConfig holds the configuration for a spinner animation.
type SpinnerConfig struct {
	Frames []string
	FPS    int
}

// Duration returns the duration for each frame.
func (s SpinnerConfig) Duration() time.Duration {
	if s.FPS <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(s.FPS)
}

// Bubbles converts the config for a bubbles spinner model.
func (s SpinnerConfig) Bubbles() spinner.Spinner {
	return spinner.Spinner{Frames: s.Frames, FPS: s.Duration()}
}

// =============================================================================
// CONNECTION INDICATORS
// =============================================================================

// StateIndicators label each connection state (ASCII-only for compatibility).
// Keys are session.State names.
var StateIndicators = map[string]string{
	"idle":       "( )",
	"connecting": "(~)",
	"open":       "(+)",
	"closed":     "(-)",
	"errored":    "(!)",
}

// StateIndicator returns the indicator for a state name, "(?)" if unknown.
func StateIndicator(state string) string {
	if s, ok := StateIndicators[state]; ok {
		return s
	}
	return "(?)"
}
