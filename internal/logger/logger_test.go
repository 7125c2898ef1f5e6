// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"DEBUG", zapcore.DebugLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestInit_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ztachat.log")

	require.NoError(t, Init(Options{Level: "debug", File: path}))
	Named("session").Info("channel open", zap.String("conversation_id", "42"))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	require.True(t, strings.Contains(line, "channel open"), "log line missing message: %q", line)
	require.True(t, strings.Contains(line, "session"), "log line missing logger name: %q", line)
	require.True(t, strings.Contains(line, "conversation_id"), "log line missing field: %q", line)
}

func TestInit_RejectsBadLevel(t *testing.T) {
	err := Init(Options{Level: "loud"})
	require.Error(t, err)
}

func TestSet_ObserverCore(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	Warn("frame rejected", zap.String("reason", "no sender"))
	Debug("dropped below level")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "frame rejected", entries[0].Message)
	require.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestL_NeverNil(t *testing.T) {
	Set(nil)
	require.NotNil(t, L())
	require.NotPanics(t, func() { Info("discarded") })
}
