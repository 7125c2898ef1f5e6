// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ztachat-tui/internal/config"
)

func TestMain(m *testing.M) {
	kdfIterations = 1000
	os.Exit(m.Run())
}

var backends = []string{BackendFile, BackendSQLite}

func open(t *testing.T, dir, backend, pass string) *Store {
	t.Helper()
	s, err := Open(context.Background(), "store.json", WithDir(dir), WithBackend(backend), WithPassphrase(pass))
	require.NoError(t, err)
	return s
}

// =============================================================================
// ROUND TRIP
// =============================================================================

func TestStore_RoundTrip(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()

			s := open(t, dir, backend, "secret")
			require.NoError(t, s.Set(KeyAuthToken, "tok-123"))
			require.NoError(t, s.Set(KeyUsername, "alice"))
			require.NoError(t, s.Set(KeyProfileID, "42"))
			require.NoError(t, s.Delete(KeyProfileID))
			require.NoError(t, s.Close())
			require.NoError(t, s.Close(), "second close is a no-op")

			s = open(t, dir, backend, "secret")
			defer s.Close()

			got, err := s.Get(KeyAuthToken)
			require.NoError(t, err)
			require.Equal(t, "tok-123", got)
			require.Equal(t, []string{KeyAuthToken, KeyUsername}, s.Keys())

			_, err = s.Get(KeyProfileID)
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_WrongPassphrase(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			s := open(t, dir, backend, "right")
			require.NoError(t, s.Set(KeyAuthToken, "tok"))
			require.NoError(t, s.Close())

			_, err := Open(context.Background(), "store.json",
				WithDir(dir), WithBackend(backend), WithPassphrase("wrong"))
			require.ErrorIs(t, err, ErrDecrypt)
		})
	}
}

func TestStore_ValuesSealedAtRest(t *testing.T) {
	dir := t.TempDir()
	s := open(t, dir, BackendFile, "secret")
	require.NoError(t, s.Set(KeyAuthToken, "very-recognisable-token"))
	require.NoError(t, s.Save(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "store.json"))
	require.NoError(t, err)
	require.NotContains(t, string(data), "very-recognisable-token")
	require.Contains(t, string(data), KeyAuthToken, "keys stay readable")

	info, err := os.Stat(filepath.Join(dir, "store.json"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
	require.NoError(t, s.Close())
}

func TestStore_SealedValueBoundToKey(t *testing.T) {
	dir := t.TempDir()
	s := open(t, dir, BackendFile, "secret")
	defer s.Close()

	require.NoError(t, s.Set("a", "one"))
	s.mu.Lock()
	s.entries["b"] = s.entries["a"]
	s.mu.Unlock()

	_, err := s.Get("b")
	require.ErrorIs(t, err, ErrDecrypt)
}

func TestStore_Closed(t *testing.T) {
	s := open(t, t.TempDir(), BackendFile, "secret")
	require.NoError(t, s.Close())

	_, err := s.Get(KeyAuthToken)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, s.Set(KeyAuthToken, "x"), ErrClosed)
	require.ErrorIs(t, s.Delete(KeyAuthToken), ErrClosed)
	require.ErrorIs(t, s.Save(context.Background()), ErrClosed)
}

func TestOpen_Validation(t *testing.T) {
	tests := []struct {
		name    string
		store   string
		backend string
		wantErr string
	}{
		{"path in name", "../escape.json", BackendFile, "invalid store name"},
		{"unknown backend", "store.json", "redis", "unknown backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.store, WithDir(t.TempDir()), WithBackend(tt.backend))
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q should mention %q", err, tt.wantErr)
		})
	}
}

func TestOpen_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "store.json"), []byte("{not json"), 0600))

	_, err := Open(context.Background(), "store.json", WithDir(dir), WithPassphrase("x"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "corrupt")
}

func TestFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Store.Dir = dir
	cfg.Store.Backend = BackendSQLite
	cfg.Store.Passphrase = "from-env"

	opts, err := FromConfig(cfg)
	require.NoError(t, err)

	s, err := Open(context.Background(), cfg.Store.Name, opts...)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "store.db"), s.Path())
	require.NoError(t, s.Close())
}

func TestSQLiteName(t *testing.T) {
	tests := map[string]string{
		"store.json": "store.db",
		"creds":      "creds.db",
		"a.b.json":   "a.b.db",
	}
	for in, want := range tests {
		if got := sqliteName(in); got != want {
			t.Errorf("sqliteName(%q) = %q, want %q", in, got, want)
		}
	}
}
