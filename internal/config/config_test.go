// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// isolate points the config dir at a temp dir and clears ZTACHAT_* overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ZTACHAT_HOME", dir)
	for _, k := range []string{
		"ZTACHAT_AUTH_URL", "ZTACHAT_USER_URL", "ZTACHAT_CHAT_URL", "ZTACHAT_LOG_LEVEL",
		"ZTACHAT_STORE_BACKEND", "ZTACHAT_STORE_DIR", "ZTACHAT_THEME", "ZTACHAT_STORE_PASSPHRASE",
	} {
		t.Setenv(k, "")
	}
	return dir
}

// =============================================================================
// DEFAULTS AND VALIDATION TESTS
// =============================================================================

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	require.Equal(t, "ws://localhost:8080/ws", cfg.Server.ChatURL)
	require.Equal(t, time.Second, cfg.Reconcile.DedupWindow.D())
	require.Equal(t, "store.json", cfg.Store.Name)
	require.Equal(t, "file", cfg.Store.Backend)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		field   string
		wantErr bool
	}{
		{"valid default config", func(c *Config) {}, "", false},
		{"chat url with http scheme", func(c *Config) { c.Server.ChatURL = "http://x/ws" }, "server.chat_url", true},
		{"auth url without host", func(c *Config) { c.Server.AuthURL = "http://" }, "server.auth_url", true},
		{"empty user url", func(c *Config) { c.Server.UserURL = "" }, "server.user_url", true},
		{"negative retries", func(c *Config) { c.Server.MaxRetries = -1 }, "server.max_retries", true},
		{"zero burst", func(c *Config) { c.Server.Burst = 0 }, "server.burst", true},
		{"tiny frame limit", func(c *Config) { c.Session.MaxMessageSize = 10 }, "session.max_message_size", true},
		{"zero pong wait", func(c *Config) { c.Session.PongWait = 0 }, "session.pong_wait", true},
		{"dedup window too large", func(c *Config) { c.Reconcile.DedupWindow = Duration(time.Hour) }, "reconcile.dedup_window", true},
		{"store name is a path", func(c *Config) { c.Store.Name = "../store.json" }, "store.name", true},
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }, "store.backend", true},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }, "log.level", true},
		{"invalid theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme", true},
		{"wss chat url", func(c *Config) { c.Server.ChatURL = "wss://chat.example/ws" }, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			require.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := Default()
	cfg.UI.Theme = "neon"
	cfg.Store.Backend = "redis"

	var verrs ValidateErrors
	require.True(t, errors.As(cfg.Validate(), &verrs))
	require.Len(t, verrs, 2)
	require.Contains(t, verrs.Error(), "; ")
}

func TestConfig_Migrate(t *testing.T) {
	cfg := Default()
	cfg.Server.ChatURL = "https://chat.example/ws"
	cfg.Store.Backend = "json"
	cfg.Log.Level = "DEBUG"
	cfg.Version = ""

	require.NoError(t, cfg.Migrate())
	require.Equal(t, "wss://chat.example/ws", cfg.Server.ChatURL)
	require.Equal(t, "file", cfg.Store.Backend)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, CurrentVersion, cfg.Version)
}

// =============================================================================
// LOAD / SAVE TESTS
// =============================================================================

func TestLoad_DefaultsWithoutFiles(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Default().Server, cfg.Server)
}

func TestLoad_TOMLPartialFile(t *testing.T) {
	dir := isolate(t)

	body := `
[server]
chat_url = "ws://10.0.0.5:8080/ws"

[reconcile]
dedup_window = "1500ms"

[session]
pong_wait = 30
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(body), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "ws://10.0.0.5:8080/ws", cfg.Server.ChatURL)
	require.Equal(t, 1500*time.Millisecond, cfg.Reconcile.DedupWindow.D())
	require.Equal(t, 30*time.Second, cfg.Session.PongWait.D(), "bare integers are seconds")
	require.Equal(t, Default().Server.AuthURL, cfg.Server.AuthURL, "missing keys keep defaults")

	info, err := os.Stat(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	if info.Mode().Perm() != 0600 {
		t.Errorf("config.toml mode = %o, want 600", info.Mode().Perm())
	}
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)

	body := `{"ui": {"theme": "light", "compact": true}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "light", cfg.UI.Theme)
	require.True(t, cfg.UI.Compact)
}

func TestLoad_BrokenFileFallsBackToDefaults(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[server\n"), 0600))

	cfg, err := Load()
	require.Error(t, err)
	require.NotNil(t, cfg)
	require.Equal(t, Default().Server.ChatURL, cfg.Server.ChatURL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[ui]\ntheme = \"dark\"\n"), 0600))
	t.Setenv("ZTACHAT_THEME", "light")
	t.Setenv("ZTACHAT_STORE_BACKEND", "sqlite")
	t.Setenv("ZTACHAT_STORE_PASSPHRASE", "hunter2")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "light", cfg.UI.Theme)
	require.Equal(t, "sqlite", cfg.Store.Backend)
	require.Equal(t, "hunter2", cfg.Store.Passphrase)
	require.NotContains(t, cfg.String(), "hunter2")
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.Unsetenv("ZTACHAT_USER_URL"))
	t.Cleanup(func() { os.Unsetenv("ZTACHAT_USER_URL") })

	env := "ZTACHAT_USER_URL=http://users.internal:8001/v1/u\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://users.internal:8001/v1/u", cfg.Server.UserURL)
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Server.ChatURL = "wss://chat.example/ws"
	cfg.Session.WriteWait = Duration(3 * time.Second)
	cfg.Store.Passphrase = "never-written"
	require.NoError(t, SaveTOML(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "never-written")
	require.Contains(t, string(data), `write_wait = "3s"`)

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "wss://chat.example/ws", loaded.Server.ChatURL)
	require.Equal(t, 3*time.Second, loaded.Session.WriteWait.D())
}

// =============================================================================
// GET/SET TESTS
// =============================================================================

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	val, err := cfg.Get("server.chat_url")
	require.NoError(t, err)
	require.Equal(t, "ws://localhost:8080/ws", val)

	require.NoError(t, cfg.Set("ui.theme", "dark"))
	require.Equal(t, "dark", cfg.UI.Theme)

	require.NoError(t, cfg.Set("reconcile.dedup_window", "2s"))
	require.Equal(t, 2*time.Second, cfg.Reconcile.DedupWindow.D())

	require.NoError(t, cfg.Set("server.max_retries", "4"))
	require.Equal(t, 4, cfg.Server.MaxRetries)

	require.NoError(t, cfg.Set("ui.compact", "yes"))
	require.True(t, cfg.UI.Compact)

	require.Error(t, cfg.Set("ui.compact", "maybe"))
	require.Error(t, cfg.Set("server.max_retries", "many"))

	_, err = cfg.Get("invalid.key")
	require.Error(t, err)
	_, err = cfg.Get("server")
	require.Error(t, err, "sections are not values")
	_, err = cfg.Get("store.passphrase")
	require.Error(t, err, "passphrase is not addressable")
}

func TestGetAllKeys(t *testing.T) {
	keys := GetAllKeys()
	require.Contains(t, keys, "version")
	require.Contains(t, keys, "server.chat_url")
	require.Contains(t, keys, "reconcile.dedup_window")
	require.NotContains(t, keys, "store.passphrase")

	cfg := Default()
	for _, k := range keys {
		_, err := cfg.Get(k)
		require.NoError(t, err, "key %s", k)
	}
}

// =============================================================================
// WATCH TESTS
// =============================================================================

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, func(cfg *Config, err error) {
			if err == nil {
				got <- cfg
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	cfg := Default()
	cfg.UI.Theme = "light"
	require.NoError(t, SaveTOML(cfg, path))

	select {
	case c := <-got:
		require.Equal(t, "light", c.UI.Theme)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
