// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/ztachat-tui/internal/util"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = "1"

// =============================================================================
// DURATION
// =============================================================================

// Duration is a time.Duration that reads and writes as "10s", "1m30s".
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// String formats the duration the way time.Duration does.
func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. A bare integer is
// read as seconds.
func (d *Duration) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		*d = 0
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ztachat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Backend endpoints and HTTP client behaviour
	Server ServerConfig `toml:"server" json:"server"`

	// Real-time channel tuning
	Session SessionConfig `toml:"session" json:"session"`

	// History/live merge tuning
	Reconcile ReconcileConfig `toml:"reconcile" json:"reconcile"`

	// Credential store
	Store StoreConfig `toml:"store" json:"store"`

	// Logging
	Log LogConfig `toml:"log" json:"log"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// ServerConfig holds the service endpoints.
type ServerConfig struct {
	// AuthURL is the auth service base, e.g. http://localhost:8000/v1/auth
	AuthURL string `toml:"auth_url" json:"auth_url"`

	// UserURL is the user service base, e.g. http://localhost:8001/v1/u
	UserURL string `toml:"user_url" json:"user_url"`

	// ChatURL is the websocket endpoint, e.g. ws://localhost:8080/ws
	ChatURL string `toml:"chat_url" json:"chat_url"`

	RequestTimeout    Duration `toml:"request_timeout" json:"request_timeout"`
	MaxRetries        int      `toml:"max_retries" json:"max_retries"`
	RequestsPerSecond float64  `toml:"requests_per_second" json:"requests_per_second"`
	Burst             int      `toml:"burst" json:"burst"`
}

// SessionConfig tunes the websocket channel.
type SessionConfig struct {
	HandshakeTimeout Duration `toml:"handshake_timeout" json:"handshake_timeout"`
	WriteWait        Duration `toml:"write_wait" json:"write_wait"`
	PongWait         Duration `toml:"pong_wait" json:"pong_wait"`

	// MaxMessageSize caps a single inbound frame in bytes.
	MaxMessageSize int64 `toml:"max_message_size" json:"max_message_size"`
}

// ReconcileConfig tunes the message reconciler.
type ReconcileConfig struct {
	// DedupWindow is how close two identical messages from the same sender
	// must be to count as one.
	DedupWindow Duration `toml:"dedup_window" json:"dedup_window"`
}

// StoreConfig selects the credential store.
type StoreConfig struct {
	Name    string `toml:"name" json:"name"`
	Backend string `toml:"backend" json:"backend"` // "file" or "sqlite"
	Dir     string `toml:"dir" json:"dir"`         // empty = config dir

	// Passphrase seals stored values. Only read from the environment.
	Passphrase string `toml:"-" json:"-"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	File  string `toml:"file" json:"file"` // empty = <config dir>/logs/ztachat.log
}

// UIConfig contains user interface settings.
type UIConfig struct {
	Theme          string `toml:"theme" json:"theme"` // "dark", "light", "auto"
	ShowTimestamps bool   `toml:"show_timestamps" json:"show_timestamps"`
	Compact        bool   `toml:"compact" json:"compact"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a new Config with default values. The endpoints match the
// backend's default ports.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Server: ServerConfig{
			AuthURL:           "http://localhost:8000/v1/auth",
			UserURL:           "http://localhost:8001/v1/u",
			ChatURL:           "ws://localhost:8080/ws",
			RequestTimeout:    Duration(15 * time.Second),
			MaxRetries:        2,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Session: SessionConfig{
			HandshakeTimeout: Duration(10 * time.Second),
			WriteWait:        Duration(10 * time.Second),
			PongWait:         Duration(60 * time.Second),
			MaxMessageSize:   64 * 1024,
		},
		Reconcile: ReconcileConfig{
			DedupWindow: Duration(time.Second),
		},
		Store: StoreConfig{
			Name:    "store.json",
			Backend: "file",
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			Theme:          "auto",
			ShowTimestamps: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the ztachat configuration directory. ZTACHAT_HOME
// overrides the default ~/.ztachat.
func ConfigDir() (string, error) {
	if dir := os.Getenv("ZTACHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ztachat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// StoreDir returns the directory holding the credential store.
func (c *Config) StoreDir() (string, error) {
	if c.Store.Dir != "" {
		return c.Store.Dir, nil
	}
	return ConfigDir()
}

// LogFile returns the log file path.
func (c *Config) LogFile() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs", "ztachat.log"), nil
}

// ensureSecurePermissions tightens a config file to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults. .env files and
// environment overrides are applied last. A file that exists but fails to
// parse is reported alongside the defaults.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	loaded := false
	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
				cfg = Default()
			} else {
				loaded = true
			}
		}
	}

	if !loaded {
		if jsonPath, err := ConfigPathJSON(); err == nil {
			if _, statErr := os.Stat(jsonPath); statErr == nil {
				if err := LoadJSON(cfg, jsonPath); err != nil {
					loadErr = errors.Join(loadErr, fmt.Errorf("failed to load JSON config: %w", err))
					cfg = Default()
				}
			}
		}
	}

	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finish runs the post-decode pipeline shared by every loader.
func finish(cfg *Config) error {
	LoadDotEnv()
	cfg.ApplyEnvOverrides()
	if err := cfg.Migrate(); err != nil {
		return fmt.Errorf("config migration failed: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadDotEnv reads .env from the config directory and the working directory
// into the process environment. Variables already set are left alone.
func LoadDotEnv() {
	var files []string
	if dir, err := ConfigDir(); err == nil {
		files = append(files, filepath.Join(dir, ".env"))
	}
	files = append(files, ".env")

	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not read %s: %v\n", f, err)
		}
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# ztachat configuration file\n")
	b.WriteString("# Generated by ztachat - edit with care\n\n")
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFileWithDir(path, []byte(b.String()), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validBackends = map[string]bool{"file": true, "sqlite": true}
	validLevels   = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	validThemes   = map[string]bool{"dark": true, "light": true, "auto": true}
)

// Validate checks every section and returns all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	// Server
	if msg := checkURL(c.Server.AuthURL, "http", "https"); msg != "" {
		add("server.auth_url", msg)
	}
	if msg := checkURL(c.Server.UserURL, "http", "https"); msg != "" {
		add("server.user_url", msg)
	}
	if msg := checkURL(c.Server.ChatURL, "ws", "wss"); msg != "" {
		add("server.chat_url", msg)
	}
	if c.Server.RequestTimeout <= 0 {
		add("server.request_timeout", "must be positive")
	}
	if c.Server.MaxRetries < 0 || c.Server.MaxRetries > 10 {
		add("server.max_retries", fmt.Sprintf("must be between 0 and 10 (got %d)", c.Server.MaxRetries))
	}
	if c.Server.RequestsPerSecond <= 0 {
		add("server.requests_per_second", "must be positive")
	}
	if c.Server.Burst < 1 {
		add("server.burst", "must be at least 1")
	}

	// Session
	if c.Session.HandshakeTimeout <= 0 {
		add("session.handshake_timeout", "must be positive")
	}
	if c.Session.WriteWait <= 0 {
		add("session.write_wait", "must be positive")
	}
	if c.Session.PongWait <= 0 {
		add("session.pong_wait", "must be positive")
	}
	if c.Session.MaxMessageSize < 1024 {
		add("session.max_message_size", fmt.Sprintf("must be at least 1024 bytes (got %d)", c.Session.MaxMessageSize))
	}

	// Reconcile
	if c.Reconcile.DedupWindow <= 0 || c.Reconcile.DedupWindow.D() > time.Minute {
		add("reconcile.dedup_window", fmt.Sprintf("must be between 0 and 1m (got %s)", c.Reconcile.DedupWindow))
	}

	// Store
	if c.Store.Name == "" {
		add("store.name", "must not be empty")
	} else if strings.ContainsAny(c.Store.Name, `/\`) || c.Store.Name == "." || c.Store.Name == ".." {
		add("store.name", "must be a file name, not a path")
	}
	if !validBackends[c.Store.Backend] {
		add("store.backend", fmt.Sprintf("must be file or sqlite (got %q)", c.Store.Backend))
	}

	// Log
	if !validLevels[strings.ToLower(c.Log.Level)] {
		add("log.level", fmt.Sprintf("unknown level %q", c.Log.Level))
	}

	// UI
	if !validThemes[c.UI.Theme] {
		add("ui.theme", fmt.Sprintf("must be dark, light or auto (got %q)", c.UI.Theme))
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func checkURL(raw string, schemes ...string) string {
	if raw == "" {
		return "must not be empty"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid URL: %v", err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" {
				return "missing host"
			}
			return ""
		}
	}
	return fmt.Sprintf("scheme must be %s (got %q)", strings.Join(schemes, " or "), u.Scheme)
}

// SetDefaults fills zero values left by a partial config file.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Server.AuthURL == "" {
		c.Server.AuthURL = d.Server.AuthURL
	}
	if c.Server.UserURL == "" {
		c.Server.UserURL = d.Server.UserURL
	}
	if c.Server.ChatURL == "" {
		c.Server.ChatURL = d.Server.ChatURL
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = d.Server.RequestTimeout
	}
	if c.Server.RequestsPerSecond == 0 {
		c.Server.RequestsPerSecond = d.Server.RequestsPerSecond
	}
	if c.Server.Burst == 0 {
		c.Server.Burst = d.Server.Burst
	}
	if c.Session.HandshakeTimeout == 0 {
		c.Session.HandshakeTimeout = d.Session.HandshakeTimeout
	}
	if c.Session.WriteWait == 0 {
		c.Session.WriteWait = d.Session.WriteWait
	}
	if c.Session.PongWait == 0 {
		c.Session.PongWait = d.Session.PongWait
	}
	if c.Session.MaxMessageSize == 0 {
		c.Session.MaxMessageSize = d.Session.MaxMessageSize
	}
	if c.Reconcile.DedupWindow == 0 {
		c.Reconcile.DedupWindow = d.Reconcile.DedupWindow
	}
	if c.Store.Name == "" {
		c.Store.Name = d.Store.Name
	}
	if c.Store.Backend == "" {
		c.Store.Backend = d.Store.Backend
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
}

// Migrate rewrites older spellings into the current schema.
func (c *Config) Migrate() error {
	// The chat endpoint used to be written with an http scheme.
	if u, err := url.Parse(c.Server.ChatURL); err == nil {
		switch u.Scheme {
		case "http":
			u.Scheme = "ws"
			c.Server.ChatURL = u.String()
		case "https":
			u.Scheme = "wss"
			c.Server.ChatURL = u.String()
		}
	}

	switch strings.ToLower(c.Store.Backend) {
	case "json", "localstorage":
		c.Store.Backend = "file"
	case "sqlite3", "db":
		c.Store.Backend = "sqlite"
	}

	c.Log.Level = strings.ToLower(c.Log.Level)
	c.UI.Theme = strings.ToLower(c.UI.Theme)

	if c.Version == "" || c.Version == "0" {
		c.Version = CurrentVersion
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - ZTACHAT_AUTH_URL: overrides server.auth_url
//   - ZTACHAT_USER_URL: overrides server.user_url
//   - ZTACHAT_CHAT_URL: overrides server.chat_url
//   - ZTACHAT_LOG_LEVEL: overrides log.level
//   - ZTACHAT_STORE_BACKEND: overrides store.backend
//   - ZTACHAT_STORE_DIR: overrides store.dir
//   - ZTACHAT_THEME: overrides ui.theme
//   - ZTACHAT_STORE_PASSPHRASE: sets the store passphrase (never written to disk)
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("ZTACHAT_AUTH_URL"); v != "" {
		c.Server.AuthURL = v
	}
	if v := os.Getenv("ZTACHAT_USER_URL"); v != "" {
		c.Server.UserURL = v
	}
	if v := os.Getenv("ZTACHAT_CHAT_URL"); v != "" {
		c.Server.ChatURL = v
	}
	if v := os.Getenv("ZTACHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("ZTACHAT_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("ZTACHAT_STORE_DIR"); v != "" {
		c.Store.Dir = v
	}
	if v := os.Getenv("ZTACHAT_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("ZTACHAT_STORE_PASSPHRASE"); v != "" {
		c.Store.Passphrase = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "server.chat_url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "ui.theme").
// String values are converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() || isHidden(v.Type(), fieldName) {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section, not a value", key)
			}
			return field, nil
		}

		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// isHidden reports fields that are excluded from the file format.
func isHidden(t reflect.Type, fieldName string) bool {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if strings.EqualFold(f.Name, fieldName) {
			return f.Tag.Get("toml") == "-"
		}
	}
	return false
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		if u, ok := field.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return u.UnmarshalText([]byte(strVal))
		}
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal, err := parseBool(strVal)
			if err != nil {
				return err
			}
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return errors.New("cannot assign nil")
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value: %q", s)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all settable configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := tagName(f)
		if name == "" {
			continue
		}
		if f.Type.Kind() != reflect.Struct || f.Type == reflect.TypeOf(Duration(0)) {
			keys = append(keys, name)
			continue
		}
		for j := 0; j < f.Type.NumField(); j++ {
			if sub := tagName(f.Type.Field(j)); sub != "" {
				keys = append(keys, name+"."+sub)
			}
		}
	}
	return keys
}

func tagName(f reflect.StructField) string {
	tag := f.Tag.Get("toml")
	if tag == "-" {
		return ""
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return strings.ToLower(f.Name)
}

// Clone returns a copy of the config. Config holds only value types.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a JSON rendering for debugging with secrets removed.
func (c *Config) String() string {
	safe := c.Clone()
	safe.Store.Passphrase = ""
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
