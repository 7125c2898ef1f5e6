// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/ztachat-tui/internal/config"
)

// Keys the client stores.
const (
	KeyAuthToken  = "zta_auth_token"
	KeyPrivateKey = "zta_private_key"
	KeyProfileID  = "zta_profile_id"
	KeyUsername   = "zta_username"
)

// Backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// DefaultName is the store name used when none is configured.
const DefaultName = "store.json"

var (
	// ErrNotFound indicates the key has no value.
	ErrNotFound = errors.New("credstore: key not found")

	// ErrClosed indicates the store was used after Close.
	ErrClosed = errors.New("credstore: store closed")

	// ErrDecrypt indicates a value could not be opened, usually because the
	// passphrase differs from the one the store was written with.
	ErrDecrypt = errors.New("credstore: cannot decrypt value")
)

// =============================================================================
// BACKENDS
// =============================================================================

// document is what a backend persists. Values are sealed.
type document struct {
	Salt     []byte
	Verifier string
	Entries  map[string]string
}

// backend loads and saves one store document.
type backend interface {
	// load returns ok=false when nothing has been saved yet.
	load(ctx context.Context) (doc document, ok bool, err error)
	save(ctx context.Context, doc document) error
	close() error
	path() string
}

// =============================================================================
// OPTIONS
// =============================================================================

type options struct {
	dir        string
	backend    string
	passphrase string
	log        *zap.Logger
}

// Option configures Open.
type Option func(*options)

// WithDir sets the directory the store lives in.
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithBackend selects "file" or "sqlite".
func WithBackend(name string) Option {
	return func(o *options) { o.backend = name }
}

// WithPassphrase sets the sealing passphrase.
func WithPassphrase(p string) Option {
	return func(o *options) { o.passphrase = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// FromConfig maps the [store] section of cfg to options.
func FromConfig(cfg *config.Config) ([]Option, error) {
	dir, err := cfg.StoreDir()
	if err != nil {
		return nil, err
	}
	return []Option{
		WithDir(dir),
		WithBackend(cfg.Store.Backend),
		WithPassphrase(cfg.Store.Passphrase),
	}, nil
}

// =============================================================================
// STORE
// =============================================================================

// Store is a scoped key-value store for credentials. Values are kept in
// memory and persisted by Save or Close. It is safe for concurrent use.
type Store struct {
	name    string
	backend backend
	sealer  *sealer
	salt    []byte
	log     *zap.Logger

	mu      sync.Mutex
	entries map[string]string // key -> sealed value
	dirty   bool
	closed  bool
}

// Open opens the store called name, creating it on first use. A store
// written with a different passphrase fails with ErrDecrypt.
func Open(ctx context.Context, name string, opts ...Option) (*Store, error) {
	o := options{backend: BackendFile, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("credstore: invalid store name %q", name)
	}
	if o.dir == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return nil, err
		}
		o.dir = dir
	}
	if o.passphrase == "" {
		o.passphrase = DefaultPassphrase()
	}

	var (
		b   backend
		err error
	)
	switch o.backend {
	case "", BackendFile:
		b = newFileBackend(filepath.Join(o.dir, name))
	case BackendSQLite:
		b, err = openSQLite(ctx, filepath.Join(o.dir, sqliteName(name)))
	default:
		return nil, fmt.Errorf("credstore: unknown backend %q", o.backend)
	}
	if err != nil {
		return nil, err
	}

	s, err := newStore(ctx, name, b, o)
	if err != nil {
		b.close()
		return nil, err
	}
	return s, nil
}

func newStore(ctx context.Context, name string, b backend, o options) (*Store, error) {
	doc, ok, err := b.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("credstore: failed to load %s: %w", b.path(), err)
	}

	s := &Store{
		name:    name,
		backend: b,
		log:     o.log,
		entries: make(map[string]string),
	}

	if ok && len(doc.Salt) > 0 {
		s.salt = doc.Salt
		if s.sealer, err = newSealer(o.passphrase, s.salt); err != nil {
			return nil, err
		}
		if doc.Verifier != "" {
			if _, err := s.sealer.open("", doc.Verifier); err != nil {
				return nil, err
			}
		}
		for k, v := range doc.Entries {
			s.entries[k] = v
		}
		o.log.Debug("store opened", zap.String("path", b.path()), zap.Int("keys", len(s.entries)))
		return s, nil
	}

	if s.salt, err = newSalt(); err != nil {
		return nil, err
	}
	if s.sealer, err = newSealer(o.passphrase, s.salt); err != nil {
		return nil, err
	}
	s.dirty = true
	o.log.Debug("store created", zap.String("path", b.path()))
	return s, nil
}

// Name returns the store name.
func (s *Store) Name() string { return s.name }

// Path returns where the store is persisted.
func (s *Store) Path() string { return s.backend.path() }

// Get returns the value of key or ErrNotFound.
func (s *Store) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	sealed, ok := s.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	plain, err := s.sealer.open(key, sealed)
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return string(plain), nil
}

// Set stores value under key. An empty key is refused.
func (s *Store) Set(key, value string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("credstore: empty key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	sealed, err := s.sealer.seal(key, []byte(value))
	if err != nil {
		return err
	}
	s.entries[key] = sealed
	s.dirty = true
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.entries[key]; ok {
		delete(s.entries, key)
		s.dirty = true
	}
	return nil
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Save persists pending changes.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.saveLocked(ctx)
}

func (s *Store) saveLocked(ctx context.Context) error {
	if !s.dirty {
		return nil
	}
	verifier, err := s.sealer.seal("", []byte(verifierPlaintext))
	if err != nil {
		return err
	}
	doc := document{
		Salt:     s.salt,
		Verifier: verifier,
		Entries:  make(map[string]string, len(s.entries)),
	}
	for k, v := range s.entries {
		doc.Entries[k] = v
	}
	if err := s.backend.save(ctx, doc); err != nil {
		return fmt.Errorf("credstore: failed to save %s: %w", s.backend.path(), err)
	}
	s.dirty = false
	s.log.Debug("store saved", zap.String("path", s.backend.path()), zap.Int("keys", len(doc.Entries)))
	return nil
}

// Close saves pending changes and releases the backend. Calling Close again
// returns nil.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	saveErr := s.saveLocked(context.Background())
	s.closed = true
	closeErr := s.backend.close()
	if saveErr != nil {
		return saveErr
	}
	return closeErr
}

// sqliteName maps a store name to its database file name.
func sqliteName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".db"
}
