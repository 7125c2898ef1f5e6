// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"os/user"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the AES-256 key size in bytes.
	KeySize = 32

	// SaltSize is the per-store salt size in bytes.
	SaltSize = 32
)

// kdfIterations is the PBKDF2-SHA-256 work factor. Tests lower it.
var kdfIterations = 600000

// verifierPlaintext is sealed into every store so a wrong passphrase is
// detected at Open instead of at the first Get.
const verifierPlaintext = "ztachat-credstore-v1"

// =============================================================================
// SEALER
// =============================================================================

// sealer encrypts values with AES-256-GCM under a PBKDF2-derived key.
type sealer struct {
	aead cipher.AEAD
}

func newSealer(passphrase string, salt []byte) (*sealer, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, kdfIterations, KeySize, sha256.New)
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return &sealer{aead: gcm}, nil
}

// seal returns base64(nonce || ciphertext). key is bound as associated data
// so a sealed value cannot be moved to another key.
func (s *sealer) seal(key string, plaintext []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, plaintext, []byte(key))
	return base64.StdEncoding.EncodeToString(out), nil
}

func (s *sealer) open(key, sealed string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	n := s.aead.NonceSize()
	if len(data) < n+s.aead.Overhead() {
		return nil, fmt.Errorf("%w: value too short", ErrDecrypt)
	}
	plain, err := s.aead.Open(nil, data[:n], data[n:], []byte(key))
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}

func newSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// DefaultPassphrase is used when no passphrase is configured. It binds the
// store to this machine account; it is not a secret.
func DefaultPassphrase() string {
	host, _ := os.Hostname()
	name := "unknown"
	if u, err := user.Current(); err == nil {
		name = u.Username
	}
	return "ztachat:" + name + "@" + host
}
