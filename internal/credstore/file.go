// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jeranaias/ztachat-tui/internal/util"
)

// fileDocument is the on-disk JSON layout. []byte fields encode as base64.
type fileDocument struct {
	Version  int               `json:"version"`
	Salt     []byte            `json:"salt"`
	Verifier string            `json:"verifier,omitempty"`
	Entries  map[string]string `json:"entries"`
}

// fileBackend keeps the store in one JSON file written atomically at 0600.
type fileBackend struct {
	file string
}

func newFileBackend(path string) *fileBackend {
	return &fileBackend{file: path}
}

func (b *fileBackend) path() string { return b.file }

func (b *fileBackend) load(ctx context.Context) (document, bool, error) {
	data, err := os.ReadFile(b.file)
	if errors.Is(err, os.ErrNotExist) {
		return document{}, false, nil
	}
	if err != nil {
		return document{}, false, err
	}

	var fd fileDocument
	if err := json.Unmarshal(data, &fd); err != nil {
		return document{}, false, fmt.Errorf("corrupt store file: %w", err)
	}
	if fd.Version > 1 {
		return document{}, false, fmt.Errorf("store version %d is newer than this client", fd.Version)
	}
	return document{Salt: fd.Salt, Verifier: fd.Verifier, Entries: fd.Entries}, true, nil
}

func (b *fileBackend) save(ctx context.Context, doc document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(fileDocument{
		Version:  1,
		Salt:     doc.Salt,
		Verifier: doc.Verifier,
		Entries:  doc.Entries,
	}, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFileWithDir(b.file, data, 0600, 0700)
}

func (b *fileBackend) close() error { return nil }
