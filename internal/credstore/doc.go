// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package credstore persists the client's credentials between runs.
//
// A store is a named key-value map kept under the config directory. Every
// value is sealed with AES-256-GCM under a key derived by PBKDF2-SHA-256 from
// the configured passphrase and a per-store salt. Two backends exist: a JSON
// file written atomically at 0600, and a SQLite database.
//
// # Key Types
//
//   - Store: Get, Set, Delete, Keys, Save, Close
//   - Option: WithDir, WithBackend, WithPassphrase, WithLogger
//
// # Usage
//
//	opts, _ := credstore.FromConfig(cfg)
//	st, err := credstore.Open(ctx, cfg.Store.Name, opts...)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	st.Set(credstore.KeyAuthToken, token)
package credstore
