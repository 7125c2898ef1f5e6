// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconcile merges fetched history and live arrivals into one
// ordered, deduplicated message sequence per conversation.
//
// # Key Types
//
//   - Reconciler: per-view sequence, status and stale-result guard
//   - Status: NoHistory, Loading, Loaded
//   - HistoryFetcher: where history comes from (api.Client in production)
//   - Merge: the pure dedup-and-insert step used for live messages
//
// # Rules
//
// A history load replaces the whole sequence. A live message is dropped when
// an entry with the same sender and the same (NFC-normalised) content lies
// less than the dedup window away; otherwise it is inserted so timestamps
// stay non-decreasing. Results of a load that finishes after the target
// changed, or after a newer load started, are discarded.
//
// # Usage
//
//	rec := reconcile.New(apiClient, reconcile.WithDedupWindow(time.Second))
//	if _, err := rec.LoadHistory(ctx, convID); err != nil { ... }
//	rec.MergeLiveContent(convID, frame.Content, frame.ContentType, frame.SenderID.String())
//	view := model.Group(rec.Snapshot().Messages, localID)
package reconcile
