// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/ztachat-tui/internal/model"
)

// HistoryFetcher returns the persisted envelopes of a conversation.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, conversationID string) ([]model.RawMessage, error)
}

// Snapshot is a copy of the reconciler's view at one moment.
type Snapshot struct {
	ConversationID string
	Status         Status
	Messages       []model.DisplayMessage

	// Version increases with every change; consumers may drop older snapshots.
	Version uint64
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithDedupWindow sets the duplicate window. Non-positive values are ignored.
func WithDedupWindow(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.window = d
		}
	}
}

// WithClock replaces time.Now for live timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler holds the message sequence of one conversation view.
type Reconciler struct {
	fetcher HistoryFetcher
	window  time.Duration
	now     func() time.Time
	log     *zap.Logger

	mu       sync.Mutex
	target   string
	status   Status
	messages []model.DisplayMessage
	gen      uint64 // bumped by every load and target switch
	version  uint64

	// loaded is true once history for the current target has arrived.
	loaded bool

	// pending holds live messages accepted before the current history
	// arrived; they are re-applied on top of it.
	pending []model.DisplayMessage

	subs    map[int]func(Snapshot)
	nextSub int
}

// New creates an empty reconciler in NoHistory.
func New(fetcher HistoryFetcher, opts ...Option) *Reconciler {
	r := &Reconciler{
		fetcher: fetcher,
		window:  DefaultDedupWindow,
		now:     time.Now,
		log:     zap.NewNop(),
		subs:    make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Snapshot returns a copy of the current view.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Grouped returns the current sequence with grouping flags for localID.
func (r *Reconciler) Grouped(localID string) []model.GroupedMessage {
	return model.Group(r.Snapshot().Messages, localID)
}

// Status returns the history status.
func (r *Reconciler) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Target returns the conversation the view is bound to.
func (r *Reconciler) Target() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}

// SetTarget binds the view to conversationID. Switching to a different
// conversation discards the sequence, resets to NoHistory and makes any
// in-flight load stale. Setting the current target again does nothing.
func (r *Reconciler) SetTarget(conversationID string) {
	conversationID = strings.TrimSpace(conversationID)

	r.mu.Lock()
	if conversationID == r.target {
		r.mu.Unlock()
		return
	}
	r.resetLocked(conversationID)
	snap, fns := r.changedLocked()
	r.mu.Unlock()

	r.notify(snap, fns)
}

func (r *Reconciler) resetLocked(conversationID string) {
	r.target = conversationID
	r.status = NoHistory
	r.messages = nil
	r.pending = nil
	r.loaded = false
	r.gen++
}

// =============================================================================
// HISTORY
// =============================================================================

// LoadHistory fetches the conversation's history and replaces the sequence
// with it. A different conversationID switches the target first.
//
// On failure the previous sequence and status are kept and a
// *HistoryFetchError is returned. A result that arrives after the target
// changed or a newer load started is dropped with ErrStaleResult.
func (r *Reconciler) LoadHistory(ctx context.Context, conversationID string) ([]model.DisplayMessage, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, &HistoryFetchError{Err: ErrNoConversation}
	}

	r.mu.Lock()
	if conversationID != r.target {
		r.resetLocked(conversationID)
	}
	r.gen++
	gen := r.gen
	r.status = Loading
	snap, fns := r.changedLocked()
	r.mu.Unlock()
	r.notify(snap, fns)

	started := r.now()
	raw, err := r.fetcher.FetchHistory(ctx, conversationID)

	r.mu.Lock()
	if r.target != conversationID || r.gen != gen {
		r.mu.Unlock()
		r.log.Debug("discarding stale history",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return nil, ErrStaleResult
	}

	if err != nil {
		r.status = NoHistory
		if r.loaded {
			r.status = Loaded
		}
		snap, fns := r.changedLocked()
		r.mu.Unlock()
		r.notify(snap, fns)
		r.log.Warn("history fetch failed", zap.String("conversation_id", conversationID), zap.Error(err))
		return nil, &HistoryFetchError{ConversationID: conversationID, Err: err}
	}

	msgs := model.Flatten(raw)
	adoptLiveIDs(msgs, r.messages, r.window)
	for _, m := range r.pending {
		msgs, _ = mergeMessage(msgs, m, r.window)
	}
	r.pending = nil
	r.messages = msgs
	r.status = Loaded
	r.loaded = true
	out := cloneMessages(msgs)
	snap, fns = r.changedLocked()
	r.mu.Unlock()
	r.notify(snap, fns)

	r.log.Info("history loaded",
		zap.String("conversation_id", conversationID),
		zap.Int("envelopes", len(raw)),
		zap.Int("messages", len(out)),
		zap.Duration("took", r.now().Sub(started)))
	return out, nil
}

// =============================================================================
// LIVE MESSAGES
// =============================================================================

// MergeLive adds a live text message for conversationID stamped with the
// current time. It returns false when the message is for another
// conversation, is blank, or duplicates an existing entry.
func (r *Reconciler) MergeLive(conversationID, text, senderID string) bool {
	return r.MergeLiveContent(conversationID, text, model.ContentText, senderID)
}

// MergeLiveContent is MergeLive for a content part of type ct.
func (r *Reconciler) MergeLiveContent(conversationID, content string, ct model.ContentType, senderID string) bool {
	conversationID = strings.TrimSpace(conversationID)

	r.mu.Lock()
	if r.target == "" || conversationID != r.target {
		target := r.target
		r.mu.Unlock()
		r.log.Debug("live message for other conversation dropped",
			zap.String("conversation_id", conversationID), zap.String("target", target))
		return false
	}

	msg, ok := liveMessage(content, ct, senderID, r.now())
	if !ok {
		r.mu.Unlock()
		return false
	}
	msg.ConversationID = conversationID

	merged, ok := mergeMessage(r.messages, msg, r.window)
	if !ok {
		r.mu.Unlock()
		r.log.Debug("duplicate live message dropped",
			zap.String("conversation_id", conversationID), zap.String("sender_id", senderID))
		return false
	}

	r.messages = merged
	if r.status != Loaded {
		r.pending = append(r.pending, msg)
	}
	snap, fns := r.changedLocked()
	r.mu.Unlock()

	r.notify(snap, fns)
	return true
}

// =============================================================================
// SUBSCRIBERS
// =============================================================================

// Subscribe calls fn with a snapshot after every change. It returns a
// function that removes fn.
func (r *Reconciler) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

// changedLocked bumps the version and collects what notify needs.
func (r *Reconciler) changedLocked() (Snapshot, []func(Snapshot)) {
	r.version++
	if len(r.subs) == 0 {
		return Snapshot{}, nil
	}
	ids := make([]int, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, r.subs[id])
	}
	return r.snapshotLocked(), fns
}

func (r *Reconciler) notify(snap Snapshot, fns []func(Snapshot)) {
	for _, fn := range fns {
		fn(snap)
	}
}

func (r *Reconciler) snapshotLocked() Snapshot {
	return Snapshot{
		ConversationID: r.target,
		Status:         r.status,
		Messages:       cloneMessages(r.messages),
		Version:        r.version,
	}
}

func cloneMessages(msgs []model.DisplayMessage) []model.DisplayMessage {
	if msgs == nil {
		return nil
	}
	return append([]model.DisplayMessage(nil), msgs...)
}
