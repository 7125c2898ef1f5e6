// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/ztachat-tui/internal/config"
	"github.com/jeranaias/ztachat-tui/internal/model"
)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager owns the single real-time channel. All methods are safe for
// concurrent use. Subscribers are called outside the manager's lock, one
// event at a time, in the order events were produced.
type Manager struct {
	dialer Dialer
	log    *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	state   State
	target  model.ConnectionInfo
	conn    Conn
	attempt string // ID of the attempt that owns conn; "" when none
	lastErr error

	// cancelDial aborts the in-flight dial, nil when none.
	cancelDial context.CancelFunc

	subs    map[int]func(Event)
	nextSub int
	queue   []Event

	// dialMu serialises dials so a superseded socket is closed before the
	// next one is opened.
	dialMu sync.Mutex

	// dispatchMu is held by whichever goroutine is delivering the queue.
	dispatchMu sync.Mutex
}

// NewManager creates an idle manager. A nil dialer dials the chat service
// named in cfg with gorilla/websocket; a nil logger discards.
func NewManager(cfg *config.Config, dialer Dialer, log *zap.Logger) *Manager {
	if dialer == nil {
		if cfg == nil {
			cfg = config.Default()
		}
		dialer = NewWSDialer(cfg)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		dialer: dialer,
		log:    log,
		now:    time.Now,
		subs:   make(map[int]func(Event)),
	}
}

// =============================================================================
// STATE ACCESSORS
// =============================================================================

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Target returns the bound pair, zero when nothing is bound.
func (m *Manager) Target() model.ConnectionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target
}

// LastError returns the most recent failure, nil after a successful open.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Status returns state, target and last error together.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{State: m.state, Target: m.target, LastError: m.lastErr}
}

// =============================================================================
// CONNECT / DISCONNECT
// =============================================================================

// Connect binds the manager to (conversationID, participantID).
//
// It returns ErrInvalidArguments for an empty identifier without touching
// the state, nil when that exact pair is already open, and
// ErrConnectInProgress while another attempt is dialing. Otherwise any open
// channel is closed first (subscribers see its Closed event) and a new one
// is dialed. A failed dial leaves the manager Errored and returns a
// *ConnectionError. There is no retry.
func (m *Manager) Connect(ctx context.Context, conversationID, participantID string) error {
	target := model.ConnectionInfo{
		ConversationID: strings.TrimSpace(conversationID),
		ParticipantID:  strings.TrimSpace(participantID),
	}

	m.mu.Lock()
	if !target.Valid() {
		err := fmt.Errorf("%w (conversation=%q participant=%q)", ErrInvalidArguments, conversationID, participantID)
		m.lastErr = err
		m.enqueueLocked(Event{Kind: EventError, State: m.state, Prev: m.state, Target: target, Err: err})
		m.mu.Unlock()
		m.flush()
		return err
	}

	if m.state == Open && m.target == target {
		m.mu.Unlock()
		m.log.Debug("already connected", zap.Stringer("target", target))
		return nil
	}

	if m.state == Connecting {
		inFlight := m.target
		m.mu.Unlock()
		m.log.Debug("connect dropped, attempt in flight",
			zap.Stringer("target", target), zap.Stringer("in_flight", inFlight))
		return ErrConnectInProgress
	}

	var old Conn
	if m.conn != nil {
		old = m.conn
		oldTarget := m.target
		m.conn = nil
		m.attempt = ""
		m.transitionLocked(Closed, oldTarget, nil)
	}

	attempt := uuid.NewString()
	dialCtx, cancel := context.WithCancel(ctx)
	m.attempt = attempt
	m.cancelDial = cancel
	m.target = target
	m.transitionLocked(Connecting, target, nil)
	m.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			m.log.Debug("close previous channel", zap.Error(err))
		}
	}
	m.flush()

	m.dialMu.Lock()
	if !m.isCurrent(attempt) {
		m.dialMu.Unlock()
		cancel()
		return ErrSuperseded
	}

	m.log.Info("dialing", zap.Stringer("target", target), zap.String("attempt", attempt))
	started := m.now()
	conn, err := m.dialer.Dial(dialCtx, target)
	cancel()

	m.mu.Lock()
	if m.attempt != attempt || m.state != Connecting {
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		m.dialMu.Unlock()
		m.log.Info("dial superseded", zap.Stringer("target", target))
		return ErrSuperseded
	}
	m.cancelDial = nil

	if err != nil {
		cerr := &ConnectionError{Op: "dial", Target: target, Err: err}
		m.attempt = ""
		m.lastErr = cerr
		m.transitionLocked(Errored, target, cerr)
		m.mu.Unlock()
		m.dialMu.Unlock()
		m.flush()
		m.log.Warn("dial failed", zap.Stringer("target", target), zap.Error(err))
		return cerr
	}

	m.conn = conn
	m.lastErr = nil
	m.transitionLocked(Open, target, nil)
	m.mu.Unlock()
	m.dialMu.Unlock()

	go m.readLoop(attempt, target, conn)
	m.flush()

	m.log.Info("channel open", zap.Stringer("target", target), zap.Duration("took", m.now().Sub(started)))
	return nil
}

func (m *Manager) isCurrent(attempt string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempt == attempt
}

// Disconnect closes the channel, if any, and resets to Idle. It is safe to
// call in any state and more than once.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	conn := m.conn
	prev := m.target
	cancel := m.cancelDial
	m.conn = nil
	m.attempt = ""
	m.cancelDial = nil
	m.target = model.ConnectionInfo{}
	m.lastErr = nil
	if m.state != Idle {
		m.transitionLocked(Idle, prev, nil)
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			m.log.Debug("close channel", zap.Error(err))
		}
		m.log.Info("disconnected", zap.Stringer("target", prev))
	}
	m.flush()
}

// =============================================================================
// SEND
// =============================================================================

// SendMessage transmits text on the open channel. It returns false when the
// channel is not Open, the text is blank or the write fails. Nothing is
// queued.
func (m *Manager) SendMessage(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	m.mu.Lock()
	if !m.state.CanSend() || m.conn == nil {
		state := m.state
		m.mu.Unlock()
		m.log.Debug("send refused", zap.Stringer("state", state))
		return false
	}
	conn, target := m.conn, m.target
	m.mu.Unlock()

	data, err := NewTextFrame(target, text, m.now()).Encode()
	if err != nil {
		m.log.Error("encode frame", zap.Error(err))
		return false
	}
	if err := conn.WriteFrame(data); err != nil {
		m.log.Warn("send failed", zap.Stringer("target", target), zap.Error(err))
		return false
	}
	return true
}

// =============================================================================
// INBOUND
// =============================================================================

// readLoop delivers frames for one channel until it ends. Frames and closes
// from a channel that is no longer current are ignored.
func (m *Manager) readLoop(attempt string, target model.ConnectionInfo, conn Conn) {
	for {
		data, err := conn.ReadFrame()
		if err != nil {
			m.handleChannelEnd(attempt, target, conn, err)
			return
		}

		frame, ferr := DecodeFrame(data)

		m.mu.Lock()
		if m.attempt != attempt {
			m.mu.Unlock()
			return
		}
		if ferr != nil {
			m.enqueueLocked(Event{Kind: EventFrameRejected, State: m.state, Prev: m.state, Target: target, Err: ferr})
		} else {
			if frame.ConversationID.IsZero() {
				frame.ConversationID = model.ID(target.ConversationID)
			}
			m.enqueueLocked(Event{Kind: EventFrame, State: m.state, Prev: m.state, Target: target, Frame: &frame})
		}
		m.mu.Unlock()

		if ferr != nil {
			m.log.Warn("frame rejected", zap.Stringer("target", target), zap.Int("bytes", len(data)), zap.Error(ferr))
		}
		m.flush()
	}
}

// handleChannelEnd moves an Open manager to Closed when its channel ends on
// its own. Abnormal ends are recorded as LastError.
func (m *Manager) handleChannelEnd(attempt string, target model.ConnectionInfo, conn Conn, cause error) {
	m.mu.Lock()
	if m.attempt != attempt || m.conn != conn {
		m.mu.Unlock()
		return
	}

	var cerr error
	if !errors.Is(cause, io.EOF) {
		cerr = &ConnectionError{Op: "read", Target: target, Err: cause}
		m.lastErr = cerr
	}
	m.conn = nil
	m.attempt = ""
	m.target = model.ConnectionInfo{}
	m.transitionLocked(Closed, target, cerr)
	m.mu.Unlock()

	conn.Close()
	if cerr != nil {
		m.log.Warn("channel lost", zap.Stringer("target", target), zap.Error(cause))
	} else {
		m.log.Info("channel closed by peer", zap.Stringer("target", target))
	}
	m.flush()
}

// =============================================================================
// SUBSCRIBERS
// =============================================================================

// Subscribe registers fn for every subsequent event and returns a function
// that removes it. fn must not block for long; it runs on the goroutine that
// produced the event.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// transitionLocked validates and applies a state change and queues its event.
func (m *Manager) transitionLocked(next State, target model.ConnectionInfo, err error) bool {
	prev := m.state
	if !prev.CanTransitionTo(next) {
		m.log.Error("illegal state transition rejected",
			zap.Stringer("from", prev), zap.Stringer("to", next), zap.Stringer("target", target))
		return false
	}
	m.state = next
	m.enqueueLocked(Event{Kind: EventState, State: next, Prev: prev, Target: target, Err: err})
	m.log.Debug("state", zap.Stringer("from", prev), zap.Stringer("to", next), zap.Stringer("target", target))
	return true
}

func (m *Manager) enqueueLocked(ev Event) {
	ev.At = m.now()
	m.queue = append(m.queue, ev)
}

// flush delivers queued events. If another goroutine is already delivering,
// it returns at once and that goroutine picks the new events up.
func (m *Manager) flush() {
	for {
		if !m.dispatchMu.TryLock() {
			return
		}

		m.mu.Lock()
		batch := m.queue
		m.queue = nil
		ids := make([]int, 0, len(m.subs))
		for id := range m.subs {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		fns := make([]func(Event), 0, len(ids))
		for _, id := range ids {
			fns = append(fns, m.subs[id])
		}
		m.mu.Unlock()

		for _, ev := range batch {
			for _, fn := range fns {
				fn(ev)
			}
		}
		m.dispatchMu.Unlock()

		m.mu.Lock()
		pending := len(m.queue) > 0
		m.mu.Unlock()
		if !pending {
			return
		}
	}
}
