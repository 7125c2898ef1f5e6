// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/ztachat-tui/internal/model"
	"github.com/jeranaias/ztachat-tui/internal/reconcile"
	"github.com/jeranaias/ztachat-tui/internal/session"
	"github.com/jeranaias/ztachat-tui/internal/ui/styles"
)

// DefaultTimeout bounds a dial or a history load started by the view.
const DefaultTimeout = 15 * time.Second

// MaxInputLength caps a single outgoing message.
const MaxInputLength = 4000

// chrome is the number of rows taken by everything except the viewport:
// header, notice line, input border, input line and status bar.
const chrome = 5

// =============================================================================
// OPTIONS
// =============================================================================

// Options wires a Model to its collaborators.
type Options struct {
	Manager    *session.Manager
	Reconciler *reconcile.Reconciler
	Theme      *styles.Theme

	// Target is the conversation to open and the local participant.
	Target model.ConnectionInfo

	// Display names; the participant ID is shown when empty.
	LocalName string
	PeerName  string

	ShowTimestamps bool
	Timeout        time.Duration
	Log            *zap.Logger

	// Now replaces time.Now for timestamp formatting.
	Now func() time.Time
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for one conversation.
type Model struct {
	opts   Options
	theme  *styles.Theme
	keyMap KeyMap
	log    *zap.Logger

	// Dimensions
	width  int
	height int
	ready  bool

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Latest state from the manager and the reconciler
	connState session.State
	snapshot  reconcile.Snapshot

	// notice is a one-line message above the input, e.g. a failed send.
	notice   string
	showHelp bool

	events     <-chan session.Event
	stopEvents func()
	snaps      <-chan reconcile.Snapshot
	stopSnaps  func()
}

// New builds the view, subscribes it to the manager and the reconciler and
// binds the reconciler to the target conversation. Nothing is dialed or
// fetched until Init.
func New(opts Options) Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme(styles.ThemeAuto)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	input := textinput.New()
	input.Placeholder = "Type a message"
	input.Prompt = "> "
	input.CharLimit = MaxInputLength
	input.PromptStyle = opts.Theme.InputPrompt
	input.PlaceholderStyle = opts.Theme.InputPlaceholder
	input.Focus()

	sp := spinner.New()
	sp.Spinner = styles.DotsSpinner.Bubbles()
	sp.Style = opts.Theme.Spinner

	opts.Reconciler.SetTarget(opts.Target.ConversationID)

	events, stopEvents := session.Listen(opts.Manager)
	snaps, stopSnaps := listenSnapshots(opts.Reconciler)

	return Model{
		opts:       opts,
		theme:      opts.Theme,
		keyMap:     DefaultKeyMap(),
		log:        opts.Log,
		viewport:   viewport.New(0, 0),
		input:      input,
		spinner:    sp,
		connState:  opts.Manager.State(),
		snapshot:   opts.Reconciler.Snapshot(),
		events:     events,
		stopEvents: stopEvents,
		snaps:      snaps,
		stopSnaps:  stopSnaps,
	}
}

// Init connects, loads history and starts listening.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ConnectCmd(m.opts.Manager, m.opts.Target, m.opts.Timeout),
		LoadHistoryCmd(m.opts.Reconciler, m.opts.Target.ConversationID, m.opts.Timeout),
		session.WaitForEvent(m.events),
		WaitForSnapshot(m.snaps),
		m.spinner.Tick,
		textinput.Blink,
	)
}

// Close disconnects and stops both subscriptions. It is safe to call more
// than once.
func (m Model) Close() {
	m.stopEvents()
	m.stopSnaps()
	m.opts.Manager.Disconnect()
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case session.EventMsg:
		m.handleSessionEvent(msg.Event)
		return m, session.WaitForEvent(m.events)

	case SnapshotMsg:
		if msg.Version >= m.snapshot.Version || msg.ConversationID != m.snapshot.ConversationID {
			m.snapshot = msg.Snapshot
			m.updateViewport()
		}
		return m, WaitForSnapshot(m.snaps)

	case SettingsMsg:
		m.applySettings(msg)
		return m, nil

	case ConnectResultMsg:
		switch {
		case msg.Err == nil:
			m.notice = ""
		case errors.Is(msg.Err, session.ErrConnectInProgress), errors.Is(msg.Err, session.ErrSuperseded):
		default:
			m.notice = "connect failed: " + msg.Err.Error()
		}
		return m, nil

	case HistoryResultMsg:
		if msg.Err != nil && !errors.Is(msg.Err, reconcile.ErrStaleResult) {
			m.notice = "history unavailable: " + msg.Err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	m.viewport.Width = msg.Width
	m.viewport.Height = max(msg.Height-chrome, 1)
	m.input.Width = max(msg.Width-4, 1)
	m.ready = true
	m.updateViewport()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Submit):
		return m.submit()

	case key.Matches(msg, m.keyMap.Reconnect):
		m.notice = "reconnecting"
		return m, ConnectCmd(m.opts.Manager, m.opts.Target, m.opts.Timeout)

	case key.Matches(msg, m.keyMap.Reload):
		return m, LoadHistoryCmd(m.opts.Reconciler, m.opts.Target.ConversationID, m.opts.Timeout)

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.Home):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keyMap.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input. On success the text joins the sequence as the
// local participant's message; otherwise it stays in the input.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if !m.opts.Manager.SendMessage(text) {
		m.notice = "not sent: channel is " + m.opts.Manager.State().String()
		return m, nil
	}
	m.opts.Reconciler.MergeLive(m.opts.Target.ConversationID, text, m.opts.Target.ParticipantID)
	m.input.Reset()
	m.notice = ""
	return m, nil
}

// applySettings swaps the theme and the timestamp setting and re-renders.
func (m *Model) applySettings(msg SettingsMsg) {
	if msg.Theme != nil {
		msg.Theme.SetSize(m.width, m.height)
		m.theme = msg.Theme
		m.input.PromptStyle = msg.Theme.InputPrompt
		m.input.PlaceholderStyle = msg.Theme.InputPlaceholder
		m.spinner.Style = msg.Theme.Spinner
	}
	m.opts.ShowTimestamps = msg.ShowTimestamps
	m.updateViewport()
}

// handleSessionEvent folds one manager event into the view.
func (m *Model) handleSessionEvent(ev session.Event) {
	switch ev.Kind {
	case session.EventFrame:
		msg := ev.Frame.Message()
		m.opts.Reconciler.MergeLiveContent(msg.ConversationID, msg.Content, msg.ContentType, msg.SenderID)

	case session.EventFrameRejected:
		m.log.Debug("frame rejected", zap.Error(ev.Err))
		m.notice = "dropped a message without a sender"

	case session.EventState:
		m.connState = ev.State
		switch ev.State {
		case session.Open:
			m.notice = ""
		case session.Closed:
			if ev.Err != nil {
				m.notice = "connection lost: " + ev.Err.Error()
			} else {
				m.notice = "connection closed"
			}
		case session.Errored:
			if ev.Err != nil {
				m.notice = ev.Err.Error()
			}
		}

	case session.EventError:
		if ev.Err != nil {
			m.notice = ev.Err.Error()
		}
	}
}

// updateViewport re-renders the message list, staying pinned to the bottom
// when the user had not scrolled up.
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderMessages())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// View renders the whole screen.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	return m.renderChat()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Target returns the conversation the view is bound to.
func (m Model) Target() model.ConnectionInfo {
	return m.opts.Target
}

// Notice returns the current one-line notice.
func (m Model) Notice() string {
	return m.notice
}

// ConnectionState returns the last state the view saw.
func (m Model) ConnectionState() session.State {
	return m.connState
}

// Messages returns the grouped sequence the view renders.
func (m Model) Messages() []model.GroupedMessage {
	return model.Group(m.snapshot.Messages, m.opts.Target.ParticipantID)
}
