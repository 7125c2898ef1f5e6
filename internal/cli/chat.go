// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat.
//
// Command: chat FRIEND
//
// Opens the conversation with FRIEND, prints its history and then every
// message as it arrives. Lines typed at the prompt are sent; lines starting
// with a slash are commands (see /help).
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/jeranaias/ztachat-tui/internal/config"
	"github.com/jeranaias/ztachat-tui/internal/model"
	"github.com/jeranaias/ztachat-tui/internal/reconcile"
	"github.com/jeranaias/ztachat-tui/internal/session"
	"github.com/jeranaias/ztachat-tui/internal/ui/styles"
)

// chatTimeout bounds a connect or history load started from line mode.
const chatTimeout = 15 * time.Second

const chatHelp = `**Commands**

- ` + "`/reload`" + ` reload history
- ` + "`/history`" + ` print the whole conversation
- ` + "`/status`" + ` show the channel state
- ` + "`/reconnect`" + ` reopen the channel
- ` + "`/quit`" + ` leave (also Ctrl+D)

Anything else is sent. Messages are rendered as markdown.`

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatInput provides input history and line editing for line-mode chat.
type ChatInput struct {
	line        *liner.State
	historyFile string
}

// NewChatInput creates a ChatInput with history loaded from the config
// directory.
func NewChatInput() *ChatInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	in := &ChatInput{line: line, historyFile: filepath.Join(dir, "chat_history")}

	if f, err := os.Open(in.historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

// ReadInput reads one line. Non-blank lines join the history.
func (c *ChatInput) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history with 0600 permissions and restores the terminal.
func (c *ChatInput) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// =============================================================================
// LINE CHAT
// =============================================================================

// lineChat prints one conversation to out. It is driven by manager events,
// reconciler snapshots and typed lines, which arrive on different
// goroutines; mu serializes output.
type lineChat struct {
	target Target
	mgr    *session.Manager
	rec    *reconcile.Reconciler
	md     *glamour.TermRenderer
	log    *zap.Logger

	mu   sync.Mutex
	out  io.Writer
	seen map[string]bool

	unsubs []func()
}

func newLineChat(target Target, mgr *session.Manager, rec *reconcile.Reconciler, md *glamour.TermRenderer, out io.Writer, log *zap.Logger) *lineChat {
	if log == nil {
		log = zap.NewNop()
	}
	lc := &lineChat{
		target: target,
		mgr:    mgr,
		rec:    rec,
		md:     md,
		log:    log,
		out:    out,
		seen:   make(map[string]bool),
	}
	rec.SetTarget(target.ConversationID)
	lc.unsubs = append(lc.unsubs,
		mgr.Subscribe(lc.onEvent),
		rec.Subscribe(lc.onSnapshot),
	)
	return lc
}

// newMarkdownRenderer returns a glamour renderer for message bodies, or nil
// when none can be built.
func newMarkdownRenderer(width int) *glamour.TermRenderer {
	style := glamour.WithAutoStyle()
	if !ColorsEnabled() {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(max(width-8, 20)))
	if err != nil {
		return nil
	}
	return r
}

// connect opens the channel, reporting failures instead of returning them
// so the user can /reconnect.
func (lc *lineChat) connect(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()
	err := lc.mgr.Connect(ctx, lc.target.ConversationID, lc.target.ParticipantID)
	if err != nil && !errors.Is(err, session.ErrConnectInProgress) {
		lc.printf("%s\n", styles.RenderError(err.Error()))
	}
}

// load replaces the sequence with fetched history. New entries are printed
// by the snapshot subscriber.
func (lc *lineChat) load(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()
	_, err := lc.rec.LoadHistory(ctx, lc.target.ConversationID)
	if err != nil && !errors.Is(err, reconcile.ErrStaleResult) {
		lc.printf("%s\n", styles.RenderWarning(err.Error()))
	}
}

// close disconnects and stops both subscriptions.
func (lc *lineChat) close() {
	for _, unsub := range lc.unsubs {
		unsub()
	}
	lc.mgr.Disconnect()
}

// onEvent folds manager events into the reconciler and reports channel
// state changes.
func (lc *lineChat) onEvent(ev session.Event) {
	switch ev.Kind {
	case session.EventFrame:
		msg := ev.Frame.Message()
		lc.rec.MergeLiveContent(msg.ConversationID, msg.Content, msg.ContentType, msg.SenderID)

	case session.EventFrameRejected:
		lc.log.Debug("frame rejected", zap.Error(ev.Err))

	case session.EventState:
		switch ev.State {
		case session.Open:
			lc.printf("%s\n", styles.RenderInfo("connected to "+lc.peerName()))
		case session.Closed:
			msg := "connection closed"
			if ev.Err != nil {
				msg = "connection lost: " + ev.Err.Error()
			}
			lc.printf("%s\n", styles.RenderWarning(msg+" (type /reconnect)"))
		}
	}
}

// onSnapshot prints every message not printed before.
func (lc *lineChat) onSnapshot(s reconcile.Snapshot) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	for _, m := range s.Messages {
		if lc.seen[m.ID] {
			continue
		}
		lc.seen[m.ID] = true
		fmt.Fprintln(lc.out, lc.formatMessage(m))
	}
}

// handleLine runs one typed line and reports whether the user asked to quit.
func (lc *lineChat) handleLine(ctx context.Context, line string) bool {
	text := strings.TrimSpace(line)
	if text == "" {
		return false
	}

	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		switch strings.ToLower(cmd) {
		case "/quit", "/q", "/exit":
			return true
		case "/help", "/h", "/?":
			lc.printf("%s\n", lc.renderMarkdown(chatHelp))
		case "/reload", "/r":
			lc.load(ctx)
		case "/history":
			lc.printHistory()
		case "/status", "/s":
			st := lc.mgr.Status()
			lc.printf("%s %s  %s\n", RenderLabel("channel"), st.State, DimStyle.Render(st.Target.String()))
			if st.LastError != nil {
				lc.printf("%s %v\n", RenderLabel("last error"), st.LastError)
			}
			lc.printf("%s %s, %d messages\n", RenderLabel("history"), lc.rec.Status(), len(lc.rec.Snapshot().Messages))
		case "/reconnect":
			lc.connect(ctx)
		default:
			lc.printf("%s\n", styles.RenderWarning("unknown command "+cmd+" (try /help)"))
		}
		return false
	}

	if !lc.mgr.SendMessage(text) {
		lc.printf("%s\n", styles.RenderError("not sent: channel is "+lc.mgr.State().String()))
		return false
	}
	lc.rec.MergeLive(lc.target.ConversationID, text, lc.target.ParticipantID)
	return false
}

func (lc *lineChat) printHistory() {
	msgs := lc.rec.Snapshot().Messages
	lc.mu.Lock()
	defer lc.mu.Unlock()
	fmt.Fprintln(lc.out, RenderSeparator(40))
	for _, m := range msgs {
		fmt.Fprintln(lc.out, lc.formatMessage(m))
	}
	fmt.Fprintln(lc.out, RenderSeparator(40))
}

// formatMessage renders "15:04 name: body". Callers hold mu.
func (lc *lineChat) formatMessage(m model.DisplayMessage) string {
	var name string
	if m.SenderID == lc.target.ParticipantID {
		name = ownNameStyle.Render(displayOr(lc.target.Me.Username, "you"))
	} else {
		name = peerNameStyle.Render(lc.peerName())
	}

	body := lc.renderMarkdown(m.Content)
	if tag := m.ContentType.Tag(); tag != "" {
		body = tagStyle.Render(tag) + " " + body
	}
	if strings.Contains(body, "\n") {
		body = "\n  " + strings.ReplaceAll(body, "\n", "\n  ")
	}
	return DimStyle.Render(m.Timestamp.Local().Format("15:04")) + " " + name + ": " + body
}

// renderMarkdown renders s through glamour, falling back to s.
func (lc *lineChat) renderMarkdown(s string) string {
	if lc.md == nil {
		return s
	}
	out, err := lc.md.Render(s)
	if err != nil {
		return s
	}
	lines := strings.Split(strings.Trim(out, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func (lc *lineChat) peerName() string {
	return displayOr(lc.target.Peer.Username, "#"+lc.target.Peer.ID.String())
}

func (lc *lineChat) printf(format string, args ...any) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	fmt.Fprintf(lc.out, format, args...)
}

func displayOr(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// =============================================================================
// COMMAND
// =============================================================================

// HandleChat runs line-mode chat with args.Peer until /quit, Ctrl+D or ctx
// is cancelled.
func HandleChat(ctx context.Context, app *App, args Args) error {
	target, err := app.ResolveTarget(ctx, args.Peer)
	if err != nil {
		return NewCommandError("chat", "", err)
	}

	lc := newLineChat(target, app.NewManager(), app.NewReconciler(),
		newMarkdownRenderer(GetTerminalWidth()), app.Out, app.Log.Named("chat"))
	defer lc.close()

	if !args.Quiet {
		lc.printf("%s %s  %s\n", TitleStyle.Render("Chat with"), lc.peerName(), DimStyle.Render("/help for commands"))
	}
	lc.connect(ctx)
	lc.load(ctx)

	input := NewChatInput()
	defer input.Close()

	done := make(chan struct{})
	defer close(done)
	lines, readErr := readLines(done, func() (string, error) { return input.ReadInput("> ") })

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return NewCommandError("chat", "read", err)
		case line := <-lines:
			if lc.handleLine(ctx, line) {
				return nil
			}
		}
	}
}

// readLines calls read on its own goroutine and delivers each line until
// read fails or done is closed. A read that is still blocked when done
// closes is abandoned; its result is discarded.
func readLines(done <-chan struct{}, read func() (string, error)) (<-chan string, <-chan error) {
	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		for {
			line, err := read()
			if err != nil {
				errs <- err
				return
			}
			select {
			case lines <- line:
			case <-done:
				return
			}
		}
	}()
	return lines, errs
}
