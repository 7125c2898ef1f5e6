// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ztachat-tui/internal/model"
	"github.com/jeranaias/ztachat-tui/internal/reconcile"
	"github.com/jeranaias/ztachat-tui/internal/ui/styles"
	"github.com/jeranaias/ztachat-tui/internal/util"
)

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) renderChat() string {
	parts := []string{
		m.renderHeader(),
		m.viewport.View(),
		m.renderNotice(),
		m.renderInput(),
		m.renderStatusBar(),
	}
	if m.showHelp {
		parts[1] = m.renderHelp()
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	peer := m.opts.PeerName
	if peer == "" {
		peer = "conversation " + m.opts.Target.ConversationID
	}
	title := m.theme.HeaderTitle.Render("ztachat") + "  " + m.theme.HeaderPeer.Render(peer)
	return m.theme.Header.Width(m.width).Render(util.TruncateWidth(title, max(m.width, 1)))
}

func (m Model) renderNotice() string {
	if m.notice == "" {
		return ""
	}
	return m.theme.Notice.Width(m.width).Render(util.TruncateWidth(m.notice, max(m.width-2, 1)))
}

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(m.width).Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	state := m.connState.String()
	left := m.theme.StateStyle(state).Render(styles.StateIndicator(state) + " " + state)

	switch m.snapshot.Status {
	case reconcile.Loading:
		left += "  " + m.spinner.View() + " history"
	case reconcile.NoHistory:
		left += "  no history"
	}

	var help []string
	for _, b := range m.keyMap.ShortHelp() {
		h := b.Help()
		help = append(help, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	right := strings.Join(help, "  ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		return m.theme.StatusBar.Width(m.width).Render(left)
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderHelp() string {
	var sb strings.Builder
	sb.WriteString(m.theme.HeaderTitle.Render("Keys"))
	sb.WriteString("\n\n")
	for _, group := range m.keyMap.FullHelp() {
		for _, b := range group {
			h := b.Help()
			sb.WriteString("  ")
			sb.WriteString(m.theme.ShortcutKey.Render(util.PadRight(h.Key, 10)))
			sb.WriteString(m.theme.ShortcutDesc.Render(h.Desc))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return lipgloss.NewStyle().Width(m.width).Height(m.viewport.Height).Render(sb.String())
}

// =============================================================================
// MESSAGES
// =============================================================================

// renderMessages renders the grouped sequence. A sender's name and the time
// head each group; own messages are right-aligned.
func (m Model) renderMessages() string {
	msgs := m.Messages()
	if len(msgs) == 0 {
		return m.renderEmptyState()
	}

	var sb strings.Builder
	for i, msg := range msgs {
		if msg.IsFirstInGroup {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(m.renderGroupHeader(msg))
			sb.WriteString("\n")
		}
		sb.WriteString(m.renderBody(msg))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m Model) renderGroupHeader(msg model.GroupedMessage) string {
	var name string
	if msg.IsOwn {
		name = m.theme.OwnName.Render(displayName(m.opts.LocalName, "you"))
	} else {
		name = m.theme.PeerName.Render(displayName(m.opts.PeerName, msg.SenderID))
	}
	if m.opts.ShowTimestamps && !msg.Timestamp.IsZero() {
		name += " " + m.theme.Timestamp.Render(formatTimestamp(msg.Timestamp.Local(), m.opts.Now()))
	}
	if msg.IsOwn {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, name)
	}
	return name
}

func (m Model) renderBody(msg model.GroupedMessage) string {
	width := max(m.theme.BubbleWidth()-2, 1)

	text := msg.Content
	if tag := msg.ContentType.Tag(); tag != "" {
		text = m.theme.TypeTag.Render(tag) + " " + text
	}
	body := strings.Join(util.WrapWidth(text, width), "\n")

	if msg.IsOwn {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, m.theme.OwnBubble.Render(body))
	}
	return m.theme.PeerBubble.Render(body)
}

func (m Model) renderEmptyState() string {
	var line string
	switch m.snapshot.Status {
	case reconcile.Loading:
		line = m.spinner.View() + " loading history"
	default:
		line = "No messages yet. Say hello."
	}
	return lipgloss.Place(m.width, m.viewport.Height, lipgloss.Center, lipgloss.Center,
		m.theme.Timestamp.Render(line))
}

func displayName(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
