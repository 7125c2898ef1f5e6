// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package picker

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ztachat-tui/internal/model"
	"github.com/jeranaias/ztachat-tui/internal/ui/styles"
	"github.com/jeranaias/ztachat-tui/internal/util"
)

// maxItems is how many matches are listed at once.
const maxItems = 10

// =============================================================================
// FRIEND PICKER
// =============================================================================

// Model lists friends, narrows them as the user types and quits the program
// once one is chosen or the picker is dismissed.
type Model struct {
	input    textinput.Model
	theme    *styles.Theme
	friends  []model.Profile
	filtered []Match
	selected int

	width  int
	height int

	chosen *model.Profile
}

// New builds a picker over friends.
func New(friends []model.Profile, theme *styles.Theme) Model {
	if theme == nil {
		theme = styles.NewTheme(styles.ThemeAuto)
	}

	ti := textinput.New()
	ti.Placeholder = "Type a name..."
	ti.Prompt = "> "
	ti.CharLimit = 64
	ti.Width = 40
	ti.PromptStyle = theme.InputPrompt
	ti.PlaceholderStyle = theme.InputPlaceholder
	ti.Focus()

	m := Model{input: ti, theme: theme, friends: friends}
	m.filtered = Filter("", friends)
	return m
}

// Chosen returns the selected friend, if any.
func (m Model) Chosen() (model.Profile, bool) {
	if m.chosen == nil {
		return model.Profile{}, false
	}
	return *m.chosen, true
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blinking.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit

		case "enter":
			if m.selected < len(m.filtered) {
				p := m.filtered[m.selected].Profile
				m.chosen = &p
				return m, tea.Quit
			}
			return m, nil

		case "up", "ctrl+p", "shift+tab":
			m.move(-1)
			return m, nil

		case "down", "ctrl+n", "tab":
			m.move(1)
			return m, nil
		}
	}

	prev := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != prev {
		m.filtered = Filter(m.input.Value(), m.friends)
		m.selected = 0
	}
	return m, cmd
}

// move steps the selection by delta, wrapping at both ends.
func (m *Model) move(delta int) {
	n := min(len(m.filtered), maxItems)
	if n == 0 {
		return
	}
	m.selected = ((m.selected+delta)%n + n) % n
}

// View renders the picker centered in the window.
func (m Model) View() string {
	boxWidth := 56
	if m.width > 0 && m.width < boxWidth+4 {
		boxWidth = max(m.width-4, 24)
	}
	inner := boxWidth - 6

	header := m.theme.HeaderTitle.Render("Open a conversation")
	sep := lipgloss.NewStyle().Foreground(styles.Overlay).Render(strings.Repeat("-", inner))

	m.input.Width = inner - 2

	var rows []string
	for i, match := range m.filtered {
		if i >= maxItems {
			more := len(m.filtered) - maxItems
			rows = append(rows, m.theme.ShortcutDesc.Italic(true).Render("  ... "+strconv.Itoa(more)+" more"))
			break
		}
		rows = append(rows, m.renderItem(match.Profile, i == m.selected, inner))
	}
	list := strings.Join(rows, "\n")
	if len(m.filtered) == 0 {
		msg := "No matching friends"
		if len(m.friends) == 0 {
			msg = "No friends yet (ztachat friends request USER)"
		}
		list = m.theme.ShortcutDesc.Italic(true).Render(msg)
	}

	help := m.theme.ShortcutDesc.Render("Up/Down navigate | Enter open | Esc quit")

	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Purple).
		Padding(1, 2).
		Width(boxWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, sep, m.input.View(), sep, list, "", help))

	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}

// renderItem renders one friend with the matched runes bold and an online
// marker.
func (m Model) renderItem(p model.Profile, selected bool, width int) string {
	indicator := "  "
	if selected {
		indicator = "> "
	}

	name := highlight(util.TruncateWidth(p.Username, width-12), m.input.Value(), m.theme.PeerName)

	status := m.theme.ShortcutDesc.Render("offline")
	if online(p) {
		status = m.theme.StateOpen.Render("* online")
	}

	gap := width - lipgloss.Width(indicator) - lipgloss.Width(name) - lipgloss.Width(status)
	line := indicator + name + strings.Repeat(" ", max(gap, 1)) + status
	if selected {
		return lipgloss.NewStyle().Background(styles.Overlay).Width(width).Render(line)
	}
	return line
}

// highlight renders name with base, underlining the runes query matched.
func highlight(name, query string, base lipgloss.Style) string {
	positions := HighlightMatch(strings.TrimPrefix(strings.TrimSpace(query), "@"), name)
	if len(positions) == 0 {
		return base.Render(name)
	}

	hit := base.Underline(true)
	marked := make(map[int]bool, len(positions))
	for _, p := range positions {
		marked[p] = true
	}

	var b strings.Builder
	for i, r := range []rune(name) {
		if marked[i] {
			b.WriteString(hit.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}
	return b.String()
}
