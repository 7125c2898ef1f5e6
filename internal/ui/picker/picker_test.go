// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package picker

import (
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ztachat-tui/internal/model"
)

func profiles(names ...string) []model.Profile {
	out := make([]model.Profile, len(names))
	for i, n := range names {
		out[i] = model.Profile{ID: model.ID(fmt.Sprint(i + 1)), Username: n, Status: model.StatusOffline}
	}
	return out
}

func names(ms []Match) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Profile.Username
	}
	return out
}

// =============================================================================
// FUZZY MATCHING
// =============================================================================

func TestFuzzyMatch(t *testing.T) {
	tests := []struct {
		query, target string
		want          bool
	}{
		{"", "bob", true},
		{"bob", "bob", true},
		{"BOB", "bob", true},
		{"ob", "bob", true},
		{"bb", "bob", true},
		{"ba", "bob", false},
		{"bobby", "bob", false},
		{"xyz", "bob", false},
	}

	for _, tt := range tests {
		_, got := FuzzyMatch(tt.query, tt.target)
		if got != tt.want {
			t.Errorf("FuzzyMatch(%q, %q) matched = %v, want %v", tt.query, tt.target, got, tt.want)
		}
	}
}

func TestFuzzyMatch_Ranking(t *testing.T) {
	score := func(q, target string) int {
		s, ok := FuzzyMatch(q, target)
		require.True(t, ok, "%q should match %q", q, target)
		return s
	}

	assert.Greater(t, score("al", "al"), score("al", "alexandra"), "shorter target")
	assert.Greater(t, score("bo", "bob"), score("bo", "jimbo"), "prefix")
	assert.Greater(t, score("ms", "mary_smith"), score("ms", "mrsmiles"), "word boundary")
	assert.Greater(t, score("Jo", "Jo"), score("jo", "Jo"), "exact case")
}

func TestHighlightMatch(t *testing.T) {
	assert.Equal(t, []int{0, 2}, HighlightMatch("bb", "bob"))
	assert.Equal(t, []int{0, 1}, HighlightMatch("AL", "alice"))
	assert.Nil(t, HighlightMatch("", "alice"))
}

// =============================================================================
// FILTERING
// =============================================================================

func TestFilter_BestFirst(t *testing.T) {
	got := Filter("al", profiles("alexandra", "carol", "bob", "al"))
	assert.Equal(t, []string{"al", "alexandra", "carol"}, names(got))
}

func TestFilter_StripsAt(t *testing.T) {
	got := Filter(" @bob ", profiles("alice", "bob"))
	assert.Equal(t, []string{"bob"}, names(got))
}

func TestFilter_OnlineWinsTies(t *testing.T) {
	ps := profiles("dan", "don", "dee")
	ps[2].Status = model.StatusOnline

	got := Filter("", ps)
	assert.Equal(t, []string{"dee", "dan", "don"}, names(got))
}

// =============================================================================
// MODEL
// =============================================================================

func press(t *testing.T, m Model, keys ...tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(k)
		m = next.(Model)
	}
	return m, cmd
}

func typed(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestModel_EnterChoosesSelected(t *testing.T) {
	m := New(profiles("alice", "bob", "carol"), nil)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, isQuit(cmd))

	p, ok := m.Chosen()
	require.True(t, ok)
	assert.Equal(t, "bob", p.Username)
}

func TestModel_TypingFilters(t *testing.T) {
	m := New(profiles("alice", "bob", "carol"), nil)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown}, typed("car"))
	assert.Equal(t, []string{"carol"}, names(m.filtered))
	assert.Equal(t, 0, m.selected, "selection resets on new input")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, isQuit(cmd))
	p, ok := m.Chosen()
	require.True(t, ok)
	assert.Equal(t, "carol", p.Username)
}

func TestModel_SelectionWraps(t *testing.T) {
	m := New(profiles("alice", "bob", "carol"), nil)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 2, m.selected)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 0, m.selected)
}

func TestModel_EscapeChoosesNothing(t *testing.T) {
	m := New(profiles("alice"), nil)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, isQuit(cmd))
	_, ok := m.Chosen()
	assert.False(t, ok)
}

func TestModel_EnterWithoutMatchesStays(t *testing.T) {
	m := New(profiles("alice"), nil)

	m, cmd := press(t, m, typed("zzz"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, isQuit(cmd))
	_, ok := m.Chosen()
	assert.False(t, ok)
	assert.Contains(t, m.View(), "No matching friends")
}

func TestModel_View(t *testing.T) {
	var ns []string
	for i := range 12 {
		ns = append(ns, fmt.Sprintf("friend%02d", i))
	}
	m := New(profiles(ns...), nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = next.(Model)

	view := m.View()
	assert.Contains(t, view, "Open a conversation")
	assert.Contains(t, view, "friend00")
	assert.NotContains(t, view, "friend11")
	assert.Contains(t, view, "... 2 more")
	assert.Contains(t, view, "offline")

	empty := New(nil, nil).View()
	assert.True(t, strings.Contains(empty, "No friends yet"))
}
