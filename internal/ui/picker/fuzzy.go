// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package picker

import (
	"sort"
	"strings"
	"unicode"

	"github.com/jeranaias/ztachat-tui/internal/model"
)

// =============================================================================
// FUZZY MATCHING
// =============================================================================

// FuzzyMatch scores query against target. Every query rune must appear in
// target in order, case-insensitively.
//
// Bonuses:
//   - consecutive runes
//   - a match on the first rune or after a separator (space . - _)
//   - exact case
//
// Longer targets lose a little, so "al" ranks "al" above "alexandra".
func FuzzyMatch(query, target string) (score int, matched bool) {
	if query == "" {
		return 0, true
	}

	q := []rune(strings.ToLower(query))
	tl := []rune(strings.ToLower(target))
	if len(q) > len(tl) {
		return 0, false
	}
	qOrig, tOrig := []rune(query), []rune(target)

	qi, last := 0, -1
	for ti := 0; ti < len(tl) && qi < len(q); ti++ {
		if tl[ti] != q[qi] {
			continue
		}
		s := 1
		if last >= 0 && last == ti-1 {
			s += 5
		}
		if ti == 0 {
			s += 10
		}
		if isWordBoundary(tOrig, ti) {
			s += 7
		}
		if ti < len(tOrig) && qi < len(qOrig) && tOrig[ti] == qOrig[qi] {
			s += 2
		}
		score += s
		last = ti
		qi++
	}

	if qi != len(q) {
		return 0, false
	}
	return score - len(tl)/4, true
}

// isWordBoundary reports whether pos starts a word: the first rune, a rune
// after a separator, or an upper-case rune after a lower-case one.
func isWordBoundary(runes []rune, pos int) bool {
	if pos == 0 {
		return true
	}
	if pos >= len(runes) {
		return false
	}
	switch prev := runes[pos-1]; {
	case prev == ' ' || prev == '.' || prev == '-' || prev == '_':
		return true
	case unicode.IsLower(prev) && unicode.IsUpper(runes[pos]):
		return true
	}
	return false
}

// HighlightMatch returns the rune positions in target that match query.
func HighlightMatch(query, target string) []int {
	if query == "" {
		return nil
	}
	q := []rune(strings.ToLower(query))
	tl := []rune(strings.ToLower(target))

	var positions []int
	qi := 0
	for ti := 0; ti < len(tl) && qi < len(q); ti++ {
		if tl[ti] == q[qi] {
			positions = append(positions, ti)
			qi++
		}
	}
	return positions
}

// =============================================================================
// FILTERING
// =============================================================================

// Match is a profile that matched the query.
type Match struct {
	Profile model.Profile
	Score   int
}

// Filter returns the profiles whose username fuzzy-matches query, best
// first. Online friends win ties; remaining ties keep the input order.
func Filter(query string, profiles []model.Profile) []Match {
	query = strings.TrimPrefix(strings.TrimSpace(query), "@")

	matches := make([]Match, 0, len(profiles))
	for _, p := range profiles {
		if score, ok := FuzzyMatch(query, p.Username); ok {
			matches = append(matches, Match{Profile: p, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return online(matches[i].Profile) && !online(matches[j].Profile)
	})
	return matches
}

func online(p model.Profile) bool {
	return p.Status == model.StatusOnline
}
