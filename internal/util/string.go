// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// =============================================================================
// DISPLAY WIDTH
// =============================================================================

// StringWidth returns the number of terminal columns s occupies.
// Wide runes (CJK, most emoji) count as 2.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// TruncateWidth cuts s to at most maxWidth columns, ending in "..." when
// anything was removed and there is room for it.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// PadRight pads s with spaces to exactly width columns. Longer strings are
// truncated.
func PadRight(s string, width int) string {
	s = TruncateWidth(s, width)
	return runewidth.FillRight(s, width)
}

// WrapWidth breaks s into lines of at most width columns. Existing newlines
// are kept; words longer than a line are split.
func WrapWidth(s string, width int) []string {
	if width <= 0 {
		return []string{s}
	}

	var lines []string
	for _, para := range strings.Split(s, "\n") {
		if para == "" {
			lines = append(lines, "")
			continue
		}
		var cur strings.Builder
		curWidth := 0
		for _, word := range strings.Fields(para) {
			ww := StringWidth(word)
			for ww > width {
				// Hard split of an overlong word.
				if curWidth > 0 {
					lines = append(lines, cur.String())
					cur.Reset()
					curWidth = 0
				}
				head := runewidth.Truncate(word, width, "")
				if head == "" {
					// A single wide rune does not fit; emit it alone.
					head = string([]rune(word)[:1])
				}
				lines = append(lines, head)
				word = word[len(head):]
				ww = StringWidth(word)
			}
			if ww == 0 {
				continue
			}
			switch {
			case curWidth == 0:
				cur.WriteString(word)
				curWidth = ww
			case curWidth+1+ww <= width:
				cur.WriteByte(' ')
				cur.WriteString(word)
				curWidth += 1 + ww
			default:
				lines = append(lines, cur.String())
				cur.Reset()
				cur.WriteString(word)
				curWidth = ww
			}
		}
		if curWidth > 0 {
			lines = append(lines, cur.String())
		}
	}
	return lines
}
