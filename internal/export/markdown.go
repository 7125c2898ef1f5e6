// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/ztachat-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a transcript to Markdown. Message bodies are written as
// they were sent, since chat messages are already markdown.
func (e *MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	title := "Chat with " + displayName(t.PeerName)

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(title))
		fmt.Fprintf(&sb, "conversation: %s\n", escapeYAML(t.ConversationID))
		fmt.Fprintf(&sb, "messages: %d\n", len(t.Messages))
		fmt.Fprintf(&sb, "exported: %s\n", t.ExportedAt.Format(time.RFC3339))
		sb.WriteString("generator: ztachat\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title))

	if e.options.IncludeMetadata {
		first, last := t.Messages[0].Timestamp, t.Messages[len(t.Messages)-1].Timestamp
		fmt.Fprintf(&sb, "- **Participants**: %s, %s\n", escapeMarkdown(displayName(t.LocalName)), escapeMarkdown(displayName(t.PeerName)))
		fmt.Fprintf(&sb, "- **First message**: %s\n", formatTimestamp(first))
		fmt.Fprintf(&sb, "- **Last message**: %s\n", formatTimestamp(last))
		fmt.Fprintf(&sb, "- **Messages**: %d\n", len(t.Messages))
		sb.WriteString("\n---\n\n")
	}

	var day string
	for _, msg := range t.Messages {
		if e.options.IncludeTimestamps {
			if d := msg.Timestamp.Local().Format("Monday, January 2, 2006"); d != day {
				day = d
				fmt.Fprintf(&sb, "## %s\n\n", day)
			}
		}

		label := "**" + escapeMarkdown(t.SenderName(msg)) + "**"
		if e.options.IncludeTimestamps {
			label += " <sub>" + formatShortTimestamp(msg.Timestamp) + "</sub>"
		}
		sb.WriteString(label + "\n\n")
		sb.WriteString(formatContent(msg))
		sb.WriteString("\n\n")
	}

	return []byte(strings.TrimRight(sb.String(), "\n") + "\n"), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatContent quotes a message body, marking non-text parts with their
// tag.
func formatContent(msg model.DisplayMessage) string {
	body := strings.TrimSpace(msg.Content)
	if tag := msg.ContentType.Tag(); tag != "" {
		body = "`" + tag + "` " + body
	}
	return "> " + strings.ReplaceAll(body, "\n", "\n> ")
}

func displayName(name string) string {
	if name == "" {
		return "unknown"
	}
	return name
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes the characters that break headings and labels.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		"#", `\#`,
		"*", `\*`,
		"_", `\_`,
		"[", `\[`,
		"]", `\]`,
	)
	return r.Replace(s)
}

// escapeYAML quotes a value when it contains YAML syntax.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, `\`, `\\`)
		s = strings.ReplaceAll(s, `"`, `\"`)
		s = strings.ReplaceAll(s, "\n", `\n`)
		s = strings.ReplaceAll(s, "\r", `\r`)
		return `"` + s + `"`
	}
	return s
}
