// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ztachat-tui/internal/model"
)

func sampleTranscript() *Transcript {
	base := time.Date(2025, 3, 14, 9, 30, 0, 0, time.Local)
	return &Transcript{
		ConversationID: "7",
		LocalID:        "1",
		LocalName:      "alice",
		PeerName:       "bob",
		ExportedAt:     base.Add(time.Hour),
		Messages: []model.DisplayMessage{
			{ID: "m1", SenderID: "1", Content: "hi **bob**", ContentType: model.ContentText, Timestamp: base},
			{ID: "m2", SenderID: "2", Content: "line one\nline two", Timestamp: base.Add(time.Minute)},
			{ID: "m3", SenderID: "2", Content: "https://example.com/cat.png", ContentType: model.ContentImage, Timestamp: base.Add(2 * time.Minute)},
		},
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format  string
		ext     string
		wantErr bool
	}{
		{"", ".md", false},
		{"md", ".md", false},
		{"Markdown", ".md", false},
		{"json", ".json", false},
		{"html", "", true},
	}

	for _, tt := range tests {
		exp, err := ForFormat(tt.format, nil)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ForFormat(%q) expected error", tt.format)
			}
			continue
		}
		if err != nil {
			t.Errorf("ForFormat(%q) error = %v", tt.format, err)
			continue
		}
		if got := exp.FileExtension(); got != tt.ext {
			t.Errorf("ForFormat(%q).FileExtension() = %q, want %q", tt.format, got, tt.ext)
		}
	}
}

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleTranscript())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: Chat with bob\n"))
	assert.Contains(t, md, "generator: ztachat")
	assert.Contains(t, md, "# Chat with bob")
	assert.Contains(t, md, "- **Messages**: 3")
	assert.Contains(t, md, "## Friday, March 14, 2025")
	assert.Contains(t, md, "**alice** <sub>09:30:00</sub>\n\n> hi **bob**")
	assert.Contains(t, md, "> line one\n> line two")
	assert.Contains(t, md, "> `[image]` https://example.com/cat.png")
	assert.Equal(t, 1, strings.Count(md, "## Friday"), "one heading per day")
}

func TestMarkdownExporter_Bare(t *testing.T) {
	opts := &Options{}
	out, err := NewMarkdownExporter(opts).Export(sampleTranscript())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "# Chat with bob"))
	assert.NotContains(t, md, "<sub>")
	assert.NotContains(t, md, "Participants")
}

func TestMarkdownExporter_UnknownNames(t *testing.T) {
	tr := sampleTranscript()
	tr.LocalName, tr.PeerName = "", ""

	out, err := NewMarkdownExporter(&Options{}).Export(tr)
	require.NoError(t, err)
	assert.Contains(t, string(out), "**you**")
	assert.Contains(t, string(out), `**\#2**`)
}

func TestExport_EmptyTranscript(t *testing.T) {
	tr := sampleTranscript()
	tr.Messages = nil

	_, err := NewMarkdownExporter(nil).Export(tr)
	assert.True(t, errors.Is(err, ErrEmptyTranscript))

	_, err = NewJSONExporter().Export(nil)
	assert.Error(t, err)
}

func TestJSONExporter(t *testing.T) {
	out, err := NewJSONExporter().Export(sampleTranscript())
	require.NoError(t, err)

	var got Transcript
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "7", got.ConversationID)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, model.ContentImage, got.Messages[2].ContentType)
}

func TestToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	opts := &Options{OutputDir: dir, IncludeMetadata: true}

	path, err := ToFile(sampleTranscript(), NewJSONExporter(), opts)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, "chat_bob_20250314_103000.json", filepath.Base(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestToFile_Stdout(t *testing.T) {
	var buf bytes.Buffer
	path, err := ToFile(sampleTranscript(), NewMarkdownExporter(&Options{}), &Options{OutputDir: "-", Stdout: &buf})
	require.NoError(t, err)
	assert.Equal(t, "-", path)
	assert.Contains(t, buf.String(), "# Chat with bob")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"bob", "bob"},
		{"a/b\\c:d", "a-b-c-d"},
		{"two words", "two_words"},
		{"  ", "conversation"},
		{"bell\a", "bell-"},
		{strings.Repeat("x", 60), strings.Repeat("x", 50)},
	}

	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain", escapeYAML("plain"))
	assert.Equal(t, `"a: b"`, escapeYAML("a: b"))
	assert.Equal(t, `"say \"hi\""`, escapeYAML(`say "hi"`))
}
