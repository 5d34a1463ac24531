// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigmark/internal/config"
	"github.com/jeranaias/rigmark/internal/markup"
	"github.com/jeranaias/rigmark/internal/storage"
)

func sampleConversation() *storage.StoredConversation {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &storage.StoredConversation{
		ID:        "6f1c2a9e-0000-4000-8000-000000000001",
		Title:     "Makan: where to eat?",
		Model:     "qwen2.5-coder:14b",
		Language:  "en",
		CreatedAt: created,
		UpdatedAt: created.Add(time.Minute),
		Messages: []storage.StoredMessage{
			{ID: "m1", Role: "user", Content: "Where to eat <tonight>?\nNear KLCC", Timestamp: created},
			{
				ID:         "m2",
				Role:       "assistant",
				Content:    "## Picks\n\n1. Hours: 9am-9pm\n2. **Halal** options\n\n```go\nfmt.Println(1)\n```",
				Timestamp:  created.Add(time.Second),
				TokenCount: 40,
				DurationMs: 2000,
			},
		},
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format string
		ext    string
		mime   string
	}{
		{"html", ".html", "text/html"},
		{"HTM", ".html", "text/html"},
		{"md", ".md", "text/markdown"},
		{"markdown", ".md", "text/markdown"},
		{"json", ".json", "application/json"},
	}
	for _, tt := range tests {
		exp, err := ForFormat(tt.format, nil)
		require.NoError(t, err, tt.format)
		assert.Equal(t, tt.ext, exp.FileExtension())
		assert.Equal(t, tt.mime, exp.MimeType())
	}

	_, err := ForFormat("pdf", nil)
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestExporters_RejectEmpty(t *testing.T) {
	for _, format := range []string{"html", "md"} {
		exp, _ := ForFormat(format, nil)
		_, err := exp.Export(nil)
		assert.ErrorIs(t, err, ErrNilConversation)
		_, err = exp.Export(&storage.StoredConversation{})
		assert.ErrorIs(t, err, ErrEmptyConversation)
	}
}

func TestHTMLExporter_RendersAssistantMarkup(t *testing.T) {
	opts := DefaultOptions()
	opts.Renderer = markup.New(markup.WithStyles(markup.PlainStyles()))

	out, err := NewHTMLExporter(opts).Export(sampleConversation())
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, "<!DOCTYPE html>")
	assert.Contains(t, page, "<title>Makan: where to eat?</title>")
	assert.Contains(t, page, `<body class="light-theme">`)
	assert.Contains(t, page, "<h2>Picks</h2>")
	assert.Contains(t, page, "<li><strong>Hours:</strong> 9am-9pm</li>")
	assert.Contains(t, page, `<code class="language-go">`)
	// User text is escaped, never rendered.
	assert.Contains(t, page, "<p>Where to eat &lt;tonight&gt;?<br>Near KLCC</p>")
	assert.Contains(t, page, "Tokens: 40 | Time: 2.00s | Speed: 20.0 tok/s")
}

func TestHTMLExporter_PrefersStoredMarkup(t *testing.T) {
	conv := sampleConversation()
	conv.Messages[1].HTML = `<div><p>stored <script>alert(1)</script></p></div>`

	out, err := NewHTMLExporter(DefaultOptions()).Export(conv)
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, "<div><p>stored </p></div>")
	assert.NotContains(t, page, "alert(1)")
}

func TestHTMLExporter_HighlightCSS(t *testing.T) {
	opts := DefaultOptions()
	opts.Theme = "dark"
	opts.Renderer = markup.New(markup.WithHighlighting(""))

	out, err := NewHTMLExporter(opts).Export(sampleConversation())
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, `<body class="dark-theme">`)
	assert.Contains(t, page, ".chroma")
}

func TestHTMLExporter_NoMetadata(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeMetadata = false
	opts.IncludeTimestamps = false

	out, err := NewHTMLExporter(opts).Export(sampleConversation())
	require.NoError(t, err)
	page := string(out)

	assert.NotContains(t, page, `class="header"`)
	assert.NotContains(t, page, `class="timestamp"`)
	assert.NotContains(t, page, "message-stats")
}

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(DefaultOptions()).Export(sampleConversation())
	require.NoError(t, err)
	doc := string(out)

	assert.True(t, strings.HasPrefix(doc, "---\ntitle: \"Makan: where to eat?\"\n"), doc)
	assert.Contains(t, doc, "generator: rigmark\n")
	assert.Contains(t, doc, "# Makan: where to eat?\n")
	assert.Contains(t, doc, "### User <sub>")
	assert.Contains(t, doc, "```go\nfmt.Println(1)\n```")
	assert.Contains(t, doc, "<sub>Tokens: 40 | Time: 2.00s | Speed: 20.0 tok/s</sub>")
}

func TestEscapeYAML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"Test\nInjection: malicious", `"Test\nInjection: malicious"`},
		{`a"b`, `"a\"b"`},
		{" lead", `" lead"`},
	}
	for _, tt := range tests {
		if got := escapeYAML(tt.in); got != tt.want {
			t.Errorf("escapeYAML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJSONExporter(t *testing.T) {
	conv := sampleConversation()
	out, err := NewJSONExporter(nil).Export(conv)
	require.NoError(t, err)

	var decoded storage.StoredConversation
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, conv.ID, decoded.ID)
	assert.Len(t, decoded.Messages, 2)
}

func TestExportToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	opts := DefaultOptions()
	opts.OutputDir = dir

	path, err := ExportToFile(sampleConversation(), NewMarkdownExporter(opts), opts)
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	base := filepath.Base(path)
	assert.True(t, strings.HasPrefix(base, "conversation_Makan-_where_to_eat-_"), base)
	assert.True(t, strings.HasSuffix(base, ".md"), base)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Makan")
}

func TestWriteFile_ExportError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.html")
	err := WriteFile(&storage.StoredConversation{}, NewHTMLExporter(nil), path)
	assert.ErrorIs(t, err, ErrEmptyConversation)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "conversation"},
		{"a/b\\c:d", "a-b-c-d"},
		{"hello world", "hello_world"},
		{strings.Repeat("x", 80), strings.Repeat("x", 47) + "..."},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Export.Theme = "dark"
	cfg.Render.Sanitize = false

	opts := OptionsFromConfig(cfg, nil)
	assert.Equal(t, "dark", opts.Theme)
	assert.False(t, opts.Sanitize)
	assert.NotNil(t, opts.renderer())
}
