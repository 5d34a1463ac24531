// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

import (
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultHighlightStyle is the chroma style used when none is given.
const DefaultHighlightStyle = "monokai"

// highlighter tokenises fenced code with chroma and emits class-based spans.
// The matching stylesheet comes from WriteCSS.
type highlighter struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func newHighlighter(styleName string) *highlighter {
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	return &highlighter{
		style: style,
		formatter: chromahtml.New(
			chromahtml.WithClasses(true),
			chromahtml.PreventSurroundingPre(true),
		),
	}
}

// highlight returns highlighted HTML for code. Only fences that name a
// known language are highlighted; guessing is left to the reader.
func (h *highlighter) highlight(lang, code string) (string, bool) {
	if lang == "" {
		return "", false
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		return "", false
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", false
	}

	var b strings.Builder
	if err := h.formatter.Format(&b, h.style, iterator); err != nil {
		return "", false
	}
	out := strings.TrimRight(b.String(), "\n")
	if out == "" {
		return "", false
	}
	return out, true
}

// WriteCSS writes the stylesheet for highlighted code. It writes nothing
// when highlighting is disabled.
func (r *Renderer) WriteCSS(w io.Writer) error {
	if r.highlighter == nil {
		return nil
	}
	return r.highlighter.formatter.WriteCSS(w, r.highlighter.style)
}
