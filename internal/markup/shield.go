// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Control bytes used as in-band markers between stages. normalize replaces
// every C0 control other than tab and newline, so user text can never
// contain them.
const (
	markItem      = "\x01" // list item line, followed by one shape byte
	markFenceOpen = "\x02"
	markFenceEnd  = "\x03"
	markSpanOpen  = "\x0e"
	markSpanEnd   = "\x0f"
	markPara      = "\x1c"
	markBreak     = "\x1d"
)

// Entities used to hide syntax characters inside code from the later stages.
const (
	entNewline  = "&#10;"
	entStar     = "&#42;"
	entPipe     = "&#124;"
	entColon    = "&#58;"
	entBacktick = "&#96;"
)

var (
	shieldEncoder = strings.NewReplacer(
		"\n", entNewline,
		"*", entStar,
		"|", entPipe,
		":", entColon,
		"`", entBacktick,
	)
	shieldDecoder = strings.NewReplacer(
		entNewline, "\n",
		entStar, "*",
		entPipe, "|",
		entColon, ":",
		entBacktick, "`",
	)

	// Fences are tried before spans at every position.
	codeRe = regexp.MustCompile("(?s)```(.*?)```|`([^`\n]+)`")
)

// normalize unifies line endings, replaces stray control characters and
// escapes the text for HTML.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n':
			return r
		case r < 0x20 || r == 0x7f:
			return utf8.RuneError
		}
		return r
	}, s)
	return html.EscapeString(s)
}

// shield locates code fences and inline spans and encodes their contents.
// Fences are moved onto their own line so they always form a block, except
// a one-line fence inside a table row, which is shielded as a span so the
// row stays intact. A bare list marker left in front of a fence is dropped.
func shield(s string) string {
	idx := codeRe.FindAllStringIndex(s, -1)
	if idx == nil {
		return s
	}

	var b strings.Builder
	last := 0
	for _, loc := range idx {
		m := s[loc[0]:loc[1]]
		if !strings.HasPrefix(m, "```") || len(m) < 6 || !strings.HasSuffix(m, "```") {
			b.WriteString(s[last:loc[0]])
			b.WriteString(markSpanOpen + shieldEncoder.Replace(m[1:len(m)-1]) + markSpanEnd)
			last = loc[1]
			continue
		}

		body := m[3 : len(m)-3]
		start, end := lineBounds(s, loc[0], loc[1])
		switch {
		case !strings.Contains(body, "\n") && isTableRow(s[start:end]):
			b.WriteString(s[last:loc[0]])
			if strings.TrimSpace(body) == "" {
				b.WriteString(shieldEncoder.Replace(m))
			} else {
				b.WriteString(markSpanOpen + shieldEncoder.Replace(body) + markSpanEnd)
			}
			last = loc[1]
			continue
		case start >= last && hasCode(body) && bareMarkerRe.MatchString(s[start:loc[0]]):
			b.WriteString(s[last:start])
		default:
			b.WriteString(s[last:loc[0]])
		}
		b.WriteString("\n" + markFenceOpen + shieldEncoder.Replace(body) + markFenceEnd + "\n")
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// bareMarkerRe matches a list marker with no item text after it.
var bareMarkerRe = regexp.MustCompile(`^[ \t]*(?:\d+[.)]|[*+-])[ \t]+$`)

// hasCode reports whether a raw fence body holds code once an info string
// on its first line is set aside. Bodies without code stay literal.
func hasCode(body string) bool {
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		if first := body[:nl]; first == "" || langRe.MatchString(first) {
			body = body[nl+1:]
		}
	}
	return strings.TrimSpace(body) != ""
}

// lineBounds returns the start of the line holding s[from] and the end of
// the line holding s[to-1].
func lineBounds(s string, from, to int) (int, int) {
	start := strings.LastIndexByte(s[:from], '\n') + 1
	end := strings.IndexByte(s[to:], '\n')
	if end < 0 {
		return start, len(s)
	}
	return start, to + end
}

// restore decodes the shielding entities back to plain characters.
func restore(s string) string {
	return shieldDecoder.Replace(s)
}

// unshield turns shielded code back into the raw source text.
func unshield(s string) string {
	return html.UnescapeString(restore(s))
}
