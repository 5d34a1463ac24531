// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

import (
	"regexp"
	"strings"
)

var (
	fenceRe = regexp.MustCompile(markFenceOpen + `([^` + markFenceEnd + `]*)` + markFenceEnd)
	spanRe  = regexp.MustCompile(markSpanOpen + `([^` + markSpanEnd + `]*)` + markSpanEnd)

	// langRe matches a fence info string such as "go", "c++" or "objective-c".
	langRe = regexp.MustCompile(`^[A-Za-z0-9_+#.-]+$`)
)

// code renders shielded fences as preformatted blocks, then inline spans.
func (r *Renderer) code(s string) string {
	s = replaceSubmatch(fenceRe, s, func(m []string) string {
		return r.fence(m[1])
	})
	inline := open("code", r.styles.InlineCode)
	return replaceSubmatch(spanRe, s, func(m []string) string {
		return inline + m[1] + "</code>"
	})
}

// fence renders one fenced block. An info string on the first line becomes
// a language class. A fence with no body stays literal.
func (r *Renderer) fence(body string) string {
	raw := body
	lang := ""
	if nl := strings.Index(body, entNewline); nl >= 0 {
		if first := body[:nl]; first == "" || langRe.MatchString(first) {
			lang = first
			body = body[nl+len(entNewline):]
		}
	}
	body = strings.TrimSuffix(body, entNewline)

	if strings.TrimSpace(unshield(body)) == "" {
		return entBacktick + entBacktick + entBacktick + raw + entBacktick + entBacktick + entBacktick
	}

	codeClass := r.styles.PreCode
	if lang != "" {
		codeClass = joinClass(codeClass, "language-"+strings.ToLower(lang))
	}
	if r.highlighter != nil {
		if hl, ok := r.highlighter.highlight(lang, unshield(body)); ok {
			body = strings.ReplaceAll(hl, "\n", entNewline)
		}
	}
	return open("pre", r.styles.Pre) + open("code", codeClass) + body + "</code></pre>"
}
