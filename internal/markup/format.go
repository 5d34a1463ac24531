// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

import (
	"regexp"
	"strings"
)

// =============================================================================
// HEADERS
// =============================================================================

var headerRes = [...]struct {
	re  *regexp.Regexp
	tag string
}{
	{regexp.MustCompile(`(?m)^### (.+)$`), "h3"},
	{regexp.MustCompile(`(?m)^## (.+)$`), "h2"},
	{regexp.MustCompile(`(?m)^# (.+)$`), "h1"},
}

func (r *Renderer) headers(s string) string {
	for _, h := range headerRes {
		cls := r.headerClass(h.tag)
		s = replaceSubmatch(h.re, s, func(m []string) string {
			text := strings.TrimSpace(m[1])
			if text == "" {
				return m[0]
			}
			return open(h.tag, cls) + text + "</" + h.tag + ">"
		})
	}
	return s
}

func (r *Renderer) headerClass(tag string) string {
	switch tag {
	case "h1":
		return r.styles.H1
	case "h2":
		return r.styles.H2
	default:
		return r.styles.H3
	}
}

// =============================================================================
// EMPHASIS
// =============================================================================

// Emphasis content must not start or end with whitespace or a marker and
// never contains a tag, so a match cannot straddle markup produced earlier.
var (
	boldItalicRe = regexp.MustCompile(`\*\*\*([^\s*<>\x02](?:[^<>\n\x02]*?[^\s*<>\x02])?)\*\*\*`)
	boldRe       = regexp.MustCompile(`\*\*([^\s*<>\x02](?:[^<>\n\x02]*?[^\s*<>\x02])?)\*\*`)
	italicRe     = regexp.MustCompile(`\*([^\s*<>\x02](?:[^*<>\n\x02]*?[^\s*<>\x02])?)\*`)
)

func (r *Renderer) emphasis(s string) string {
	strong := open("strong", r.styles.Strong)
	em := open("em", r.styles.Em)

	s = boldItalicRe.ReplaceAllStringFunc(s, func(m string) string {
		return strong + em + m[3:len(m)-3] + "</em></strong>"
	})
	s = boldRe.ReplaceAllStringFunc(s, func(m string) string {
		return strong + m[2:len(m)-2] + "</strong>"
	})
	return italicRe.ReplaceAllStringFunc(s, func(m string) string {
		return em + m[1:len(m)-1] + "</em>"
	})
}

// =============================================================================
// LISTS
// =============================================================================

// shape identifies a list kind and nesting level.
type shape byte

const (
	shapeOrderedNested shape = 'a' + iota
	shapeUnorderedNested
	shapeOrderedSub
	shapeUnorderedSub
	shapeOrdered
	shapeUnordered
)

func (s shape) ordered() bool {
	return s == shapeOrderedNested || s == shapeOrderedSub || s == shapeOrdered
}

const (
	indentNested = `^(?: {4,}|\t\t+)`
	indentSub    = `^(?: {2,3}|\t)`
	indentTop    = `^ ?`

	markerOrdered   = `\d+[.)]`
	markerUnordered = `[*+-]`

	itemRest = `[ \t]+(.+)$`
)

// listRes is ordered most specific first.
var listRes = [...]struct {
	re    *regexp.Regexp
	shape shape
}{
	{regexp.MustCompile(`(?m)` + indentNested + markerOrdered + itemRest), shapeOrderedNested},
	{regexp.MustCompile(`(?m)` + indentNested + markerUnordered + itemRest), shapeUnorderedNested},
	{regexp.MustCompile(`(?m)` + indentSub + markerOrdered + itemRest), shapeOrderedSub},
	{regexp.MustCompile(`(?m)` + indentSub + markerUnordered + itemRest), shapeUnorderedSub},
	{regexp.MustCompile(`(?m)` + indentTop + markerOrdered + itemRest), shapeOrdered},
	{regexp.MustCompile(`(?m)` + indentTop + markerUnordered + itemRest), shapeUnordered},
}

func (r *Renderer) lists(s string) string {
	for _, l := range listRes {
		sh := l.shape
		s = replaceSubmatch(l.re, s, func(m []string) string {
			text := strings.TrimSpace(m[1])
			if text == "" {
				return m[0]
			}
			return markItem + string(sh) + r.listItem(sh, text)
		})
	}
	return s
}

// listItem renders one item. "key: value" items emphasize the key only;
// anything else is emphasized whole.
func (r *Renderer) listItem(sh shape, text string) string {
	ls := r.styles.list(sh)
	strong := open("strong", r.styles.KeyStrong)

	var content string
	if key, value, ok := splitKey(text); ok {
		content = strong + key + ":</strong>"
		if value != "" {
			content += " " + value
		}
	} else {
		content = strong + text + "</strong>"
	}

	var b strings.Builder
	b.WriteString(open("li", ls.Item))
	if ls.Glyph != "" {
		b.WriteString(open("span", ls.Bullet))
		b.WriteString(attrEscape(ls.Glyph))
		b.WriteString("</span>")
		b.WriteString(open("span", ls.Text))
		b.WriteString(content)
		b.WriteString("</span>")
	} else {
		b.WriteString(content)
	}
	b.WriteString("</li>")
	return b.String()
}

// splitKey splits at the first colon that sits outside any element and
// has a non-empty key before it.
func splitKey(text string) (key, value string, ok bool) {
	depth := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '<':
			end := strings.IndexByte(text[i:], '>')
			if end < 0 {
				return "", "", false
			}
			if i+1 < len(text) && text[i+1] == '/' {
				depth--
			} else {
				depth++
			}
			i += end
		case ':':
			if depth != 0 {
				continue
			}
			key = strings.TrimSpace(text[:i])
			if key == "" {
				continue
			}
			return key, strings.TrimSpace(text[i+1:]), true
		}
	}
	return "", "", false
}

// replaceSubmatch is ReplaceAllStringFunc with access to submatches.
func replaceSubmatch(re *regexp.Regexp, s string, fn func([]string) string) string {
	idx := re.FindAllStringSubmatchIndex(s, -1)
	if idx == nil {
		return s
	}

	var b strings.Builder
	last := 0
	for _, loc := range idx {
		b.WriteString(s[last:loc[0]])
		groups := make([]string, len(loc)/2)
		for g := range groups {
			if loc[2*g] >= 0 {
				groups[g] = s[loc[2*g]:loc[2*g+1]]
			}
		}
		b.WriteString(fn(groups))
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}
