// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

import (
	"regexp"
	"strings"
)

var (
	paraBreakRe = regexp.MustCompile(`\n(?:[ \t]*\n)+`)

	// blockRe recognizes lines that already are block-level units.
	blockRe = regexp.MustCompile(`^<(?:h[1-6]|div|table|pre|ul|ol)\b`)
)

// breaks turns blank lines into paragraph markers and the remaining
// newlines into line-break markers.
func breaks(s string) string {
	s = paraBreakRe.ReplaceAllString(s, markPara)
	return strings.ReplaceAll(s, "\n", markBreak)
}

// assemble builds the final tree: runs of same-shape list items are wrapped
// in one list container, inline lines are joined into paragraphs and block
// units are emitted on their own. Nothing block-level is ever placed inside
// a paragraph.
func (r *Renderer) assemble(s string) string {
	var b strings.Builder
	b.WriteString(open("div", r.styles.Wrapper))

	for _, chunk := range strings.Split(s, markPara) {
		a := assembler{r: r, b: &b}
		for _, line := range strings.Split(chunk, markBreak) {
			a.line(line)
		}
		a.flush()
	}

	b.WriteString("</div>")
	return b.String()
}

// assembler tracks the open paragraph or list within one chunk.
type assembler struct {
	r      *Renderer
	b      *strings.Builder
	para   []string
	list   shape
	inList bool
}

func (a *assembler) line(line string) {
	if strings.HasPrefix(line, markItem) && len(line) > 1 {
		sh := shape(line[1])
		a.flushPara()
		if a.inList && a.list != sh {
			a.closeList()
		}
		if !a.inList {
			ls := a.r.styles.list(sh)
			a.b.WriteString(open(listTag(sh), ls.Container))
			a.list, a.inList = sh, true
		}
		a.b.WriteString(line[2:])
		return
	}

	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	if blockRe.MatchString(trimmed) {
		a.flush()
		a.b.WriteString(trimmed)
		return
	}
	a.closeList()
	a.para = append(a.para, trimmed)
}

func (a *assembler) flush() {
	a.closeList()
	a.flushPara()
}

func (a *assembler) closeList() {
	if !a.inList {
		return
	}
	a.b.WriteString("</" + listTag(a.list) + ">")
	a.inList = false
}

func (a *assembler) flushPara() {
	if len(a.para) == 0 {
		return
	}
	a.b.WriteString(open("p", a.r.styles.Paragraph))
	a.b.WriteString(strings.Join(a.para, "<br>"))
	a.b.WriteString("</p>")
	a.para = a.para[:0]
}

func listTag(sh shape) string {
	if sh.ordered() {
		return "ol"
	}
	return "ul"
}
