// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

import (
	"html"
	"strings"
)

// ListStyle holds the classes used for one list shape.
// Glyph, when set, is rendered in its own span ahead of the item text.
type ListStyle struct {
	Container string `toml:"container" json:"container"`
	Item      string `toml:"item" json:"item"`
	Bullet    string `toml:"bullet" json:"bullet"`
	Glyph     string `toml:"glyph" json:"glyph"`
	Text      string `toml:"text" json:"text"`
}

// StyleTable maps every element the renderer emits to its class attribute.
// An empty class omits the attribute entirely.
type StyleTable struct {
	Wrapper   string `toml:"wrapper" json:"wrapper"`
	Paragraph string `toml:"paragraph" json:"paragraph"`

	H1 string `toml:"h1" json:"h1"`
	H2 string `toml:"h2" json:"h2"`
	H3 string `toml:"h3" json:"h3"`

	Strong    string `toml:"strong" json:"strong"`
	Em        string `toml:"em" json:"em"`
	KeyStrong string `toml:"key_strong" json:"key_strong"`

	TableWrapper string `toml:"table_wrapper" json:"table_wrapper"`
	Table        string `toml:"table" json:"table"`
	HeaderCell   string `toml:"header_cell" json:"header_cell"`
	Row          string `toml:"row" json:"row"`
	Cell         string `toml:"cell" json:"cell"`
	CellEven     string `toml:"cell_even" json:"cell_even"`
	CellOdd      string `toml:"cell_odd" json:"cell_odd"`

	Pre        string `toml:"pre" json:"pre"`
	PreCode    string `toml:"pre_code" json:"pre_code"`
	InlineCode string `toml:"inline_code" json:"inline_code"`

	Ordered         ListStyle `toml:"ordered" json:"ordered"`
	OrderedSub      ListStyle `toml:"ordered_sub" json:"ordered_sub"`
	OrderedNested   ListStyle `toml:"ordered_nested" json:"ordered_nested"`
	Unordered       ListStyle `toml:"unordered" json:"unordered"`
	UnorderedSub    ListStyle `toml:"unordered_sub" json:"unordered_sub"`
	UnorderedNested ListStyle `toml:"unordered_nested" json:"unordered_nested"`
}

// DefaultStyles returns the Tailwind class table used by the chat front end.
func DefaultStyles() StyleTable {
	return StyleTable{
		Wrapper:   "prose max-w-none",
		Paragraph: "mb-3",

		H1: "text-2xl font-bold mt-8 mb-1 text-gray-900",
		H2: "text-xl font-bold mt-8 mb-1 text-gray-800",
		H3: "text-lg font-semibold mt-6 mb-1 text-gray-800",

		Strong: "font-semibold text-gray-900",
		Em:     "italic text-gray-700",

		TableWrapper: "overflow-x-auto my-6 shadow-lg rounded-lg border-4 border-gray-400",
		Table:        "min-w-full border-collapse bg-white",
		HeaderCell:   "px-6 py-4 bg-black text-white font-bold text-left border-2 border-gray-700",
		Row:          "hover:bg-gray-100 transition-colors",
		Cell:         "px-6 py-3 border-2 border-gray-300",
		CellEven:     "bg-gray-50",
		CellOdd:      "bg-white",

		Pre:        "bg-gray-100 p-4 rounded-lg my-3 overflow-x-auto",
		PreCode:    "text-sm font-mono",
		InlineCode: "bg-gray-100 px-2 py-1 rounded text-sm font-mono",

		Ordered: ListStyle{
			Container: "list-none space-y-1 mb-6 pl-0",
			Item:      "mb-2 text-gray-900 text-base leading-relaxed",
		},
		OrderedSub: ListStyle{
			Container: "list-none space-y-1 mb-4 pl-0",
			Item:      "ml-8 mb-2 text-gray-700",
		},
		OrderedNested: ListStyle{
			Container: "list-none space-y-1 mb-4 pl-0",
			Item:      "ml-12 mb-1 text-gray-600",
		},
		Unordered: ListStyle{
			Container: "list-none space-y-1 mb-6 pl-0",
			Item:      "mb-2 flex items-start",
			Bullet:    "text-black mr-3 mt-1 font-bold text-lg",
			Glyph:     "•",
			Text:      "text-gray-900 text-base leading-relaxed",
		},
		UnorderedSub: ListStyle{
			Container: "list-none space-y-1 mb-4 pl-0",
			Item:      "ml-6 mb-1 flex items-start",
			Bullet:    "text-black mr-3 mt-1 font-bold",
			Glyph:     "▪",
			Text:      "text-gray-700",
		},
		UnorderedNested: ListStyle{
			Container: "list-none space-y-1 mb-4 pl-0",
			Item:      "ml-12 mb-1 flex items-start",
			Bullet:    "text-black mr-3 mt-1 font-bold",
			Glyph:     "◦",
			Text:      "text-gray-600",
		},
	}
}

// PlainStyles returns a table with every class empty, producing bare HTML.
func PlainStyles() StyleTable {
	return StyleTable{}
}

// list returns the style for a list shape.
func (t *StyleTable) list(s shape) ListStyle {
	switch s {
	case shapeOrderedNested:
		return t.OrderedNested
	case shapeOrderedSub:
		return t.OrderedSub
	case shapeOrdered:
		return t.Ordered
	case shapeUnorderedNested:
		return t.UnorderedNested
	case shapeUnorderedSub:
		return t.UnorderedSub
	default:
		return t.Unordered
	}
}

// open builds an opening tag, omitting the class attribute when cls is empty.
func open(tag, cls string) string {
	if cls == "" {
		return "<" + tag + ">"
	}
	return "<" + tag + ` class="` + attrEscape(cls) + `">`
}

// attrEscape escapes a class value. Asterisks are shielded as well so the
// emphasis stage never pairs markers found inside attributes; the restore
// stage turns them back.
func attrEscape(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "*", entStar)
}

// joinClass joins two classes with a single space, skipping empties.
func joinClass(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
