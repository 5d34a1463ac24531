// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		markup  string
		wantErr bool
	}{
		{"empty wrapper", "<div></div>", false},
		{"paragraph with break", "<div><p>a<br>b</p></div>", false},
		{"list", "<ul><li>a</li><li>b</li></ul>", false},
		{"table", "<div><table><thead><tr><th>a</th></tr></thead></table></div>", false},
		{"list inside paragraph", "<p><ul><li>x</li></ul></p>", true},
		{"table inside paragraph", "<p><table><tr><td>x</td></tr></table></p>", true},
		{"unclosed", "<div><p>x</div>", true},
		{"never closed", "<div>", true},
		{"stray close", "</p>", true},
		{"item outside list", "<li>x</li>", true},
		{"empty paragraph", "<p></p>", true},
		{"empty list", "<ul></ul>", true},
		{"empty strong", "<p><strong></strong></p>", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.markup)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%q) error = %v, wantErr %v", tt.markup, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformed) {
				t.Errorf("error %v does not wrap ErrMalformed", err)
			}
		})
	}
}

// fragments is a vocabulary biased toward the grammar's edge cases.
var fragments = []string{
	"a", "b", "word", " ", "  ", "    ", "\t", "\n", "\n\n", "\r\n",
	"*", "**", "***", "`", "```", "```go\n", "|", "| ", " |", "|---|", ":", ": ",
	"#", "# ", "## ", "### ", "- ", "* ", "+ ", "1. ", "2) ",
	"<", ">", "&", "\"", "'", "<b>", "&amp;", "&#42;", "\x01", "\x1c",
	"é", "日本", "•",
}

func randomDocument(rng *rand.Rand) string {
	n := rng.Intn(40)
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(fragments[rng.Intn(len(fragments))])
	}
	return b.String()
}

func TestRender_WellFormedProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(20240601))
	renderers := map[string]*Renderer{
		"default": New(),
		"plain":   plain(),
	}

	for i := 0; i < 3000; i++ {
		doc := randomDocument(rng)
		for name, r := range renderers {
			got := r.Render(doc)
			if err := Validate(got); err != nil {
				t.Fatalf("%s: Render(%q) = %s\nValidate() error = %v", name, doc, got, err)
			}
			if again := r.Render(doc); again != got {
				t.Fatalf("%s: Render(%q) not deterministic", name, doc)
			}
		}
	}
}

func TestRender_NoBlockInParagraph(t *testing.T) {
	inputs := []string{
		"text\n- item\ntext",
		"text\n| a |\n|---|\n| 1 |\ntext",
		"text ```code``` text",
		"text\n# head\ntext",
		"- a\n\n| x |\n|---|\n| y |\n\n```\nz\n```",
	}
	for _, input := range inputs {
		got := Render(input)
		if err := Validate(got); err != nil {
			t.Errorf("Render(%q) = %s: %v", input, got, err)
		}
	}
}
