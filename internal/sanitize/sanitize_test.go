// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sanitize

import (
	"strings"
	"testing"

	"github.com/jeranaias/rigmark/internal/markup"
)

func TestHTML_KeepsRendererOutput(t *testing.T) {
	inputs := []string{
		"# Title\n\nSome **bold** and *italic* text with `code`.",
		"| A | B |\n|---|---|\n| 1 | 2 |",
		"- one\n  - two\n    - three\n1. Hours: 9am",
		"```go\nfmt.Println(\"x\")\n```",
	}
	for _, input := range inputs {
		rendered := markup.Render(input)
		if got := HTML(rendered); got != rendered {
			t.Errorf("HTML() changed renderer output\n  in: %s\n out: %s", rendered, got)
		}
	}
}

func TestHTML_StripsUnsafe(t *testing.T) {
	tests := []struct {
		input   string
		banned  string
		keeping string
	}{
		{`<p class="x" onclick="alert(1)">hi</p>`, "onclick", `<p class="x">hi</p>`},
		{`<div><script>alert(1)</script>ok</div>`, "<script", "ok"},
		{`<a href="javascript:alert(1)">x</a>`, "javascript", "x"},
		{`<span style="color:red">x</span>`, "style", "<span>x</span>"},
		{`<img src=x onerror=alert(1)>`, "<img", ""},
	}
	for _, tt := range tests {
		got := HTML(tt.input)
		if strings.Contains(got, tt.banned) {
			t.Errorf("HTML(%q) = %q, still contains %q", tt.input, got, tt.banned)
		}
		if !strings.Contains(got, tt.keeping) {
			t.Errorf("HTML(%q) = %q, want it to contain %q", tt.input, got, tt.keeping)
		}
	}
}

func TestPolicy_Shared(t *testing.T) {
	if Policy() != Policy() {
		t.Error("Policy() returned different instances")
	}
}
