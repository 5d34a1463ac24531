// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

import (
	"strings"
	"testing"
)

func plain() *Renderer {
	return New(WithStyles(PlainStyles()))
}

func TestRender_Plain(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty",
			input: "",
			want:  "<div></div>",
		},
		{
			name:  "single paragraph",
			input: "Hello there",
			want:  "<div><p>Hello there</p></div>",
		},
		{
			name:  "line break",
			input: "a\nb",
			want:  "<div><p>a<br>b</p></div>",
		},
		{
			name:  "paragraphs",
			input: "a\n\nb",
			want:  "<div><p>a</p><p>b</p></div>",
		},
		{
			name:  "crlf",
			input: "a\r\nb\r\n\r\nc",
			want:  "<div><p>a<br>b</p><p>c</p></div>",
		},
		{
			name:  "whitespace only line separates paragraphs",
			input: "a\n  \t\nb",
			want:  "<div><p>a</p><p>b</p></div>",
		},
		{
			name:  "escapes html",
			input: "<script>alert(1)</script>",
			want:  "<div><p>&lt;script&gt;alert(1)&lt;/script&gt;</p></div>",
		},
		{
			name:  "headers",
			input: "# Title\n## Sub\n### Small",
			want:  "<div><h1>Title</h1><h2>Sub</h2><h3>Small</h3></div>",
		},
		{
			name:  "four hashes stay literal",
			input: "#### four",
			want:  "<div><p>#### four</p></div>",
		},
		{
			name:  "empty header stays literal",
			input: "##   ",
			want:  "<div><p>##</p></div>",
		},
		{
			name:  "emphasis",
			input: "**bold** and *it* and ***both***",
			want:  "<div><p><strong>bold</strong> and <em>it</em> and <strong><em>both</em></strong></p></div>",
		},
		{
			name:  "unmatched bold stays literal",
			input: "**bold",
			want:  "<div><p>**bold</p></div>",
		},
		{
			name:  "inline code",
			input: "Run `go test` now",
			want:  "<div><p>Run <code>go test</code> now</p></div>",
		},
		{
			name:  "markers inside inline code are literal",
			input: "`**not bold**`",
			want:  "<div><p><code>**not bold**</code></p></div>",
		},
		{
			name:  "fence with language",
			input: "```go\nfmt.Println(\"hi\")\n```",
			want:  `<div><pre><code class="language-go">fmt.Println(&#34;hi&#34;)</code></pre></div>`,
		},
		{
			name:  "fence keeps syntax characters",
			input: "```\na | b: *c*\n```",
			want:  "<div><pre><code>a | b: *c*</code></pre></div>",
		},
		{
			name:  "fence keeps newlines",
			input: "```\nline1\nline2\n```",
			want:  "<div><pre><code>line1\nline2</code></pre></div>",
		},
		{
			name:  "fence inside a sentence becomes a block",
			input: "see ```x``` here",
			want:  "<div><p>see</p><pre><code>x</code></pre><p>here</p></div>",
		},
		{
			name:  "empty fence stays literal",
			input: "```\n```",
			want:  "<div><p>```\n```</p></div>",
		},
		{
			name:  "unterminated fence stays literal",
			input: "```abc",
			want:  "<div><p>```abc</p></div>",
		},
		{
			name:  "fence as a whole list item drops the marker",
			input: "- ```\ncode\n```",
			want:  "<div><pre><code>code</code></pre></div>",
		},
		{
			name:  "ordered fence item keeps its language",
			input: "1. ```go\nx := 1\n```",
			want:  `<div><pre><code class="language-go">x := 1</code></pre></div>`,
		},
		{
			name:  "fence after item text keeps the item",
			input: "- run ```make```",
			want:  "<div><ul><li><strong>run</strong></li></ul><pre><code>make</code></pre></div>",
		},
		{
			name:  "list then paragraph",
			input: "- item one\n- item two\n\nSome paragraph.",
			want:  "<div><ul><li><strong>item one</strong></li><li><strong>item two</strong></li></ul><p>Some paragraph.</p></div>",
		},
		{
			name:  "key value items",
			input: "1. Hours: 9am-9pm\n2. Delivery: Grab, Foodpanda",
			want:  "<div><ol><li><strong>Hours:</strong> 9am-9pm</li><li><strong>Delivery:</strong> Grab, Foodpanda</li></ol></div>",
		},
		{
			name:  "text around list",
			input: "Intro\n- a\nOutro",
			want:  "<div><p>Intro</p><ul><li><strong>a</strong></li></ul><p>Outro</p></div>",
		},
		{
			name:  "empty marker stays literal",
			input: "-   ",
			want:  "<div><p>-</p></div>",
		},
	}

	r := plain()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Render(tt.input)
			if got != tt.want {
				t.Errorf("Render(%q)\n got: %s\nwant: %s", tt.input, got, tt.want)
			}
			if err := Validate(got); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestRender_DefaultStyles(t *testing.T) {
	got := Render("- item one\n- item two\n\nSome paragraph.")

	want := `<div class="prose max-w-none">` +
		`<ul class="list-none space-y-1 mb-6 pl-0">` +
		`<li class="mb-2 flex items-start"><span class="text-black mr-3 mt-1 font-bold text-lg">•</span>` +
		`<span class="text-gray-900 text-base leading-relaxed"><strong>item one</strong></span></li>` +
		`<li class="mb-2 flex items-start"><span class="text-black mr-3 mt-1 font-bold text-lg">•</span>` +
		`<span class="text-gray-900 text-base leading-relaxed"><strong>item two</strong></span></li>` +
		`</ul>` +
		`<p class="mb-3">Some paragraph.</p>` +
		`</div>`
	if got != want {
		t.Errorf("Render()\n got: %s\nwant: %s", got, want)
	}
}

func TestRender_Empty(t *testing.T) {
	got := Render("")
	if got != `<div class="prose max-w-none"></div>` {
		t.Errorf("Render(\"\") = %q", got)
	}
	for _, tag := range []string{"<p", "<ul", "<ol", "<table"} {
		if strings.Contains(got, tag) {
			t.Errorf("Render(\"\") contains %s", tag)
		}
	}
	if err := Validate(got); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestRender_Deterministic(t *testing.T) {
	input := "# Menu\n\n| Item | Price |\n|---|---|\n| Nasi | 8 |\n\n- **Hot**: yes\n  - sub\n\n```go\nx := 1\n```"
	first := Render(input)
	for i := 0; i < 10; i++ {
		if got := Render(input); got != first {
			t.Fatalf("Render() not deterministic on run %d", i)
		}
	}
}

func TestRender_ControlCharacters(t *testing.T) {
	// Marker bytes used between stages must not be injectable.
	got := plain().Render("a\x01fb\x1cc\x02d\x03")
	if strings.ContainsAny(got, "\x01\x02\x03\x0e\x0f\x1c\x1d") {
		t.Errorf("Render() leaked control bytes: %q", got)
	}
	if err := Validate(got); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestTrace(t *testing.T) {
	r := New()
	results := r.Trace("# hi")

	want := []string{"normalize", "shield", "tables", "headers", "emphasis", "lists", "code", "breaks", "assemble", "restore"}
	if len(results) != len(want) {
		t.Fatalf("Trace() returned %d stages, want %d", len(results), len(want))
	}
	for i, name := range want {
		if results[i].Stage != name {
			t.Errorf("stage %d = %q, want %q", i, results[i].Stage, name)
		}
	}
	if last := results[len(results)-1].Output; last != r.Render("# hi") {
		t.Errorf("last trace output = %q, want Render output", last)
	}
	if !strings.HasPrefix(results[3].Output, "<h1") {
		t.Errorf("headers stage output = %q", results[3].Output)
	}
}

func TestStages(t *testing.T) {
	r := New()
	stages := r.Stages()
	stages[0] = Stage{Name: "mutated"}
	if r.Stages()[0].Name != "normalize" {
		t.Error("Stages() exposes internal slice")
	}

	text := "**x**"
	for _, s := range r.Stages() {
		text = s.Apply(text)
	}
	if text != r.Render("**x**") {
		t.Errorf("applying stages by hand = %q, want %q", text, r.Render("**x**"))
	}
}

func TestCustomStyles(t *testing.T) {
	st := PlainStyles()
	st.Strong = "b"
	st.Paragraph = `x" onclick="y`
	st.Unordered.Glyph = "*"
	st.Unordered.Bullet = "dot"

	got := New(WithStyles(st)).Render("**a** *b*\n\n- c")

	if !strings.Contains(got, `<strong class="b">a</strong>`) {
		t.Errorf("custom strong class missing: %s", got)
	}
	if !strings.Contains(got, `<p class="x&#34; onclick=&#34;y">`) {
		t.Errorf("class attribute not escaped: %s", got)
	}
	if !strings.Contains(got, `<span class="dot">*</span>`) {
		t.Errorf("glyph missing: %s", got)
	}
	if err := Validate(got); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestHighlighting(t *testing.T) {
	r := New(WithHighlighting("monokai"))
	if !r.Highlighting() {
		t.Fatal("Highlighting() = false")
	}

	got := r.Render("```go\nfunc main() {}\n```")
	if !strings.Contains(got, `class="text-sm font-mono language-go"`) {
		t.Errorf("language class missing: %s", got)
	}
	if !strings.Contains(got, "<span") {
		t.Errorf("expected highlighted spans: %s", got)
	}
	if err := Validate(got); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	var css strings.Builder
	if err := r.WriteCSS(&css); err != nil {
		t.Fatalf("WriteCSS() error = %v", err)
	}
	if !strings.Contains(css.String(), ".chroma") {
		t.Errorf("WriteCSS() missing .chroma rules")
	}
}

func TestHighlighting_UnknownLanguage(t *testing.T) {
	r := New(WithStyles(PlainStyles()), WithHighlighting(""))
	got := r.Render("```nosuchlang\nx = 1\n```")
	want := `<div><pre><code class="language-nosuchlang">x = 1</code></pre></div>`
	if got != want {
		t.Errorf("Render()\n got: %s\nwant: %s", got, want)
	}
}

func TestWriteCSS_Disabled(t *testing.T) {
	var css strings.Builder
	if err := New().WriteCSS(&css); err != nil {
		t.Fatalf("WriteCSS() error = %v", err)
	}
	if css.Len() != 0 {
		t.Errorf("WriteCSS() wrote %d bytes with highlighting off", css.Len())
	}
}
