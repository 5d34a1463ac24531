// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

// Stage is one named pass of the pipeline.
type Stage struct {
	Name string
	fn   func(string) string
}

// Apply runs the stage on s.
func (s Stage) Apply(in string) string {
	return s.fn(in)
}

// StageResult is the document as it stood after a stage ran.
type StageResult struct {
	Stage  string
	Output string
}

// Renderer converts model output into styled HTML.
type Renderer struct {
	styles      StyleTable
	highlighter *highlighter
	stages      []Stage
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithStyles replaces the default style table.
func WithStyles(t StyleTable) Option {
	return func(r *Renderer) {
		r.styles = t
	}
}

// WithHighlighting enables chroma highlighting of fenced code that names a
// language. An unknown style name falls back to chroma's default style.
func WithHighlighting(style string) Option {
	return func(r *Renderer) {
		if style == "" {
			style = DefaultHighlightStyle
		}
		r.highlighter = newHighlighter(style)
	}
}

// New creates a Renderer. The default style table is used unless
// WithStyles is given.
func New(opts ...Option) *Renderer {
	r := &Renderer{styles: DefaultStyles()}
	for _, opt := range opts {
		opt(r)
	}
	r.stages = []Stage{
		{"normalize", normalize},
		{"shield", shield},
		{"tables", r.tables},
		{"headers", r.headers},
		{"emphasis", r.emphasis},
		{"lists", r.lists},
		{"code", r.code},
		{"breaks", breaks},
		{"assemble", r.assemble},
		{"restore", restore},
	}
	return r
}

var defaultRenderer = New()

// Render converts text using the default style table.
func Render(text string) string {
	return defaultRenderer.Render(text)
}

// Render converts text into markup. It never fails: anything the grammar
// does not recognize is kept as escaped literal text.
func (r *Renderer) Render(text string) string {
	for _, s := range r.stages {
		text = s.fn(text)
	}
	return text
}

// Trace renders text and records the document after every stage.
func (r *Renderer) Trace(text string) []StageResult {
	results := make([]StageResult, 0, len(r.stages))
	for _, s := range r.stages {
		text = s.fn(text)
		results = append(results, StageResult{Stage: s.Name, Output: text})
	}
	return results
}

// Stages returns the pipeline in execution order.
func (r *Renderer) Stages() []Stage {
	out := make([]Stage, len(r.stages))
	copy(out, r.stages)
	return out
}

// Styles returns a copy of the renderer's style table.
func (r *Renderer) Styles() StyleTable {
	return r.styles
}

// Highlighting reports whether fenced code is highlighted.
func (r *Renderer) Highlighting() bool {
	return r.highlighter != nil
}
