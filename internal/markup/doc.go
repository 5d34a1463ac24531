// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markup converts model output written in a small markdown dialect
// into style-annotated HTML that can be dropped straight into a chat bubble.
//
// The conversion is a fixed pipeline of pure string stages. Each stage scans
// the whole document, rewrites what its grammar matches and leaves everything
// else alone, so malformed input degrades to literal text instead of errors.
//
// # Supported Dialect
//
//   - Headers: "# ", "## ", "### " at the start of a line
//   - Emphasis: ***bold italic***, **bold**, *italic*
//   - Lists: "-", "*", "+" or "1." / "1)" markers, nested by two or four spaces
//   - Code: ``` fenced blocks (optional language) and `inline` spans
//   - Tables: pipe-delimited header, separator and body rows
//
// # Stages
//
//	normalize -> shield -> tables -> headers -> emphasis -> lists ->
//	code -> breaks -> assemble -> restore
//
// All input text is HTML-escaped by the normalize stage before any other
// stage runs, so the output is safe to insert without further escaping.
//
// # Usage
//
//	html := markup.Render("## Menu\n\n- **Nasi lemak**: RM 8")
//
// Custom styling and highlighting:
//
//	r := markup.New(
//		markup.WithStyles(table),
//		markup.WithHighlighting("monokai"),
//	)
//	html := r.Render(text)
//
// A Renderer is immutable once built and safe for concurrent use.
package markup
