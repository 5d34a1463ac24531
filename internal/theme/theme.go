// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package theme loads markup style tables from TOML files and rebuilds the
// renderer when a style file changes on disk.
//
// A style file only needs the keys it changes; everything else keeps the
// default Tailwind classes:
//
//	paragraph = "my-2 leading-7"
//
//	[unordered]
//	glyph = "→"
package theme

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/rigmark/internal/config"
	"github.com/jeranaias/rigmark/internal/markup"
	"github.com/jeranaias/rigmark/internal/util"
)

var (
	// ErrEmptyPath is returned when a style file path is required but empty.
	ErrEmptyPath = errors.New("theme: empty styles path")

	// ErrUnknownKeys is returned when a style file names keys the style
	// table does not have, which is almost always a typo.
	ErrUnknownKeys = errors.New("theme: unknown style keys")
)

// Load reads a TOML style file and overlays it on the default style table.
func Load(path string) (markup.StyleTable, error) {
	if path == "" {
		return markup.StyleTable{}, ErrEmptyPath
	}
	table := markup.DefaultStyles()
	md, err := toml.DecodeFile(path, &table)
	if err != nil {
		return markup.StyleTable{}, fmt.Errorf("failed to decode style file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return markup.StyleTable{}, fmt.Errorf("%w in %s: %s", ErrUnknownKeys, path, strings.Join(keys, ", "))
	}
	return table, nil
}

// Save writes a complete style table as TOML, for use as a starting point.
func Save(path string, table markup.StyleTable) error {
	if path == "" {
		return ErrEmptyPath
	}
	var buf bytes.Buffer
	buf.WriteString("# rigmark style table\n")
	buf.WriteString("# Keys left out fall back to the built-in classes. Empty strings drop the class attribute.\n\n")
	if err := toml.NewEncoder(&buf).Encode(table); err != nil {
		return fmt.Errorf("failed to encode style table: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write style file: %w", err)
	}
	return nil
}

// NewRenderer builds a renderer from the render settings, loading the style
// file when one is configured.
func NewRenderer(cfg config.RenderConfig) (*markup.Renderer, error) {
	table := markup.DefaultStyles()
	if cfg.StylesFile != "" {
		t, err := Load(cfg.StylesFile)
		if err != nil {
			return nil, err
		}
		table = t
	}
	return Build(cfg, table), nil
}

// Build creates a renderer for an already loaded style table.
func Build(cfg config.RenderConfig, table markup.StyleTable) *markup.Renderer {
	opts := []markup.Option{markup.WithStyles(table)}
	if cfg.Highlight {
		opts = append(opts, markup.WithHighlighting(cfg.HighlightStyle))
	}
	return markup.New(opts...)
}
