// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Shared wiring used by several commands: configuration,
// the conversation store, the Ollama client and the renderer.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jeranaias/rigmark/internal/config"
	"github.com/jeranaias/rigmark/internal/markup"
	"github.com/jeranaias/rigmark/internal/ollama"
	"github.com/jeranaias/rigmark/internal/storage"
	"github.com/jeranaias/rigmark/internal/theme"
)

// MaxInputBytes bounds text read by render from a file or stdin.
const MaxInputBytes = 8 << 20

// loadConfig loads the config file named by --config, or the default one,
// and applies the --model override.
func loadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if args.Model != "" {
		cfg.Ollama.Model = args.Model
	}
	config.SetGlobal(cfg)
	return cfg, nil
}

// openStore opens the conversation database. It returns nil, nil when
// storage is disabled.
func openStore(cfg *config.Config) (*storage.Store, error) {
	if !cfg.Storage.Enabled {
		return nil, nil
	}
	path, err := cfg.StoragePath()
	if err != nil {
		return nil, err
	}
	return storage.Open(path)
}

// requireStore is openStore for commands that cannot work without history.
func requireStore(cfg *config.Config) (*storage.Store, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, NewValidationErrorWithExample("storage.enabled", "false",
			"conversation storage is disabled", "rigmark config set storage.enabled true")
	}
	return store, nil
}

// newOllamaClient builds a client from the [ollama] section.
func newOllamaClient(cfg *config.Config) *ollama.Client {
	return ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.Ollama.URL,
		Timeout:      cfg.Ollama.Timeout(),
		DefaultModel: cfg.Ollama.Model,
		MaxRetries:   cfg.Ollama.MaxRetries,
		RetryDelay:   time.Second,
	})
}

// newRenderer builds the renderer from the [render] section.
func newRenderer(cfg *config.Config) (*markup.Renderer, error) {
	r, err := theme.NewRenderer(cfg.Render)
	if err != nil {
		return nil, WrapError(err, "failed to load styles")
	}
	return r, nil
}

// resolveConversation expands an ID prefix and loads the conversation.
func resolveConversation(ctx context.Context, store *storage.Store, prefix string) (*storage.StoredConversation, error) {
	id, err := store.Resolve(ctx, prefix)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &NotFoundError{Resource: "conversation", ID: prefix}
		}
		return nil, err
	}
	return store.Load(ctx, id)
}

// readInput reads text from path, or from stdin when path is "" or "-".
func readInput(path string, stdin io.Reader) (string, error) {
	r := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxInputBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	if len(data) > MaxInputBytes {
		return "", fmt.Errorf("input exceeds %s", formatBytes(MaxInputBytes))
	}
	return string(data), nil
}

// formatDurationShort formats a short duration string.
func formatDurationShort(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", m, s)
}

// formatBytes formats a byte count for display.
func formatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
