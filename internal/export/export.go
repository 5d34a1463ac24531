// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jeranaias/rigmark/internal/config"
	"github.com/jeranaias/rigmark/internal/markup"
	"github.com/jeranaias/rigmark/internal/storage"
	"github.com/jeranaias/rigmark/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for conversation exporters.
type Exporter interface {
	// Export converts a conversation to the target format and returns the content.
	Export(conv *storage.StoredConversation) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md", ".html").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// Errors returned by exporters.
var (
	ErrNilConversation   = errors.New("conversation is nil")
	ErrEmptyConversation = errors.New("conversation has no messages")
	ErrUnknownFormat     = errors.New("unsupported export format")
)

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata includes metadata header (timestamp, model, stats).
	IncludeMetadata bool

	// IncludeTimestamps includes per-message timestamps.
	IncludeTimestamps bool

	// Theme for HTML export ("light" or "dark").
	Theme string

	// Renderer turns assistant text into markup. Nil uses markup.New().
	Renderer *markup.Renderer

	// Sanitize passes rendered markup through the sanitizer policy.
	Sanitize bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		Theme:             "light",
		Sanitize:          true,
	}
}

// OptionsFromConfig builds export options from the [export] and [render] sections.
func OptionsFromConfig(cfg *config.Config, renderer *markup.Renderer) *Options {
	return &Options{
		OutputDir:         cfg.Export.OutputDir,
		IncludeMetadata:   cfg.Export.IncludeMetadata,
		IncludeTimestamps: cfg.Export.IncludeTimestamps,
		Theme:             cfg.Export.Theme,
		Renderer:          renderer,
		Sanitize:          cfg.Render.Sanitize,
	}
}

func (o *Options) renderer() *markup.Renderer {
	if o.Renderer == nil {
		o.Renderer = markup.New()
	}
	return o.Renderer
}

// Formats lists the names accepted by ForFormat.
var Formats = []string{"html", "md", "json"}

// ForFormat returns the exporter for a format name.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports a conversation into opts.OutputDir under a generated
// name and returns the output file path.
func ExportToFile(conv *storage.StoredConversation, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if conv == nil {
		return "", ErrNilConversation
	}

	filename := fmt.Sprintf("conversation_%s_%s%s",
		sanitizeFilename(conv.Title),
		time.Now().Format("20060102_150405"),
		exporter.FileExtension(),
	)
	outputPath := filepath.Join(opts.OutputDir, filename)

	if err := WriteFile(conv, exporter, outputPath); err != nil {
		return "", err
	}

	if opts.OpenAfterExport {
		if err := OpenFile(outputPath); err != nil {
			// Non-fatal, the file was still written.
			fmt.Fprintf(os.Stderr, "Warning: Could not open file: %v\n", err)
		}
	}

	return outputPath, nil
}

// WriteFile exports a conversation to an explicit path, atomically.
func WriteFile(conv *storage.StoredConversation, exporter Exporter, path string) error {
	content, err := exporter.Export(conv)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, content, 0644, 0755); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func checkConversation(conv *storage.StoredConversation) error {
	if conv == nil {
		return ErrNilConversation
	}
	if len(conv.Messages) == 0 {
		return ErrEmptyConversation
	}
	return nil
}

func conversationTitle(conv *storage.StoredConversation) string {
	if conv.Title != "" {
		return conv.Title
	}
	if preview := conv.Preview(); preview != "" {
		return preview
	}
	return "Conversation"
}

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(s, 50)

	result := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			result = append(result, '_')
		case strings.ContainsRune(`/\:*?"<>|`, r), r < 32, r == 127:
			result = append(result, '-')
		default:
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "conversation"
	}
	return string(result)
}

// OpenFile opens a file in the default application for the OS.
func OpenFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// formatDuration formats a duration in milliseconds to a human-readable string.
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	seconds := float64(ms) / 1000.0
	if seconds < 60 {
		return fmt.Sprintf("%.2fs", seconds)
	}
	minutes := int(seconds / 60)
	remainingSeconds := int(seconds) % 60
	return fmt.Sprintf("%dm %ds", minutes, remainingSeconds)
}

func formatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatShortTimestamp(t time.Time) string {
	return t.Local().Format("15:04:05")
}

// roleLabel returns a display label for the message role.
func roleLabel(role string) string {
	switch role {
	case "":
		return "Unknown"
	case "user":
		return "User"
	case "assistant":
		return "Assistant"
	case "system":
		return "System"
	default:
		runes := []rune(role)
		return strings.ToUpper(string(runes[0])) + strings.ToLower(string(runes[1:]))
	}
}
