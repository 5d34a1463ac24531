// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export_cmd.go - Export a stored conversation to HTML, Markdown or JSON.
//
// Examples:
//
//	rigmark export 3f2a
//	rigmark export 3f2a --format md --out notes/lunch.md
//	rigmark export 3f2a --theme dark --open
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/rigmark/internal/config"
	"github.com/jeranaias/rigmark/internal/export"
	"github.com/jeranaias/rigmark/internal/markup"
	"github.com/jeranaias/rigmark/internal/storage"
)

// exportOptions holds the parsed flags of the export command.
type exportOptions struct {
	ID     string
	Format string
	Out    string
	Theme  string
	Open   bool
}

func parseExportArgs(raw []string) (exportOptions, error) {
	p := NewArgParser(raw, "open")
	opts := exportOptions{
		ID:     p.Positional(0),
		Format: strings.ToLower(p.Flag("format", "f")),
		Out:    p.Flag("out", "o"),
		Theme:  strings.ToLower(p.Flag("theme")),
		Open:   p.BoolFlag("open"),
	}
	if opts.ID == "" {
		return opts, ErrMissingArgument("ID", "rigmark export ID [--format html|md|json]")
	}
	if opts.Format == "" {
		opts.Format = "html"
	}
	if _, err := export.ForFormat(opts.Format, nil); err != nil {
		return opts, ErrUnsupportedFormat(opts.Format, export.Formats)
	}
	if opts.Theme != "" && opts.Theme != "light" && opts.Theme != "dark" {
		return opts, NewValidationErrorWithExample("theme", opts.Theme, "must be light or dark", "--theme dark")
	}
	return opts, nil
}

// HandleExport handles the "export" command.
func HandleExport(args Args) error {
	opts, err := parseExportArgs(args.Raw)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	r, err := newRenderer(cfg)
	if err != nil {
		return err
	}
	store, err := requireStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	conv, err := resolveConversation(context.Background(), store, opts.ID)
	if err != nil {
		return err
	}

	path, err := runExport(conv, opts, cfg, r)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("export", ExportData{
			ConversationID: conv.ID,
			Format:         opts.Format,
			Path:           path,
		}).Print(os.Stdout)
	}
	if !args.Quiet {
		fmt.Printf("%s Exported %s (%d messages) to %s\n",
			SuccessStyle.Render("[OK]"), storage.ShortID(conv.ID), conv.MessageCount(), path)
	}
	return nil
}

// runExport writes conv using the configured export options, overridden by
// the command flags, and returns the output path.
func runExport(conv *storage.StoredConversation, opts exportOptions, cfg *config.Config, r *markup.Renderer) (string, error) {
	exportOpts := export.OptionsFromConfig(cfg, r)
	if opts.Theme != "" {
		exportOpts.Theme = opts.Theme
	}
	exportOpts.OpenAfterExport = opts.Open

	exporter, err := export.ForFormat(opts.Format, exportOpts)
	if err != nil {
		return "", err
	}

	if opts.Out == "" {
		return export.ExportToFile(conv, exporter, exportOpts)
	}
	if err := export.WriteFile(conv, exporter, opts.Out); err != nil {
		return "", err
	}
	if opts.Open {
		if err := export.OpenFile(opts.Out); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Could not open file: %v\n", err)
		}
	}
	return opts.Out, nil
}
