// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render_cmd.go - The "render" command: model text in, markup out.
//
// Examples:
//
//	rigmark render reply.md
//	cat reply.md | rigmark render --check
//	rigmark render reply.md --trace --plain
//	rigmark render reply.md -o reply.html --preview --copy
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/rigmark/internal/config"
	"github.com/jeranaias/rigmark/internal/markup"
	"github.com/jeranaias/rigmark/internal/sanitize"
	"github.com/jeranaias/rigmark/internal/theme"
	"github.com/jeranaias/rigmark/internal/util"
)

// renderOptions holds the parsed flags of the render command.
type renderOptions struct {
	Input     string
	Out       string
	Styles    string
	Check     bool
	Trace     bool
	Preview   bool
	Copy      bool
	Highlight bool
	Plain     bool
}

var renderBoolFlags = []string{"check", "trace", "preview", "copy", "highlight", "plain"}

func parseRenderArgs(raw []string) renderOptions {
	p := NewArgParser(raw, renderBoolFlags...)
	return renderOptions{
		Input:     p.Positional(0),
		Out:       p.Flag("out", "o"),
		Styles:    p.Flag("styles"),
		Check:     p.BoolFlag("check"),
		Trace:     p.BoolFlag("trace"),
		Preview:   p.BoolFlag("preview"),
		Copy:      p.BoolFlag("copy"),
		Highlight: p.BoolFlag("highlight"),
		Plain:     p.BoolFlag("plain"),
	}
}

// HandleRender handles the "render" command.
func HandleRender(args Args) error {
	opts := parseRenderArgs(args.Raw)

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	r, err := renderRendererFor(cfg.Render, opts)
	if err != nil {
		return err
	}
	return runRender(opts, r, cfg.Render.Sanitize, args.JSON, os.Stdin, os.Stdout, os.Stderr)
}

// renderRendererFor applies the command-line overrides to the render settings.
func renderRendererFor(rc config.RenderConfig, opts renderOptions) (*markup.Renderer, error) {
	if opts.Styles != "" {
		rc.StylesFile = opts.Styles
	}
	if opts.Highlight {
		rc.Highlight = true
	}
	if opts.Plain {
		return theme.Build(rc, markup.PlainStyles()), nil
	}
	r, err := theme.NewRenderer(rc)
	if err != nil {
		return nil, WrapError(err, "failed to load styles")
	}
	return r, nil
}

// runRender does the work of the render command. Markup goes to stdout or
// the --out file; previews and diagnostics go to stderr so stdout stays pipeable.
func runRender(opts renderOptions, r *markup.Renderer, sanitizeOutput, jsonMode bool, stdin io.Reader, stdout, stderr io.Writer) error {
	text, err := readInput(opts.Input, stdin)
	if err != nil {
		return err
	}

	out := r.Render(text)
	if sanitizeOutput {
		out = sanitize.HTML(out)
	}

	var checkErr error
	if opts.Check {
		checkErr = markup.Validate(out)
	}

	if opts.Preview {
		fmt.Fprint(stderr, previewMarkdown(text, GetTerminalWidth()))
	}

	if opts.Copy {
		if err := clipboard.WriteAll(out); err != nil {
			return NewCommandError("render", "copy", "clipboard unavailable", err)
		}
	}

	if opts.Out != "" {
		if err := util.AtomicWriteFile(opts.Out, []byte(out+"\n"), 0644); err != nil {
			return NewCommandError("render", "write", opts.Out, err)
		}
	}

	if jsonMode {
		data := RenderData{HTML: out, Bytes: len(out), Output: opts.Out}
		if opts.Check {
			valid := checkErr == nil
			data.Valid = &valid
			if checkErr != nil {
				data.Issue = checkErr.Error()
			}
		}
		if opts.Trace {
			for _, step := range r.Trace(text) {
				data.Stages = append(data.Stages, step.Stage+": "+step.Output)
			}
		}
		if err := NewJSONResponse("render", data).Print(stdout); err != nil {
			return err
		}
		return checkErr
	}

	if opts.Trace {
		for _, step := range r.Trace(text) {
			fmt.Fprintf(stdout, "%s\n%s\n\n", StageStyle.Render("["+step.Stage+"]"), step.Output)
		}
	} else if opts.Out == "" {
		fmt.Fprintln(stdout, out)
	}

	if opts.Check {
		if checkErr != nil {
			fmt.Fprintf(stderr, "%s %v\n", RenderStatus("invalid"), checkErr)
			return checkErr
		}
		fmt.Fprintf(stderr, "%s markup is well formed (%s)\n", RenderStatus("ok"), formatBytes(int64(len(out))))
	}
	if opts.Out != "" {
		fmt.Fprintf(stderr, "Wrote %s to %s\n", formatBytes(int64(len(out))), opts.Out)
	}
	return nil
}

// previewMarkdown formats the source text for the terminal with glamour.
// Without colors it uses glamour's plain style. On failure the source is
// returned unchanged.
func previewMarkdown(text string, width int) string {
	style := glamour.WithAutoStyle()
	if !ColorsEnabled() {
		style = glamour.WithStandardStyle("notty")
	}
	tr, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return text
	}
	rendered, err := tr.Render(text)
	if err != nil {
		return text
	}
	return rendered
}
