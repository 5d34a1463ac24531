// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - The "ask" command: one question, one answer.
//
// Examples:
//
//	rigmark ask "Best nasi lemak in KL?"
//	rigmark ask "Waktu operasi?" --lang ms
//	rigmark ask "List three hawker dishes" --html > reply.html
//	cat question.txt | rigmark ask --json
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/jeranaias/rigmark/internal/markup"
	"github.com/jeranaias/rigmark/internal/ollama"
	"github.com/jeranaias/rigmark/internal/sanitize"
	"github.com/jeranaias/rigmark/internal/server"
)

// modelClient is the part of *ollama.Client the ask and chat commands use.
type modelClient interface {
	CheckRunning(ctx context.Context) error
	Chat(ctx context.Context, model string, messages []ollama.Message) (*ollama.ChatResponse, error)
	ChatStream(ctx context.Context, model string, messages []ollama.Message, callback ollama.StreamCallback) (string, error)
}

// askOptions holds the parsed flags of the ask command.
type askOptions struct {
	Query    string
	Model    string
	Language server.Language
	HTML     bool
	System   string
}

func parseAskArgs(raw []string) (askOptions, error) {
	p := NewArgParser(raw, "html")
	lang, ok := server.LookupLanguage(p.Flag("lang", "l"))
	if !ok {
		return askOptions{}, NewValidationErrorWithExample("lang", p.Flag("lang", "l"), "unsupported language", "--lang en|ms|zh")
	}
	return askOptions{
		Query:    JoinPositionalArgs(p, 0),
		Language: lang,
		HTML:     p.BoolFlag("html"),
	}, nil
}

// HandleAsk handles the "ask" command.
func HandleAsk(args Args) error {
	opts, err := parseAskArgs(args.Raw)
	if err != nil {
		return err
	}
	if opts.Query == "" && !IsTTY() {
		text, err := readInput("-", os.Stdin)
		if err != nil {
			return err
		}
		opts.Query = strings.TrimSpace(text)
	}
	if opts.Query == "" {
		return ErrMissingArgument("question", `rigmark ask "What is the best laksa?"`)
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	r, err := newRenderer(cfg)
	if err != nil {
		return err
	}
	opts.Model = cfg.Ollama.Model
	opts.System = cfg.Ollama.SystemPrompt

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return runAsk(ctx, newOllamaClient(cfg), opts, r, cfg.Render.Sanitize, args.JSON, os.Stdout)
}

// runAsk sends one question. Plain text replies stream to stdout as they
// arrive; --html and --json wait for the whole reply and render it.
func runAsk(ctx context.Context, client modelClient, opts askOptions, r *markup.Renderer, sanitizeOutput, jsonMode bool, stdout io.Writer) error {
	if err := client.CheckRunning(ctx); err != nil {
		return err
	}

	messages := []ollama.Message{
		ollama.NewSystemMessage(server.SystemPrompt(opts.System, opts.Language)),
		ollama.NewUserMessage(opts.Query),
	}

	if !opts.HTML && !jsonMode {
		_, err := client.ChatStream(ctx, opts.Model, messages, func(chunk ollama.StreamChunk) {
			fmt.Fprint(stdout, chunk.Content)
		})
		fmt.Fprintln(stdout)
		return err
	}

	start := time.Now()
	resp, err := client.Chat(ctx, opts.Model, messages)
	if err != nil {
		return err
	}

	out := r.Render(resp.Message.Content)
	if sanitizeOutput {
		out = sanitize.HTML(out)
	}

	if jsonMode {
		elapsed := time.Since(start)
		if t := resp.TotalTime(); t > 0 {
			elapsed = t
		}
		model := resp.Model
		if model == "" {
			model = opts.Model
		}
		return NewJSONResponse("ask", AskData{
			Model:      model,
			Response:   resp.Message.Content,
			HTML:       out,
			Tokens:     resp.EvalCount,
			DurationMs: elapsed.Milliseconds(),
			TokensPerS: resp.TokensPerSecond(),
		}).Print(stdout)
	}

	fmt.Fprintln(stdout, out)
	return nil
}
