// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve_cmd.go - The "serve" command.
//
// Examples:
//
//	rigmark serve
//	rigmark serve --port 9000 --host 0.0.0.0
//	RIGMARK_STYLES=./styles.toml rigmark serve
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jeranaias/rigmark/internal/config"
	"github.com/jeranaias/rigmark/internal/markup"
	"github.com/jeranaias/rigmark/internal/server"
	"github.com/jeranaias/rigmark/internal/theme"
)

// shutdownTimeout bounds graceful shutdown after SIGINT/SIGTERM.
const shutdownTimeout = 10 * time.Second

// applyServeArgs applies --port and --host to the server section.
func applyServeArgs(cfg *config.Config, raw []string) error {
	p := NewArgParser(raw)
	if v := p.Flag("port", "p"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return NewValidationErrorWithExample("port", v, "must be 1-65535", "rigmark serve --port 8787")
		}
		cfg.Server.Port = port
	}
	if v := p.Flag("host"); v != "" {
		cfg.Server.Host = v
	}
	return nil
}

// HandleServe handles the "serve" command.
func HandleServe(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if err := applyServeArgs(cfg, args.Raw); err != nil {
		return err
	}

	renderer, err := newRenderer(cfg)
	if err != nil {
		return err
	}

	srv := server.NewServer(cfg, renderer).WithBackend(newOllamaClient(cfg))
	if args.Quiet {
		// Events still log; per-request lines do not.
		srv.WithLogger(log.New(io.Discard, "", 0))
	}

	store, err := openStore(cfg)
	if err != nil {
		return WrapError(err, "failed to open conversation store")
	}
	if store != nil {
		defer store.Close()
		srv.WithStore(store)
	}

	if cfg.Render.WatchStyles && cfg.Render.StylesFile != "" {
		watcher, err := theme.NewWatcher(cfg.Render.StylesFile, theme.DefaultDebounce, styleReloader(srv, cfg.Render))
		if err != nil {
			return WrapError(err, "failed to watch styles")
		}
		if err := watcher.Watch(); err != nil {
			return WrapError(err, "failed to watch styles")
		}
		defer watcher.Close()
	}

	if !args.Quiet {
		fmt.Fprintf(os.Stderr, "%s listening on http://%s (model %s)\n",
			TitleStyle.UnsetMarginBottom().Render("rigmark"), cfg.Server.Addr(), cfg.Ollama.Model)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errCh
}

// styleReloader swaps the server's renderer when the style file changes.
// A file that fails to load leaves the current renderer in place.
func styleReloader(srv interface{ SetRenderer(*markup.Renderer) }, rc config.RenderConfig) theme.ReloadFunc {
	return func(table markup.StyleTable, err error) {
		if err != nil {
			log.Printf("STYLE_RELOAD_FAILED | file=%s error=%v", rc.StylesFile, err)
			return
		}
		srv.SetRenderer(theme.Build(rc, table))
		log.Printf("STYLE_RELOADED | file=%s", rc.StylesFile)
	}
}
