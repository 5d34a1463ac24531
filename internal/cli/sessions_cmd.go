// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions_cmd.go - Manage stored conversations.
//
// Command: sessions [subcommand]
// Aliases: session
//
// Subcommands:
//
//	list (default)      List recent conversations (aliases: ls)
//	show <id>           Print a conversation
//	delete <id>         Delete a conversation (requires --confirm)
//	stats               Show database statistics
//
// Examples:
//
//	rigmark sessions
//	rigmark sessions list --limit 5 --search laksa
//	rigmark sessions show 3f2a
//	rigmark sessions delete 3f2a --confirm
//	rigmark sessions stats --json
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/rigmark/internal/ollama"
	"github.com/jeranaias/rigmark/internal/storage"
)

// DefaultListLimit is the number of conversations "sessions list" shows.
const DefaultListLimit = 20

// HandleSessions handles the "sessions" command.
func HandleSessions(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	store, err := requireStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return runSessions(context.Background(), store, args.Raw, args.JSON, os.Stdout)
}

func runSessions(ctx context.Context, store *storage.Store, raw []string, jsonMode bool, w io.Writer) error {
	p := NewArgParser(raw, "confirm")

	switch p.Subcommand() {
	case "", "list", "ls":
		limit := DefaultListLimit
		if v := p.Flag("limit", "n"); v != "" {
			n, err := ParseIntWithValidation(v, "limit")
			if err != nil {
				return NewValidationErrorWithExample("limit", v, err.Error(), "--limit 10")
			}
			limit = n
		}
		return sessionsList(ctx, store, p.Flag("search", "s"), limit, jsonMode, w)
	case "show":
		id := p.Positional(1)
		if id == "" {
			return ErrMissingArgument("ID", "rigmark sessions show ID")
		}
		return sessionsShow(ctx, store, id, jsonMode, w)
	case "delete", "rm":
		id := p.Positional(1)
		if id == "" {
			return ErrMissingArgument("ID", "rigmark sessions delete ID --confirm")
		}
		return sessionsDelete(ctx, store, id, p.BoolFlag("confirm"), jsonMode, w)
	case "stats":
		return sessionsStats(ctx, store, jsonMode, w)
	default:
		return NewValidationErrorWithExample("subcommand", p.Subcommand(),
			"unknown sessions subcommand", "rigmark sessions [list|show|delete|stats]")
	}
}

func sessionsList(ctx context.Context, store *storage.Store, query string, limit int, jsonMode bool, w io.Writer) error {
	var (
		metas []storage.ConversationMeta
		err   error
	)
	if query != "" {
		metas, err = store.Search(ctx, query, limit)
	} else {
		metas, err = store.List(ctx, limit)
	}
	if err != nil {
		return err
	}

	if jsonMode {
		if metas == nil {
			metas = []storage.ConversationMeta{}
		}
		return NewJSONResponse("sessions list", metas).Print(w)
	}
	fmt.Fprint(w, storage.FormatSessionList(metas))
	if len(metas) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, DimStyle.Render("Use 'rigmark sessions show ID' or 'rigmark chat --resume ID'."))
	} else {
		fmt.Fprintln(w)
	}
	return nil
}

func sessionsShow(ctx context.Context, store *storage.Store, id string, jsonMode bool, w io.Writer) error {
	conv, err := resolveConversation(ctx, store, id)
	if err != nil {
		return err
	}
	if jsonMode {
		return NewJSONResponse("sessions show", conv).Print(w)
	}

	fmt.Fprintln(w, TitleStyle.UnsetMarginBottom().Render(conv.Title))
	fmt.Fprintf(w, "%s %s\n", RenderLabel("ID:", 10), conv.ID)
	fmt.Fprintf(w, "%s %s\n", RenderLabel("Model:", 10), conv.Model)
	if conv.Language != "" {
		fmt.Fprintf(w, "%s %s\n", RenderLabel("Language:", 10), conv.Language)
	}
	fmt.Fprintf(w, "%s %s\n", RenderLabel("Created:", 10), conv.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "%s %d\n", RenderLabel("Messages:", 10), conv.MessageCount())
	fmt.Fprintln(w, RenderSeparatorAdaptive())

	for _, msg := range conv.Messages {
		label := "You"
		switch msg.Role {
		case ollama.RoleAssistant:
			label = "Assistant"
		case ollama.RoleSystem:
			label = "System"
		}
		fmt.Fprintf(w, "%s %s\n", SectionStyle.Render(label), DimStyle.Render(msg.Timestamp.Local().Format("15:04")))
		fmt.Fprintln(w, WrapText(msg.Content, GetTerminalWidth()))
		if msg.TokenCount > 0 {
			fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("%d tokens | %dms", msg.TokenCount, msg.DurationMs)))
		}
		fmt.Fprintln(w)
	}
	return nil
}

func sessionsDelete(ctx context.Context, store *storage.Store, id string, confirm, jsonMode bool, w io.Writer) error {
	conv, err := resolveConversation(ctx, store, id)
	if err != nil {
		return err
	}
	if !confirm {
		return NewValidationErrorWithExample("confirm", "",
			fmt.Sprintf("deleting %q cannot be undone", conv.Title),
			"rigmark sessions delete "+storage.ShortID(conv.ID)+" --confirm")
	}
	if err := store.Delete(ctx, conv.ID); err != nil {
		return err
	}
	if jsonMode {
		return NewJSONResponse("sessions delete", map[string]string{"deleted": conv.ID}).Print(w)
	}
	fmt.Fprintf(w, "%s Deleted %s (%s)\n", SuccessStyle.Render("[OK]"), storage.ShortID(conv.ID), strings.TrimSpace(conv.Title))
	return nil
}

func sessionsStats(ctx context.Context, store *storage.Store, jsonMode bool, w io.Writer) error {
	conversations, messages, err := store.Count(ctx)
	if err != nil {
		return err
	}
	data := SessionStatsData{Path: store.Path(), Conversations: conversations, Messages: messages}
	if jsonMode {
		return NewJSONResponse("sessions stats", data).Print(w)
	}
	fmt.Fprintf(w, "%s %s\n", RenderLabel("Database:", 16), data.Path)
	fmt.Fprintf(w, "%s %d\n", RenderLabel("Conversations:", 16), data.Conversations)
	fmt.Fprintf(w, "%s %d\n", RenderLabel("Messages:", 16), data.Messages)
	if info, err := os.Stat(data.Path); err == nil {
		fmt.Fprintf(w, "%s %s\n", RenderLabel("Size:", 16), formatBytes(info.Size()))
	}
	return nil
}
