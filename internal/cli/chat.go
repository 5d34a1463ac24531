// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler.
//
// Examples:
//
//	rigmark chat
//	rigmark chat --model llama3.2 --lang zh
//	rigmark chat --resume 3f2a
//
// Interactive Commands (during chat):
//
//	/help, /h           Show available commands
//	/clear, /c          Start a new conversation
//	/model [name]       Show or switch model
//	/lang [code]        Show or switch reply language
//	/html               Toggle printing rendered markup after replies
//	/history            Show conversation history
//	/status, /s         Show session statistics
//	/quit, /q           Exit chat
//	Ctrl+C              Cancel current generation (at the prompt: exit)
//	Ctrl+D              Exit chat
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/rigmark/internal/config"
	"github.com/jeranaias/rigmark/internal/markup"
	"github.com/jeranaias/rigmark/internal/ollama"
	"github.com/jeranaias/rigmark/internal/sanitize"
	"github.com/jeranaias/rigmark/internal/server"
	"github.com/jeranaias/rigmark/internal/storage"
	"github.com/jeranaias/rigmark/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history to file (0600).
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state for an interactive chat session.
type ChatSession struct {
	Client   modelClient
	Store    server.ConversationStore // nil when storage is disabled
	Renderer *markup.Renderer

	Model    string
	Language server.Language
	System   string
	Sanitize bool
	ShowHTML bool

	// ConversationID is empty until the first turn is stored.
	ConversationID string
	Messages       []ollama.Message

	StartTime   time.Time
	Turns       int
	TotalTokens int

	out io.Writer
}

// NewChatSession creates a session writing to out.
func NewChatSession(client modelClient, store server.ConversationStore, r *markup.Renderer, out io.Writer) *ChatSession {
	lang, _ := server.LookupLanguage("")
	return &ChatSession{
		Client:    client,
		Store:     store,
		Renderer:  r,
		Language:  lang,
		StartTime: time.Now(),
		out:       out,
	}
}

// Resume loads a stored conversation into the session.
func (s *ChatSession) Resume(conv *storage.StoredConversation) {
	s.ConversationID = conv.ID
	s.Messages = s.Messages[:0]
	for _, m := range conv.Messages {
		if m.Role == ollama.RoleSystem {
			continue
		}
		s.Messages = append(s.Messages, ollama.Message{Role: m.Role, Content: m.Content})
	}
	if lang, ok := server.LookupLanguage(conv.Language); ok {
		s.Language = lang
	}
}

// Reset starts a new conversation.
func (s *ChatSession) Reset() {
	s.ConversationID = ""
	s.Messages = nil
}

// requestMessages builds the messages for the next request.
func (s *ChatSession) requestMessages(input string) []ollama.Message {
	history := s.Messages
	if len(history) > server.MaxHistoryMessages {
		history = history[len(history)-server.MaxHistoryMessages:]
	}
	msgs := make([]ollama.Message, 0, len(history)+2)
	msgs = append(msgs, ollama.NewSystemMessage(server.SystemPrompt(s.System, s.Language)))
	msgs = append(msgs, history...)
	return append(msgs, ollama.NewUserMessage(input))
}

// Send streams the reply to input and records the turn. A failed or
// cancelled request leaves the history unchanged.
func (s *ChatSession) Send(ctx context.Context, input string) error {
	start := time.Now()
	var tokens int

	fmt.Fprintf(s.out, "\n%s ", PromptStyle.Render("AI"))
	reply, err := s.Client.ChatStream(ctx, s.Model, s.requestMessages(input), func(chunk ollama.StreamChunk) {
		fmt.Fprint(s.out, chunk.Content)
		if chunk.Done {
			tokens = chunk.CompletionTokens
		}
	})
	fmt.Fprintln(s.out)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(s.out, WarningStyle.Render("[Cancelled]"))
			return nil
		}
		return err
	}

	elapsed := time.Since(start)
	s.Messages = append(s.Messages, ollama.NewUserMessage(input), ollama.NewAssistantMessage(reply))
	s.Turns++
	s.TotalTokens += tokens

	out := s.Renderer.Render(reply)
	if s.Sanitize {
		out = sanitize.HTML(out)
	}
	if s.ShowHTML {
		fmt.Fprintln(s.out, DimStyle.Render(out))
	}
	fmt.Fprintln(s.out, DimStyle.Render(fmt.Sprintf("%d tokens | %s", tokens, formatDurationShort(elapsed))))
	fmt.Fprintln(s.out)

	if err := s.persist(ctx, input, storage.StoredMessage{
		Role:       ollama.RoleAssistant,
		Content:    reply,
		HTML:       out,
		TokenCount: tokens,
		DurationMs: elapsed.Milliseconds(),
	}); err != nil {
		log.Printf("CHAT_PERSIST_FAILED | conversation=%s error=%v", s.ConversationID, err)
		fmt.Fprintf(s.out, "%s turn not saved: %v\n", WarningStyle.Render("[Warning]"), err)
	}
	return nil
}

// persist stores the user message and the reply, creating the
// conversation on the first turn.
func (s *ChatSession) persist(ctx context.Context, input string, reply storage.StoredMessage) error {
	if s.Store == nil {
		return nil
	}
	if s.ConversationID == "" {
		id, err := s.Store.Create(ctx, s.Model, s.Language.Code)
		if err != nil {
			return err
		}
		s.ConversationID = id
	}
	if _, err := s.Store.AppendMessage(ctx, s.ConversationID, storage.StoredMessage{Role: ollama.RoleUser, Content: input}); err != nil {
		return err
	}
	_, err := s.Store.AppendMessage(ctx, s.ConversationID, reply)
	return err
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat handles the "chat" command.
func HandleChat(args Args) error {
	p := NewArgParser(args.Raw)
	lang, ok := server.LookupLanguage(p.Flag("lang", "l"))
	if !ok {
		return NewValidationErrorWithExample("lang", p.Flag("lang", "l"), "unsupported language", "--lang en|ms|zh")
	}
	if err := RequiresTTY("chat"); err != nil {
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
	client := newOllamaClient(cfg)

	ctx := context.Background()
	if err := client.CheckRunning(ctx); err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return WrapError(err, "failed to open conversation store")
	}

	session := NewChatSession(client, nil, r, os.Stdout)
	if store != nil {
		defer store.Close()
		session.Store = store
	}
	session.Model = cfg.Ollama.Model
	session.System = cfg.Ollama.SystemPrompt
	session.Sanitize = cfg.Render.Sanitize
	session.Language = lang

	if id := p.Flag("resume", "r"); id != "" {
		if store == nil {
			return NewValidationErrorWithExample("resume", id, "conversation storage is disabled", "rigmark config set storage.enabled true")
		}
		conv, err := resolveConversation(ctx, store, id)
		if err != nil {
			return err
		}
		session.Resume(conv)
		if p.Flag("lang", "l") != "" {
			session.Language = lang
		}
	}

	if !args.Quiet {
		printWelcome(session)
	}

	input := NewChatCLI()
	defer input.Close()

	for {
		line, err := input.ReadInput("rigmark> ")
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or a closed stdin.
			fmt.Println()
			printExitSummary(session)
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			cont, err := session.HandleSlash(line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !cont {
				printExitSummary(session)
				return nil
			}
			continue
		}

		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			printExitSummary(session)
			return nil
		}

		msgCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		err = session.Send(msgCtx, line)
		stop()
		if err != nil {
			DisplayError(os.Stderr, "chat", err, false)
		}
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// HandleSlash runs a slash command. It returns false when the chat should end.
func (s *ChatSession) HandleSlash(input string) (bool, error) {
	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?":
		s.printHelp()
	case "/clear", "/c":
		s.Reset()
		fmt.Fprintln(s.out, DimStyle.Render("[Started a new conversation]"))
	case "/model", "/m":
		if len(args) == 0 {
			fmt.Fprintf(s.out, "Model: %s\n", s.Model)
			return true, nil
		}
		s.Model = args[0]
		fmt.Fprintf(s.out, "Switched to model: %s\n", s.Model)
	case "/lang", "/l":
		if len(args) == 0 {
			fmt.Fprintf(s.out, "Language: %s (%s)\n", s.Language.Name, s.Language.Code)
			return true, nil
		}
		lang, ok := server.LookupLanguage(args[0])
		if !ok {
			return true, fmt.Errorf("unsupported language: %s (en, ms, zh)", args[0])
		}
		s.Language = lang
		fmt.Fprintln(s.out, lang.Greeting)
	case "/html":
		s.ShowHTML = !s.ShowHTML
		fmt.Fprintf(s.out, "Show markup: %v\n", s.ShowHTML)
	case "/history":
		s.printHistory()
	case "/status", "/s":
		s.printStatus()
	case "/quit", "/q", "/exit":
		return false, nil
	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
	return true, nil
}

func printWelcome(s *ChatSession) {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, TitleStyle.UnsetMarginBottom().Render("rigmark interactive chat"))
	fmt.Fprintln(s.out, SeparatorStyle.Render(strings.Repeat("─", 30)))
	fmt.Fprintf(s.out, "%s %s\n", DimStyle.Render("Model:"), s.Model)
	fmt.Fprintf(s.out, "%s %s\n", DimStyle.Render("Language:"), s.Language.Name)
	if s.ConversationID != "" {
		fmt.Fprintf(s.out, "%s %s (%d messages)\n", DimStyle.Render("Resumed:"), storage.ShortID(s.ConversationID), len(s.Messages))
	} else if s.Store == nil {
		fmt.Fprintln(s.out, WarningStyle.Render("History is not saved (storage disabled)"))
	}
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, s.Language.Greeting)
	fmt.Fprintln(s.out, DimStyle.Render("Commands: /help, /quit"))
	fmt.Fprintln(s.out)
}

func (s *ChatSession) printHelp() {
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/clear, /c", "Start a new conversation"},
		{"/model [name]", "Show or switch model"},
		{"/lang [code]", "Show or switch reply language"},
		{"/html", "Toggle printing rendered markup"},
		{"/history", "Show conversation history"},
		{"/status, /s", "Show session statistics"},
		{"/quit, /q", "Exit chat"},
	}

	fmt.Fprintln(s.out)
	for _, c := range commands {
		fmt.Fprintf(s.out, "  %s  %s\n", util.PadRight(c.cmd, 15), DimStyle.Render(c.desc))
	}
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, DimStyle.Render("Tip: Ctrl+C cancels current generation, Ctrl+D exits"))
	fmt.Fprintln(s.out)
}

func (s *ChatSession) printHistory() {
	if len(s.Messages) == 0 {
		fmt.Fprintln(s.out, DimStyle.Render("[No messages yet]"))
		return
	}
	fmt.Fprintln(s.out)
	for i, msg := range s.Messages {
		role := "You"
		if msg.Role == ollama.RoleAssistant {
			role = "AI"
		}
		fmt.Fprintf(s.out, "  %d. %s: %s\n", i+1, role, util.Snippet(msg.Content, 100))
	}
	fmt.Fprintln(s.out)
}

func (s *ChatSession) printStatus() {
	fmt.Fprintln(s.out)
	fmt.Fprintf(s.out, "  %s %s\n", RenderLabel("Model:", 14), ValueStyle.Render(s.Model))
	fmt.Fprintf(s.out, "  %s %s\n", RenderLabel("Language:", 14), ValueStyle.Render(s.Language.Name))
	id := "(not saved yet)"
	if s.ConversationID != "" {
		id = storage.ShortID(s.ConversationID)
	}
	fmt.Fprintf(s.out, "  %s %s\n", RenderLabel("Conversation:", 14), id)
	fmt.Fprintf(s.out, "  %s %d turns, %d messages\n", RenderLabel("History:", 14), s.Turns, len(s.Messages))
	fmt.Fprintf(s.out, "  %s %d\n", RenderLabel("Tokens:", 14), s.TotalTokens)
	fmt.Fprintf(s.out, "  %s %s\n", RenderLabel("Duration:", 14), time.Since(s.StartTime).Round(time.Second))
	fmt.Fprintln(s.out)
}

func printExitSummary(s *ChatSession) {
	if s.Turns > 0 {
		fmt.Fprintf(s.out, "%s %d turns, %d tokens, %s\n",
			DimStyle.Render("Session:"), s.Turns, s.TotalTokens, time.Since(s.StartTime).Round(time.Second))
		if s.ConversationID != "" {
			fmt.Fprintf(s.out, "%s rigmark chat --resume %s\n", DimStyle.Render("Resume with:"), storage.ShortID(s.ConversationID))
		}
	}
	fmt.Fprintln(s.out, DimStyle.Render("Goodbye!"))
}
