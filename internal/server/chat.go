// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/rigmark/internal/ollama"
	"github.com/jeranaias/rigmark/internal/storage"
)

// ============================================================================
// LANGUAGES
// ============================================================================

// ChatMode is reported in every chat reply; the front end switches on it.
const ChatMode = "regular-chat"

// DefaultLanguage is used when a chat request names no language.
const DefaultLanguage = "en"

// DefaultSystemPrompt describes the markup grammar the renderer understands.
const DefaultSystemPrompt = `You are a helpful assistant answering inside a chat bubble.
Format answers with this markdown subset only: # to ### headers, **bold**, *italic*,
"-" or "1." list items (indent two spaces for one sub-level), "Key: value" list items,
` + "```" + ` fenced code, ` + "`" + `inline code` + "`" + ` and pipe tables with a --- separator row.
Do not use HTML, images, links or block quotes.`

// Language describes a supported reply language.
type Language struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Placeholder string `json:"placeholder"`
	Greeting    string `json:"greeting"`
	instruction string
}

// Languages are the reply languages offered by the chat front end.
var Languages = map[string]Language{
	"en": {
		Code:        "en",
		Name:        "English",
		Placeholder: "Type a message...",
		Greeting:    "Hello! How can I help you today?",
		instruction: "Reply in English.",
	},
	"ms": {
		Code:        "ms",
		Name:        "Bahasa Malaysia",
		Placeholder: "Taip mesej...",
		Greeting:    "Halo! Bagaimana saya boleh membantu anda hari ini?",
		instruction: "Reply in Bahasa Malaysia.",
	},
	"zh": {
		Code:        "zh",
		Name:        "中文",
		Placeholder: "输入消息...",
		Greeting:    "您好！今天我可以为您做些什么？",
		instruction: "Reply in Simplified Chinese.",
	},
}

// LookupLanguage resolves a language code. The empty code means DefaultLanguage.
func LookupLanguage(code string) (Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		code = DefaultLanguage
	}
	lang, ok := Languages[code]
	return lang, ok
}

// SystemPrompt appends the language instruction to base, or to
// DefaultSystemPrompt when base is empty.
func SystemPrompt(base string, lang Language) string {
	if strings.TrimSpace(base) == "" {
		base = DefaultSystemPrompt
	}
	return base + "\n\n" + lang.instruction
}

func (s *Server) systemPromptFor(lang Language) string {
	return SystemPrompt(s.systemPrompt, lang)
}

// ============================================================================
// CHAT HANDLER
// ============================================================================

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message        string `json:"message"`
	Language       string `json:"language"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is the reply of POST /api/chat.
type ChatResponse struct {
	Response       string `json:"response"`
	HTMLResponse   string `json:"htmlResponse"`
	Mode           string `json:"mode"`
	ConversationID string `json:"conversation_id,omitempty"`
	Model          string `json:"model"`
}

// handleChat handles POST /api/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	s.stats.ChatRequests.Add(1)

	var req ChatRequest
	if !decodeBody(w, r, s.cfg.MaxBodyBytes, &req) {
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}
	if len(message) > MaxTextLength {
		writeError(w, http.StatusBadRequest, "Message exceeds maximum length")
		return
	}
	lang, ok := LookupLanguage(req.Language)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unsupported language")
		return
	}

	backend, store := s.collaborators()
	if backend == nil {
		writeError(w, http.StatusServiceUnavailable, "No model backend configured")
		return
	}

	ctx := r.Context()
	convID, history, err := s.loadHistory(ctx, store, req.ConversationID, lang.Code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		log.Printf("CHAT_ERROR | stage=history error=%v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load conversation")
		return
	}

	messages := make([]ollama.Message, 0, len(history)+2)
	messages = append(messages, ollama.NewSystemMessage(s.systemPromptFor(lang)))
	messages = append(messages, history...)
	messages = append(messages, ollama.NewUserMessage(message))

	start := time.Now()
	resp, err := backend.Chat(ctx, s.model, messages)
	if err != nil {
		s.stats.ChatErrors.Add(1)
		status := chatErrorStatus(err)
		log.Printf("CHAT_ERROR | stage=backend model=%s status=%d error=%v", s.model, status, err)
		writeError(w, status, chatErrorMessage(status))
		return
	}

	content := resp.Message.Content
	out, err := s.renderText(content)
	if err != nil {
		s.stats.ChatErrors.Add(1)
		log.Printf("RENDER_INVALID | stage=chat output_bytes=%d error=%v", len(content), err)
		writeError(w, http.StatusInternalServerError, "Rendering failed")
		return
	}
	s.stats.TotalTokens.Add(int64(resp.EvalCount))

	elapsed := time.Since(start)
	if store != nil {
		s.persistTurn(ctx, store, convID, message, storage.StoredMessage{
			Role:       ollama.RoleAssistant,
			Content:    content,
			HTML:       out,
			TokenCount: resp.EvalCount,
			DurationMs: elapsed.Milliseconds(),
		})
	}

	log.Printf("CHAT_COMPLETE | model=%s lang=%s tokens=%d latency=%s conversation=%s",
		s.model, lang.Code, resp.EvalCount, elapsed.Round(time.Millisecond), convID)

	model := resp.Model
	if model == "" {
		model = s.model
	}
	writeJSON(w, http.StatusOK, ChatResponse{
		Response:       content,
		HTMLResponse:   out,
		Mode:           ChatMode,
		ConversationID: convID,
		Model:          model,
	})
}

// loadHistory resolves the conversation for a chat request. Without a store
// there is no history and no ID. A request without an ID starts a new
// conversation.
func (s *Server) loadHistory(ctx context.Context, store ConversationStore, id, language string) (string, []ollama.Message, error) {
	if store == nil {
		return "", nil, nil
	}
	if id == "" {
		newID, err := store.Create(ctx, s.model, language)
		return newID, nil, err
	}

	conv, err := store.Load(ctx, id)
	if err != nil {
		return "", nil, err
	}

	stored := conv.Messages
	if len(stored) > MaxHistoryMessages {
		stored = stored[len(stored)-MaxHistoryMessages:]
	}
	history := make([]ollama.Message, 0, len(stored))
	for _, m := range stored {
		if m.Role == ollama.RoleSystem {
			continue
		}
		history = append(history, ollama.Message{Role: m.Role, Content: m.Content})
	}
	return conv.ID, history, nil
}

// persistTurn stores the user message and the reply. Failures are logged;
// the reply has already been produced.
func (s *Server) persistTurn(ctx context.Context, store ConversationStore, convID, message string, reply storage.StoredMessage) {
	if convID == "" {
		return
	}
	if _, err := store.AppendMessage(ctx, convID, storage.StoredMessage{Role: ollama.RoleUser, Content: message}); err != nil {
		log.Printf("CHAT_PERSIST_FAILED | conversation=%s role=user error=%v", convID, err)
		return
	}
	if _, err := store.AppendMessage(ctx, convID, reply); err != nil {
		log.Printf("CHAT_PERSIST_FAILED | conversation=%s role=assistant error=%v", convID, err)
	}
}

// chatErrorStatus maps backend failures onto HTTP statuses.
func chatErrorStatus(err error) int {
	switch {
	case ollama.IsNotRunning(err):
		return http.StatusServiceUnavailable
	case ollama.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func chatErrorMessage(status int) string {
	switch status {
	case http.StatusServiceUnavailable:
		return "Model backend is not available"
	case http.StatusGatewayTimeout:
		return "Model backend timed out"
	default:
		return "Model backend error"
	}
}

// ============================================================================
// CONVERSATION HANDLERS
// ============================================================================

// handleConversation handles GET /api/conversations/{id}. Assistant messages
// stored without markup are rendered with the current renderer.
func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	_, store := s.collaborators()
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "Conversation storage is disabled")
		return
	}

	conv, err := store.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		log.Printf("CONVERSATION_LOAD_FAILED | id=%s error=%v", r.PathValue("id"), err)
		writeError(w, http.StatusInternalServerError, "Failed to load conversation")
		return
	}

	for i := range conv.Messages {
		m := &conv.Messages[i]
		if m.Role != ollama.RoleAssistant || m.HTML != "" {
			continue
		}
		if out, err := s.renderText(m.Content); err == nil {
			m.HTML = out
		}
	}
	writeJSON(w, http.StatusOK, conv)
}

// handleLanguages handles GET /api/languages.
func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	langs := make([]Language, 0, len(Languages))
	for _, lang := range Languages {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i].Code < langs[j].Code })
	writeJSON(w, http.StatusOK, langs)
}
