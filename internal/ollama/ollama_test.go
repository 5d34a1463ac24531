// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessageConstructors(t *testing.T) {
	tests := []struct {
		msg  Message
		role string
	}{
		{NewUserMessage("Hello"), "user"},
		{NewAssistantMessage("Hello"), "assistant"},
		{NewSystemMessage("Hello"), "system"},
	}
	for _, tt := range tests {
		if tt.msg.Role != tt.role {
			t.Errorf("Role = %q, want %q", tt.msg.Role, tt.role)
		}
		if tt.msg.Content != "Hello" {
			t.Errorf("Content = %q, want 'Hello'", tt.msg.Content)
		}
	}
}

func TestChatResponse_TokensPerSecond(t *testing.T) {
	resp := &ChatResponse{EvalCount: 100, EvalDuration: int64(2 * time.Second)}
	if got := resp.TokensPerSecond(); got != 50 {
		t.Errorf("TokensPerSecond() = %v, want 50", got)
	}

	empty := &ChatResponse{}
	if got := empty.TokensPerSecond(); got != 0 {
		t.Errorf("TokensPerSecond() with zero duration = %v, want 0", got)
	}
}

func TestModelInfo_FormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{9 * 1024 * 1024 * 1024, "9.0 GB"},
	}
	for _, tt := range tests {
		m := &ModelInfo{Size: tt.size}
		if got := m.FormatSize(); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

// =============================================================================
// CLIENT TESTS
// =============================================================================

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithConfig(&ClientConfig{
		BaseURL:      srv.URL,
		Timeout:      5 * time.Second,
		DefaultModel: "test-model",
		RetryDelay:   time.Millisecond,
	})
}

func TestNewClientWithConfig_Defaults(t *testing.T) {
	c := NewClientWithConfig(&ClientConfig{BaseURL: "http://localhost:1/"})
	cfg := c.Config()
	if cfg.BaseURL != "http://localhost:1" {
		t.Errorf("BaseURL = %q, trailing slash not trimmed", cfg.BaseURL)
	}
	if cfg.DefaultModel != "qwen2.5-coder:14b" {
		t.Errorf("DefaultModel = %q", cfg.DefaultModel)
	}
	if cfg.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0 when unset", cfg.MaxRetries)
	}
}

func TestCheckRunning(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Ollama is running")
	})
	if err := c.CheckRunning(context.Background()); err != nil {
		t.Errorf("CheckRunning() = %v", err)
	}
}

func TestCheckRunning_NotRunning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: url, Timeout: time.Second})
	err := c.CheckRunning(context.Background())
	if !IsNotRunning(err) {
		t.Errorf("CheckRunning() = %v, want not running", err)
	}
}

func TestListModels(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %s, want /api/tags", r.URL.Path)
		}
		fmt.Fprint(w, `{"models":[{"name":"llama3.2:latest","size":2048},{"name":"qwen2.5-coder:14b"}]}`)
	})

	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 2 || models[0].Name != "llama3.2:latest" {
		t.Errorf("ListModels() = %+v", models)
	}
	if !c.ModelExists(context.Background(), "llama3.2") {
		t.Error("ModelExists(llama3.2) = false, want true via :latest")
	}
	if c.ModelExists(context.Background(), "mistral") {
		t.Error("ModelExists(mistral) = true, want false")
	}
}

func TestChat(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Model != "test-model" {
			t.Errorf("Model = %q, want default test-model", req.Model)
		}
		if req.Stream {
			t.Error("Stream = true, want false")
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != RoleSystem {
			t.Errorf("Messages = %+v", req.Messages)
		}
		fmt.Fprint(w, `{"model":"test-model","message":{"role":"assistant","content":"## Hi"},"done":true,"eval_count":4}`)
	})

	resp, err := c.Chat(context.Background(), "", []Message{
		NewSystemMessage("be brief"),
		NewUserMessage("hello"),
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Message.Content != "## Hi" {
		t.Errorf("Content = %q", resp.Message.Content)
	}
}

func TestChat_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"model not found", http.StatusNotFound, `{"error":"model 'x' not found"}`, IsModelNotFound},
		{"bare 404", http.StatusNotFound, ``, IsModelNotFound},
		{"context", http.StatusBadRequest, `{"error":"input exceeds context length"}`, func(err error) bool {
			var ce *ClientError
			return asClientError(err, &ce) && ce.Type == ErrTypeContextExceeded
		}},
		{"server error", http.StatusInternalServerError, `oops`, func(err error) bool {
			return strings.Contains(err.Error(), "500")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			_, err := c.Chat(context.Background(), "x", nil)
			if err == nil || !tt.check(err) {
				t.Errorf("Chat() error = %v", err)
			}
		})
	}
}

func asClientError(err error, target **ClientError) bool {
	ce, ok := err.(*ClientError)
	if ok {
		*target = ce
	}
	return ok
}

func TestChat_RetriesConnectionFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Error("hijacking unsupported")
				return
			}
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"ok"},"done":true}`)
	}))
	defer srv.Close()

	c := NewClientWithConfig(&ClientConfig{
		BaseURL:    srv.URL,
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})
	resp, err := c.Chat(context.Background(), "m", nil)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Message.Content != "ok" {
		t.Errorf("Content = %q", resp.Message.Content)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestChat_ContextCancelled(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Chat(ctx, "", nil)
	if !IsTimeout(err) {
		t.Errorf("Chat() = %v, want timeout", err)
	}
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func TestChatStream(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("Stream = false, want true")
		}
		lines := []string{
			`{"model":"m","message":{"role":"assistant","content":"1. "},"done":false}`,
			``,
			`not json`,
			`{"model":"m","message":{"role":"assistant","content":"Nasi lemak"},"done":false}`,
			`{"model":"m","message":{"role":"assistant","content":""},"done":true,"eval_count":2,"eval_duration":1000000000}`,
		}
		for _, line := range lines {
			fmt.Fprintln(w, line)
		}
	})

	var chunks []StreamChunk
	full, err := c.ChatStream(context.Background(), "", nil, func(chunk StreamChunk) {
		chunks = append(chunks, chunk)
	})
	if err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}
	if full != "1. Nasi lemak" {
		t.Errorf("accumulated = %q", full)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	last := chunks[len(chunks)-1]
	if !last.Done || last.CompletionTokens != 2 || last.EvalDuration != time.Second {
		t.Errorf("final chunk = %+v", last)
	}
}

func TestStreamReader_ErrorLine(t *testing.T) {
	input := `{"message":{"content":"par"}}` + "\n" + `{"error":"model 'x' not found"}` + "\n"
	reader := NewStreamReader(strings.NewReader(input))

	err := reader.Process(context.Background(), nil)
	if !IsModelNotFound(err) {
		t.Errorf("Process() = %v, want model not found", err)
	}
	if reader.Accumulated() != "par" || reader.TokenCount() != 1 {
		t.Errorf("Accumulated() = %q, TokenCount() = %d", reader.Accumulated(), reader.TokenCount())
	}
}

func TestStreamReader_EndsWithoutDone(t *testing.T) {
	reader := NewStreamReader(strings.NewReader(`{"model":"m","message":{"content":"x"}}`))
	if err := reader.Process(context.Background(), nil); err != nil {
		t.Errorf("Process() = %v", err)
	}
	if reader.Model() != "m" {
		t.Errorf("Model() = %q", reader.Model())
	}
}

func TestStreamReader_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reader := NewStreamReader(strings.NewReader("{}\n{}\n"))
	if err := reader.Process(ctx, nil); !IsTimeout(err) {
		t.Errorf("Process() = %v, want timeout", err)
	}
}
