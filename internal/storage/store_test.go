// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// =============================================================================
// CONVERSATION STORE TESTS
// =============================================================================

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("Open(\"\") expected error")
	}
}

func TestOpen_InMemory(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.Create(ctx, "m", "en"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	convs, msgs, err := store.Count(ctx)
	if err != nil || convs != 1 || msgs != 0 {
		t.Errorf("Count() = %d, %d, %v", convs, msgs, err)
	}
}

func TestStore_CreateAppendLoad(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	id, err := store.Create(ctx, "qwen2.5-coder:14b", "ms")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(id) != 36 {
		t.Errorf("id = %q, want a UUID", id)
	}

	user, err := store.AppendMessage(ctx, id, StoredMessage{Role: "user", Content: "Di mana  nasi\nlemak terbaik?"})
	if err != nil {
		t.Fatalf("AppendMessage(user) error = %v", err)
	}
	if user.ID == "" || user.Timestamp.IsZero() {
		t.Errorf("AppendMessage() did not fill ID/Timestamp: %+v", user)
	}

	_, err = store.AppendMessage(ctx, id, StoredMessage{
		Role:       "assistant",
		Content:    "1. **Village Park**",
		HTML:       "<div><ol><li>Village Park</li></ol></div>",
		TokenCount: 12,
		DurationMs: 340,
	})
	if err != nil {
		t.Fatalf("AppendMessage(assistant) error = %v", err)
	}

	conv, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if conv.Model != "qwen2.5-coder:14b" || conv.Language != "ms" {
		t.Errorf("conv = %+v", conv)
	}
	if conv.Title != "Di mana nasi lemak terbaik?" {
		t.Errorf("Title = %q", conv.Title)
	}
	if conv.MessageCount() != 2 {
		t.Fatalf("MessageCount() = %d, want 2", conv.MessageCount())
	}
	if conv.Messages[0].Role != "user" || conv.Messages[1].Role != "assistant" {
		t.Errorf("messages out of order: %+v", conv.Messages)
	}
	if got := conv.Messages[1]; got.HTML == "" || got.TokenCount != 12 || got.DurationMs != 340 {
		t.Errorf("assistant message = %+v", got)
	}
	if conv.Preview() != "Di mana nasi lemak terbaik?" {
		t.Errorf("Preview() = %q", conv.Preview())
	}
	if conv.UpdatedAt.Before(conv.CreatedAt) {
		t.Error("UpdatedAt before CreatedAt")
	}
}

func TestStore_TitleKeepsFirstUserMessage(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	id, _ := store.Create(ctx, "m", "")

	for _, content := range []string{"first question", "second question"} {
		if _, err := store.AppendMessage(ctx, id, StoredMessage{Role: "user", Content: content}); err != nil {
			t.Fatal(err)
		}
	}
	conv, _ := store.Load(ctx, id)
	if conv.Title != "first question" {
		t.Errorf("Title = %q, want first question", conv.Title)
	}
}

func TestStore_AppendErrors(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if _, err := store.AppendMessage(ctx, "missing", StoredMessage{Role: "user", Content: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendMessage(missing) = %v, want ErrNotFound", err)
	}

	id, _ := store.Create(ctx, "m", "")
	if _, err := store.AppendMessage(ctx, id, StoredMessage{Role: "user", Content: "  \n"}); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("AppendMessage(blank) = %v, want ErrEmptyContent", err)
	}
}

func TestStore_LoadNotFound(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Load(context.Background(), "nonexistent-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() = %v, want ErrNotFound", err)
	}
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	id, _ := store.Create(ctx, "m", "")
	store.AppendMessage(ctx, id, StoredMessage{Role: "user", Content: "Test"})

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Error("conversation should not exist after delete")
	}
	if _, msgs, _ := store.Count(ctx); msgs != 0 {
		t.Errorf("messages left after delete = %d, want 0", msgs)
	}
	if err := store.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() = %v, want ErrNotFound", err)
	}
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	metas, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(metas) != 0 {
		t.Errorf("List() on empty store = %d items", len(metas))
	}

	var ids []string
	for i := 0; i < 3; i++ {
		id, _ := store.Create(ctx, "m", "")
		store.AppendMessage(ctx, id, StoredMessage{Role: "user", Content: "Message " + string(rune('A'+i))})
		ids = append(ids, id)
		time.Sleep(2 * time.Millisecond)
	}

	metas, err = store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(metas) != 3 {
		t.Fatalf("List() = %d items, want 3", len(metas))
	}
	if metas[0].ID != ids[2] {
		t.Errorf("List()[0] = %s, want most recent %s", metas[0].ID, ids[2])
	}
	if metas[0].MessageCount != 1 || metas[0].Title != "Message C" {
		t.Errorf("List()[0] = %+v", metas[0])
	}

	limited, _ := store.List(ctx, 2)
	if len(limited) != 2 {
		t.Errorf("List(2) = %d items", len(limited))
	}
}

func TestStore_Search(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	a, _ := store.Create(ctx, "m", "")
	store.AppendMessage(ctx, a, StoredMessage{Role: "user", Content: "Best roti canai?"})
	store.AppendMessage(ctx, a, StoredMessage{Role: "assistant", Content: "Try 100% Kopitiam"})
	b, _ := store.Create(ctx, "m", "")
	store.AppendMessage(ctx, b, StoredMessage{Role: "user", Content: "Weather in Penang"})

	tests := []struct {
		query string
		want  []string
	}{
		{"ROTI", []string{a}},
		{"kopitiam", []string{a}},
		{"penang", []string{b}},
		{"100%", []string{a}},
		{"%", []string{a}},
		{"_", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got, err := store.Search(ctx, tt.query, 0)
		if err != nil {
			t.Fatalf("Search(%q) error = %v", tt.query, err)
		}
		if len(got) != len(tt.want) {
			t.Errorf("Search(%q) = %d results, want %d", tt.query, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if got[i].ID != tt.want[i] {
				t.Errorf("Search(%q)[%d] = %s, want %s", tt.query, i, got[i].ID, tt.want[i])
			}
		}
	}
}

func TestStore_Resolve(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	id, _ := store.Create(ctx, "m", "")

	got, err := store.Resolve(ctx, ShortID(id))
	if err != nil || got != id {
		t.Errorf("Resolve(short) = %q, %v, want %q", got, err, id)
	}
	if got, err := store.Resolve(ctx, id); err != nil || got != id {
		t.Errorf("Resolve(full) = %q, %v", got, err)
	}
	if _, err := store.Resolve(ctx, "zzzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve(zzzz) = %v, want ErrNotFound", err)
	}
	if _, err := store.Resolve(ctx, "%"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve(%%) = %v, want ErrNotFound", err)
	}
}

func TestStore_Resolve_Ambiguous(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	for i := 0; i < 40; i++ {
		store.Create(ctx, "m", "")
	}
	// 40 random UUIDs over 16 leading hex digits always share one.
	var ambiguous bool
	for _, c := range "0123456789abcdef" {
		if _, err := store.Resolve(ctx, string(c)); errors.Is(err, ErrAmbiguousID) {
			ambiguous = true
			break
		}
	}
	if !ambiguous {
		t.Error("no single-character prefix was ambiguous")
	}
}

func TestStore_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	id, _ := store.Create(ctx, "m", "")

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.AppendMessage(ctx, id, StoredMessage{Role: "user", Content: "hi"}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("AppendMessage() error = %v", err)
	}

	conv, err := store.Load(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if conv.MessageCount() != 20 {
		t.Errorf("MessageCount() = %d, want 20", conv.MessageCount())
	}
}

func TestFormatSessionList(t *testing.T) {
	if got := FormatSessionList(nil); got != "No sessions found." {
		t.Errorf("FormatSessionList(nil) = %q", got)
	}

	out := FormatSessionList([]ConversationMeta{{
		ID:           "0123456789abcdef",
		Title:        "Makan malam di Bangsar",
		MessageCount: 4,
		UpdatedAt:    time.Now(),
	}})
	for _, want := range []string{"01234567 ", "Makan malam di Bangsar", " 4 "} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatSessionList() missing %q:\n%s", want, out)
		}
	}
}
