// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat conversations in a SQLite database.
//
// Each conversation row owns an ordered list of messages. Assistant
// messages carry the rendered markup next to the raw model text so a
// stored conversation can be replayed without rendering again.
//
// # Key Types
//
//   - Store: SQLite-backed conversation store
//   - StoredConversation: Conversation with its messages
//   - ConversationMeta: Lightweight metadata for listing
//
// # Usage
//
//	store, err := storage.Open(path)
//	id, err := store.Create(ctx, "qwen2.5-coder:14b", "en")
//	_, err = store.AppendMessage(ctx, id, storage.StoredMessage{Role: "user", Content: "hi"})
//	conv, err := store.Load(ctx, id)
//
// # Storage Location
//
// The default database is ~/.rigmark/history.db.
package storage
