// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/rigmark/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

// ConversationError represents a conversation-related error.
// It can be compared using errors.Is.
type ConversationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConversationError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing conversation errors.
func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

var (
	// ErrNotFound is returned when no conversation matches an ID.
	ErrNotFound = &ConversationError{Message: "conversation not found"}

	// ErrAmbiguousID is returned when an ID prefix matches more than one conversation.
	ErrAmbiguousID = &ConversationError{Message: "conversation id is ambiguous"}

	// ErrEmptyContent is returned when appending a message with no content.
	ErrEmptyContent = errors.New("message content is empty")
)

// titleWidth bounds the title derived from the first user message.
const titleWidth = 60

// =============================================================================
// TYPES
// =============================================================================

// StoredConversation represents a persisted conversation.
type StoredConversation struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Model     string          `json:"model"`
	Language  string          `json:"language,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Messages  []StoredMessage `json:"messages"`
}

// StoredMessage represents a persisted message.
type StoredMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user", "assistant", "system"
	Content   string    `json:"content"`
	HTML      string    `json:"html,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Statistics (assistant messages)
	TokenCount int   `json:"token_count,omitempty"`
	DurationMs int64 `json:"duration_ms,omitempty"`
}

// ConversationMeta contains metadata for listing conversations.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model"`
	Language     string    `json:"language,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// MessageCount returns the number of messages.
func (c *StoredConversation) MessageCount() int {
	return len(c.Messages)
}

// Preview returns a one-line snippet of the first user message.
func (c *StoredConversation) Preview() string {
	for _, msg := range c.Messages {
		if msg.Role == "user" {
			return util.Snippet(msg.Content, titleWidth)
		}
	}
	return ""
}

// =============================================================================
// STORE
// =============================================================================

// Store is a SQLite-backed conversation store. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path.
// The special path ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("storage path cannot be empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	// A single connection also keeps an in-memory database alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// Create starts an empty conversation and returns its ID.
func (s *Store) Create(ctx context.Context, model, language string) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC().UnixNano()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, model, language, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, model, language, now, now)
	if err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	return id, nil
}

// AppendMessage adds msg to the end of a conversation and returns the stored
// message with its ID and timestamp filled in. The first user message also
// becomes the conversation title.
func (s *Store) AppendMessage(ctx context.Context, conversationID string, msg StoredMessage) (StoredMessage, error) {
	if strings.TrimSpace(msg.Content) == "" {
		return StoredMessage{}, ErrEmptyContent
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	msg.Timestamp = msg.Timestamp.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return StoredMessage{}, fmt.Errorf("append message: %w", err)
	}
	defer tx.Rollback()

	var title string
	err = tx.QueryRowContext(ctx, `SELECT title FROM conversations WHERE id = ?`, conversationID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredMessage{}, ErrNotFound
	}
	if err != nil {
		return StoredMessage{}, fmt.Errorf("append message: %w", err)
	}

	var seq int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE conversation_id = ?`,
		conversationID).Scan(&seq); err != nil {
		return StoredMessage{}, fmt.Errorf("append message: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, seq, role, content, html, created_at, token_count, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, conversationID, seq, msg.Role, msg.Content, msg.HTML,
		msg.Timestamp.UnixNano(), msg.TokenCount, msg.DurationMs); err != nil {
		return StoredMessage{}, fmt.Errorf("append message: %w", err)
	}

	if title == "" && msg.Role == "user" {
		title = util.Snippet(msg.Content, titleWidth)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`,
		title, msg.Timestamp.UnixNano(), conversationID); err != nil {
		return StoredMessage{}, fmt.Errorf("append message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return StoredMessage{}, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

// Delete removes a conversation and its messages.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// Load returns a conversation with all of its messages in order.
func (s *Store) Load(ctx context.Context, id string) (*StoredConversation, error) {
	conv := &StoredConversation{ID: id}
	var created, updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT title, model, language, created_at, updated_at FROM conversations WHERE id = ?`, id).
		Scan(&conv.Title, &conv.Model, &conv.Language, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	conv.CreatedAt = fromNanos(created)
	conv.UpdatedAt = fromNanos(updated)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, html, created_at, token_count, duration_ms
		 FROM messages WHERE conversation_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	conv.Messages = []StoredMessage{}
	for rows.Next() {
		var msg StoredMessage
		var ts int64
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &msg.HTML, &ts, &msg.TokenCount, &msg.DurationMs); err != nil {
			return nil, fmt.Errorf("load messages: %w", err)
		}
		msg.Timestamp = fromNanos(ts)
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	return conv, nil
}

// Resolve expands an ID prefix to a full conversation ID.
func (s *Store) Resolve(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM conversations WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escapeLike(prefix)+"%")
	if err != nil {
		return "", fmt.Errorf("resolve conversation: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("resolve conversation: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("resolve conversation: %w", err)
	}

	switch len(ids) {
	case 0:
		return "", ErrNotFound
	case 1:
		return ids[0], nil
	default:
		for _, id := range ids {
			if id == prefix {
				return id, nil
			}
		}
		return "", ErrAmbiguousID
	}
}

const metaColumns = `
SELECT c.id, c.title, c.model, c.language, c.created_at, c.updated_at,
       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
FROM conversations c`

// List returns conversation metadata, most recently updated first.
// A limit of zero or less returns every conversation.
func (s *Store) List(ctx context.Context, limit int) ([]ConversationMeta, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		metaColumns+` ORDER BY c.updated_at DESC, c.id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return scanMetas(rows)
}

// Search returns conversations whose title or any message contains query,
// case-insensitively for ASCII text, most recently updated first.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]ConversationMeta, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []ConversationMeta{}, nil
	}
	if limit <= 0 {
		limit = -1
	}

	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(ctx, metaColumns+`
		WHERE c.title LIKE ? ESCAPE '\'
		   OR EXISTS (SELECT 1 FROM messages m WHERE m.conversation_id = c.id AND m.content LIKE ? ESCAPE '\')
		ORDER BY c.updated_at DESC, c.id LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search conversations: %w", err)
	}
	return scanMetas(rows)
}

// Count returns the number of stored conversations and messages.
func (s *Store) Count(ctx context.Context) (conversations, messages int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM conversations), (SELECT COUNT(*) FROM messages)`).
		Scan(&conversations, &messages)
	if err != nil {
		return 0, 0, fmt.Errorf("count conversations: %w", err)
	}
	return conversations, messages, nil
}

func scanMetas(rows *sql.Rows) ([]ConversationMeta, error) {
	defer rows.Close()

	metas := []ConversationMeta{}
	for rows.Next() {
		var m ConversationMeta
		var created, updated int64
		if err := rows.Scan(&m.ID, &m.Title, &m.Model, &m.Language, &created, &updated, &m.MessageCount); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		m.CreatedAt = fromNanos(created)
		m.UpdatedAt = fromNanos(updated)
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return metas, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
