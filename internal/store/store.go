// Package store provides SQLite-backed persistence for conversations and
// messages. Every query is scoped to the owning user; ownership violations
// surface as ErrForbidden so the transport layer can distinguish them from
// plain misses.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"

	"github.com/tinysteps/carebot/internal/chat"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("owned by another user")
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	tokens_used INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
`

// Store wraps the SQLite database. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (and if necessary creates) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_busy_timeout=10000&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// CreateConversation inserts a new conversation for userID.
func (s *Store) CreateConversation(ctx context.Context, userID, title string) (chat.Conversation, error) {
	now := time.Now().UTC()
	conv := chat.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, title, summary, created_at, updated_at) VALUES (?,?,?,?,?,?);`,
		conv.ID, conv.UserID, conv.Title, "", conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("insert conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns all of userID's conversations, most recently
// updated first, each with its message count.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.title, c.summary, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c
		WHERE c.user_id = ?
		ORDER BY c.updated_at DESC;`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := make([]chat.Conversation, 0)
	for rows.Next() {
		var c chat.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Summary, &c.CreatedAt, &c.UpdatedAt, &c.MessageCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetConversation returns one conversation. ErrNotFound when no row exists,
// ErrForbidden when the row belongs to a different user.
func (s *Store) GetConversation(ctx context.Context, id, userID string) (chat.Conversation, error) {
	var c chat.Conversation
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.user_id, c.title, c.summary, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c WHERE c.id = ?;`, id).
		Scan(&c.ID, &c.UserID, &c.Title, &c.Summary, &c.CreatedAt, &c.UpdatedAt, &c.MessageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Conversation{}, ErrNotFound
	}
	if err != nil {
		return chat.Conversation{}, err
	}
	if c.UserID != userID {
		return chat.Conversation{}, ErrForbidden
	}
	return c, nil
}

// GetConversationWithMessages returns the conversation and its full message
// history in creation order.
func (s *Store) GetConversationWithMessages(ctx context.Context, id, userID string) (chat.ConversationWithMessages, error) {
	conv, err := s.GetConversation(ctx, id, userID)
	if err != nil {
		return chat.ConversationWithMessages{}, err
	}
	msgs, err := s.listMessages(ctx, id)
	if err != nil {
		return chat.ConversationWithMessages{}, err
	}
	return chat.ConversationWithMessages{Conversation: conv, Messages: msgs}, nil
}

func (s *Store) listMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, tokens_used, created_at
		FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, id ASC;`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make([]chat.Message, 0)
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.TokensUsed, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateConversation applies non-nil fields of req and bumps updated_at.
func (s *Store) UpdateConversation(ctx context.Context, id, userID string, req chat.UpdateConversationRequest) (chat.Conversation, error) {
	conv, err := s.GetConversation(ctx, id, userID)
	if err != nil {
		return chat.Conversation{}, err
	}
	if req.Title != nil {
		conv.Title = *req.Title
	}
	if req.Summary != nil {
		conv.Summary = *req.Summary
	}
	conv.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE conversations SET title = ?, summary = ?, updated_at = ? WHERE id = ?;`,
		conv.Title, conv.Summary, conv.UpdatedAt, id)
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("update conversation: %w", err)
	}
	return conv, nil
}

// DeleteConversation removes the conversation and all of its messages.
func (s *Store) DeleteConversation(ctx context.Context, id, userID string) error {
	if _, err := s.GetConversation(ctx, id, userID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?;`, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?;`, id)
	return err
}

// AppendMessage persists a new message and bumps the conversation's
// updated_at so list ordering follows activity.
func (s *Store) AppendMessage(ctx context.Context, conversationID string, role chat.Role, content string, tokensUsed int) (chat.Message, error) {
	msg := chat.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		TokensUsed:     tokensUsed,
		CreatedAt:      time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, tokens_used, created_at) VALUES (?,?,?,?,?,?);`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.TokensUsed, msg.CreatedAt)
	if err != nil {
		return chat.Message{}, fmt.Errorf("insert message: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?;`, msg.CreatedAt, conversationID); err != nil {
		return chat.Message{}, err
	}
	return msg, nil
}

// DeleteMessages removes the given messages, used when pruning summarized
// history.
func (s *Store) DeleteMessages(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?;`, id); err != nil {
			return err
		}
	}
	return nil
}
