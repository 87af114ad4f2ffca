package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinysteps/carebot/internal/chat"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConversationCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, "user-1", "Sleep questions")
	require.NoError(t, err)
	require.NotEmpty(t, conv.ID)
	require.Equal(t, "Sleep questions", conv.Title)

	got, err := s.GetConversation(ctx, conv.ID, "user-1")
	require.NoError(t, err)
	require.Equal(t, conv.ID, got.ID)
	require.Zero(t, got.MessageCount)

	title := "Renamed"
	updated, err := s.UpdateConversation(ctx, conv.ID, "user-1", chat.UpdateConversationRequest{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Title)

	require.NoError(t, s.DeleteConversation(ctx, conv.ID, "user-1"))
	_, err = s.GetConversation(ctx, conv.ID, "user-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOwnershipEnforced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, "owner", "private")
	require.NoError(t, err)

	_, err = s.GetConversation(ctx, conv.ID, "intruder")
	require.ErrorIs(t, err, ErrForbidden)
	require.ErrorIs(t, s.DeleteConversation(ctx, conv.ID, "intruder"), ErrForbidden)

	// the intruder's list must not contain it either
	convs, err := s.ListConversations(ctx, "intruder")
	require.NoError(t, err)
	require.Empty(t, convs)
}

func TestMessagesOrderedAndCounted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, "u", "t")
	require.NoError(t, err)

	_, err = s.AppendMessage(ctx, conv.ID, chat.RoleUser, "first", 0)
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, conv.ID, chat.RoleAssistant, "second", 12)
	require.NoError(t, err)

	full, err := s.GetConversationWithMessages(ctx, conv.ID, "u")
	require.NoError(t, err)
	require.Equal(t, 2, full.MessageCount)
	require.Len(t, full.Messages, 2)
	require.Equal(t, "first", full.Messages[0].Content)
	require.Equal(t, "second", full.Messages[1].Content)
	require.Equal(t, 12, full.Messages[1].TokensUsed)
}

func TestListOrderedByActivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.CreateConversation(ctx, "u", "a")
	require.NoError(t, err)
	b, err := s.CreateConversation(ctx, "u", "b")
	require.NoError(t, err)

	// activity on a moves it ahead of b
	_, err = s.AppendMessage(ctx, a.ID, chat.RoleUser, "bump", 0)
	require.NoError(t, err)

	convs, err := s.ListConversations(ctx, "u")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	require.Equal(t, a.ID, convs[0].ID)
	require.Equal(t, b.ID, convs[1].ID)
}

func TestDeleteMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, "u", "t")
	require.NoError(t, err)
	m1, err := s.AppendMessage(ctx, conv.ID, chat.RoleUser, "old", 0)
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, conv.ID, chat.RoleAssistant, "kept", 0)
	require.NoError(t, err)

	require.NoError(t, s.DeleteMessages(ctx, []string{m1.ID}))

	full, err := s.GetConversationWithMessages(ctx, conv.ID, "u")
	require.NoError(t, err)
	require.Len(t, full.Messages, 1)
	require.Equal(t, "kept", full.Messages[0].Content)
}
