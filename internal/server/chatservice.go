package server

import (
	"context"
	"fmt"

	"github.com/tinysteps/carebot/internal/chat"
	"github.com/tinysteps/carebot/internal/config"
	"github.com/tinysteps/carebot/internal/llm"
	"github.com/tinysteps/carebot/internal/logger"
	"github.com/tinysteps/carebot/internal/store"
)

// ChatService orchestrates one chat turn: resolve the conversation, persist
// the user message, generate and persist the bot reply, and keep long
// conversations summarized.
type ChatService struct {
	store     *store.Store
	responder *llm.Responder
	cfg       config.ChatConfig
}

// NewChatService creates a ChatService.
func NewChatService(st *store.Store, responder *llm.Responder, cfg config.ChatConfig) *ChatService {
	return &ChatService{store: st, responder: responder, cfg: cfg}
}

// LLMHealthy reports whether the underlying responder looks usable.
func (s *ChatService) LLMHealthy() bool { return s.responder.Healthy() }

// Chat handles one POST /chat turn. A request without a conversation id
// creates a new conversation; a request naming an unknown or foreign
// conversation fails with the store's sentinel error.
func (s *ChatService) Chat(ctx context.Context, userID string, req chat.ChatRequest) (chat.ChatResponse, error) {
	conv, err := s.resolveConversation(ctx, userID, req)
	if err != nil {
		return chat.ChatResponse{}, err
	}

	userMsg, err := s.store.AppendMessage(ctx, conv.ID, chat.RoleUser, req.Message, 0)
	if err != nil {
		return chat.ChatResponse{}, fmt.Errorf("save user message: %w", err)
	}

	full, err := s.store.GetConversationWithMessages(ctx, conv.ID, userID)
	if err != nil {
		return chat.ChatResponse{}, err
	}

	if len(full.Messages) > s.cfg.MaxConversationLength {
		s.summarize(ctx, userID, full)
		if reloaded, err := s.store.GetConversationWithMessages(ctx, conv.ID, userID); err == nil {
			full = reloaded
		}
	}

	replyText, tokens, err := s.responder.GenerateReply(ctx, full.Messages, full.Summary)
	if err != nil {
		return chat.ChatResponse{}, fmt.Errorf("generate reply: %w", err)
	}

	botMsg, err := s.store.AppendMessage(ctx, conv.ID, chat.RoleAssistant, replyText, tokens)
	if err != nil {
		return chat.ChatResponse{}, fmt.Errorf("save assistant message: %w", err)
	}

	return chat.ChatResponse{
		ConversationID: conv.ID,
		Message:        userMsg,
		Response:       botMsg,
	}, nil
}

func (s *ChatService) resolveConversation(ctx context.Context, userID string, req chat.ChatRequest) (chat.Conversation, error) {
	if req.ConversationID != nil && *req.ConversationID != "" {
		return s.store.GetConversation(ctx, *req.ConversationID, userID)
	}
	title := req.Title
	if title == "" {
		title = defaultTitle
	}
	return s.store.CreateConversation(ctx, userID, title)
}

// summarize condenses older history into the conversation summary and prunes
// the summarized messages. Best effort: a failing summarization never fails
// the chat turn.
func (s *ChatService) summarize(ctx context.Context, userID string, full chat.ConversationWithMessages) {
	keep := s.cfg.KeepRecentMessages
	if len(full.Messages) <= keep {
		return
	}
	old := full.Messages[:len(full.Messages)-keep]
	if len(old) < 5 {
		return
	}

	summary, err := s.responder.Summarize(ctx, old)
	if err != nil {
		logger.L.Warn("summarization failed; keeping full history", "conversation", full.ID, "error", err)
		return
	}
	if _, err := s.store.UpdateConversation(ctx, full.ID, userID, chat.UpdateConversationRequest{Summary: &summary}); err != nil {
		logger.L.Warn("saving summary failed", "conversation", full.ID, "error", err)
		return
	}
	ids := make([]string, len(old))
	for i, m := range old {
		ids[i] = m.ID
	}
	if err := s.store.DeleteMessages(ctx, ids); err != nil {
		logger.L.Warn("pruning summarized messages failed", "conversation", full.ID, "error", err)
		return
	}
	logger.L.Info("summarized conversation", "conversation", full.ID, "pruned", len(old))
}
