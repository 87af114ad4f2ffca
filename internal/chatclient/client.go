// Package chatclient implements the conversation sync client: it mirrors the
// user's conversation list and the currently open conversation against the
// remote conversation service, appends user input optimistically, and
// reconciles server-assigned identifiers.
//
// Failures never clear already-displayed content; they append a single
// explanatory message instead, and nothing is retried automatically.
package chatclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/qmuntal/stateless"

	"github.com/tinysteps/carebot/internal/chat"
	"github.com/tinysteps/carebot/internal/logger"
)

// DefaultTimeout bounds every outbound call.
const DefaultTimeout = 30 * time.Second

// TokenSource supplies the bearer credential. The session provider owns the
// credential; the client only reads it. ok is false when signed out.
type TokenSource interface {
	Token() (token string, ok bool)
}

// StaticToken is a TokenSource for a fixed credential.
type StaticToken string

func (t StaticToken) Token() (string, bool) { return string(t), t != "" }

// SessionToken is a mutable TokenSource the session provider updates on
// sign-in and sign-out transitions.
type SessionToken struct {
	mu    sync.RWMutex
	token string
}

func (s *SessionToken) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *SessionToken) Clear() { s.Set("") }

func (s *SessionToken) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Config configures a Client. BaseURL is resolved once at startup and held
// for the client's lifetime.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Tokens     TokenSource
	HTTPClient *http.Client
}

// Client is the conversation sync client. All operations are serialized
// behind a single mutex: overlapping load/send calls would otherwise race on
// the view state, so only one sync operation runs at a time.
type Client struct {
	mu      sync.Mutex
	base    string
	timeout time.Duration
	http    *http.Client
	tokens  TokenSource

	fsm           *stateless.StateMachine
	currentID     string
	conversations []chat.Conversation
	messages      []chat.Message
}

// New creates a Client in the Unidentified state with empty view state.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	tokens := cfg.Tokens
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &Client{
		base:          strings.TrimRight(cfg.BaseURL, "/"),
		timeout:       timeout,
		http:          httpClient,
		tokens:        tokens,
		fsm:           newLifecycle(),
		conversations: make([]chat.Conversation, 0),
		messages:      make([]chat.Message, 0),
	}
}

// State returns the current lifecycle state.
func (c *Client) State() ConversationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConversationState(c.fsm.MustState())
}

// CurrentConversation returns the durable conversation id, ok=false in the
// Unidentified state.
func (c *Client) CurrentConversation() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentID, c.fsm.MustState() == StateIdentified
}

// Conversations returns the last fetched conversation list.
func (c *Client) Conversations() []chat.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chat.Conversation, len(c.conversations))
	copy(out, c.conversations)
	return out
}

// Messages returns the currently displayed message list.
func (c *Client) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chat.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Ping probes backend connectivity. No credential required.
func (c *Client) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callJSON(ctx, http.MethodGet, "/test", "", nil, nil)
}

// VerifyAuth probes the credential against the backend before first use.
func (c *Client) VerifyAuth(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	token, ok := c.tokens.Token()
	if !ok {
		return ErrUnauthenticated
	}
	var probe chat.ProbeResponse
	return c.callJSON(ctx, http.MethodGet, "/test-auth", token, nil, &probe)
}

// ListConversations fetches the conversation summaries and replaces the
// local list wholesale on success (last fetch wins). On failure the prior
// list is left untouched and a system message is appended to the visible
// message list. An empty successful result is a valid state, not an error.
func (c *Client) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.refreshListLocked(ctx); err != nil {
		return nil, err
	}
	out := make([]chat.Conversation, len(c.conversations))
	copy(out, c.conversations)
	return out, nil
}

func (c *Client) refreshListLocked(ctx context.Context) error {
	token, ok := c.tokens.Token()
	if !ok {
		c.appendNotice(chat.RoleSystem, "You are signed out. Sign in to see your conversations.")
		return ErrUnauthenticated
	}
	var convs []chat.Conversation
	if err := c.callJSON(ctx, http.MethodGet, "/conversations", token, nil, &convs); err != nil {
		logger.L.Warn("listing conversations failed", "error", err)
		c.appendNotice(chat.RoleSystem, failureText("Couldn't load your conversations", err))
		return err
	}
	c.conversations = convs
	return nil
}

// LoadConversation opens an existing conversation: the displayed message
// list is cleared before the fetch so a slow load never shows stale content,
// and the identifier is marked current. The history is fully materialized.
// On failure a single bot-authored error message lands in the now-empty
// list; there is no automatic retry.
func (c *Client) LoadConversation(ctx context.Context, id string) ([]chat.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = c.messages[:0]
	if err := c.fsm.Fire(TriggerConversationSelected); err != nil {
		return nil, fmt.Errorf("lifecycle: %w", err)
	}
	c.currentID = id

	token, ok := c.tokens.Token()
	if !ok {
		c.appendNotice(chat.RoleAssistant, "You are signed out. Sign in to view this conversation.")
		return nil, ErrUnauthenticated
	}

	var conv chat.ConversationWithMessages
	if err := c.callJSON(ctx, http.MethodGet, "/conversations/"+id+"/messages", token, nil, &conv); err != nil {
		logger.L.Warn("loading conversation failed", "conversation", id, "error", err)
		c.appendNotice(chat.RoleAssistant, failureText("Couldn't load this conversation", err))
		return nil, err
	}

	c.messages = append(c.messages[:0], conv.Messages...)
	out := make([]chat.Message, len(c.messages))
	copy(out, c.messages)
	return out, nil
}

// NewConversation resets to the Unidentified state with an empty message
// list. Local only: conversation creation is deferred until the first send,
// so no empty conversations pile up server-side. Idempotent.
func (c *Client) NewConversation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fsm.Fire(TriggerNewConversation); err != nil {
		logger.L.Error("lifecycle reset failed", "error", err)
		return
	}
	c.currentID = ""
	c.messages = c.messages[:0]
}

// DeleteConversation deletes a conversation server-side. On success the
// summary list is re-fetched, and if the deleted conversation was open the
// client resets to the new-conversation state. On failure the item is NOT
// removed locally; a deleted-but-not-confirmed row must stay visible.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token, ok := c.tokens.Token()
	if !ok {
		c.appendNotice(chat.RoleAssistant, "You are signed out. Sign in to manage conversations.")
		return ErrUnauthenticated
	}

	if err := c.callJSON(ctx, http.MethodDelete, "/conversations/"+id, token, nil, nil); err != nil {
		logger.L.Warn("deleting conversation failed", "conversation", id, "error", err)
		c.appendNotice(chat.RoleAssistant, failureText("Couldn't delete the conversation", err))
		return err
	}

	if c.currentID == id && c.fsm.MustState() == StateIdentified {
		if err := c.fsm.Fire(TriggerConversationDeleted); err != nil {
			return fmt.Errorf("lifecycle: %w", err)
		}
		c.currentID = ""
		c.messages = c.messages[:0]
	}

	if err := c.refreshListLocked(ctx); err != nil {
		return err
	}
	return nil
}

// SendMessage sends user input. The user's message is appended optimistically
// before the network round-trip; on failure it stays in the list so the user
// can re-send. The conversation identifier is discovered, not chosen: the
// request omits conversation_id in the Unidentified state, which tells the
// backend to create a new conversation, and the response's identifier is
// adopted as authoritative. Returns the (possibly newly assigned)
// conversation id and the bot reply.
func (c *Client) SendMessage(ctx context.Context, text string) (string, chat.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", chat.Message{}, ErrEmptyMessage
	}

	token, hasToken := c.tokens.Token()
	if !hasToken {
		c.appendNotice(chat.RoleAssistant, "You are signed out. Sign in to send messages.")
		return "", chat.Message{}, ErrUnauthenticated
	}

	// Optimistic local echo; the UI must never appear to eat input.
	c.messages = append(c.messages, chat.Message{
		ID:        localID(),
		Role:      chat.RoleUser,
		Content:   trimmed,
		CreatedAt: time.Now(),
	})

	hadID := c.fsm.MustState() == StateIdentified
	req := chat.ChatRequest{Message: trimmed}
	if hadID {
		id := c.currentID
		req.ConversationID = &id
	}

	httpReq, cancel, err := c.newRequest(ctx, http.MethodPost, "/chat", token, req)
	if err != nil {
		return "", chat.Message{}, err
	}
	defer cancel()

	status, data, err := c.roundTrip(httpReq)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrAccessDenied) {
			logger.L.Warn("send rejected", "status", status, "error", err)
		} else {
			logger.L.Warn("send failed", "status", status, "error", err)
		}
		c.appendNotice(chat.RoleAssistant, failureText("Sorry, I couldn't process that", err))
		return "", chat.Message{}, err
	}

	resp, err := decodeChatResponse(data)
	if err != nil {
		logger.L.Warn("send returned malformed body", "error", err)
		c.appendNotice(chat.RoleAssistant, failureText("Sorry, I couldn't process that", err))
		return "", chat.Message{}, err
	}

	c.messages = append(c.messages, resp.Response)

	if err := c.fsm.Fire(TriggerSendAcknowledged); err != nil {
		return "", chat.Message{}, fmt.Errorf("lifecycle: %w", err)
	}
	if hadID && resp.ConversationID != c.currentID {
		logger.L.Warn("server reassigned conversation id", "old", c.currentID, "new", resp.ConversationID)
	}
	c.currentID = resp.ConversationID

	if !hadID {
		// The first acknowledged send created the conversation; refresh the
		// summary list so it shows up. Best effort: the send itself already
		// succeeded.
		if err := c.refreshListLocked(ctx); err != nil {
			logger.L.Warn("list refresh after first send failed", "error", err)
		}
	}

	return resp.ConversationID, resp.Response, nil
}

// appendNotice adds a synthetic locally-authored message to the visible
// list. Must be called with mu held.
func (c *Client) appendNotice(role chat.Role, text string) {
	c.messages = append(c.messages, chat.Message{
		ID:        localID(),
		Role:      role,
		Content:   text,
		CreatedAt: time.Now(),
	})
}

// failureText renders a taxonomy error as a short user-facing sentence.
// Timeouts and transport failures share one generic phrasing; the
// distinction lives in the logs.
func failureText(prefix string, err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return prefix + ": your session has expired. Please sign in again."
	case errors.Is(err, ErrAccessDenied):
		return prefix + ": access was denied."
	case errors.Is(err, ErrRemoteUnavailable):
		return prefix + ": the service is having trouble right now. Please try again."
	case errors.Is(err, ErrNetworkTimeout), errors.Is(err, ErrNetworkUnavailable):
		return prefix + ": please check your connection and try again."
	case errors.Is(err, ErrMalformedResponse):
		return prefix + ": the service sent an unexpected reply. Please try again."
	default:
		var se *StatusError
		if errors.As(err, &se) {
			return fmt.Sprintf("%s (error %d). Please try again.", prefix, se.Code)
		}
		return prefix + ". Please try again."
	}
}
