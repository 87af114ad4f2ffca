package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/tinysteps/carebot/internal/chat"
	"github.com/tinysteps/carebot/internal/config"
	"github.com/tinysteps/carebot/internal/logger"
)

const systemPrompt = "You are a helpful baby care assistant. Answer questions about infant " +
	"health, feeding, sleep and development accurately and concisely. You are not a doctor; " +
	"recommend seeing a pediatrician for anything that sounds urgent."

// Responder turns conversation history into bot replies.
type Responder struct {
	client Client
	cfg    config.LLMConfig
}

// NewResponder creates a Responder backed by the given client.
func NewResponder(client Client, cfg config.LLMConfig) *Responder {
	return &Responder{client: client, cfg: cfg}
}

// GenerateReply produces the assistant reply for the given history. The
// stored conversation summary, when present, is folded into the system
// context so pruned history still informs the answer. Returns the reply text
// and an estimated token count; providers routed through OpenRouter do not
// reliably report usage, so the estimate fills the gap when usage is absent.
func (r *Responder) GenerateReply(ctx context.Context, history []chat.Message, summary string) (string, int, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: r.systemContext(summary),
	})
	for _, m := range history {
		switch m.Role {
		case chat.RoleUser:
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		case chat.RoleAssistant:
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content})
		}
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.cfg.Model,
		Messages:    messages,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	})
	if err != nil {
		return "", 0, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, fmt.Errorf("chat completion returned no choices")
	}
	content := resp.Choices[0].Message.Content
	tokens := resp.Usage.CompletionTokens
	if tokens == 0 {
		tokens = estimateTokens(content)
	}
	return content, tokens, nil
}

// Summarize condenses the given messages into a short summary paragraph.
func (r *Responder) Summarize(ctx context.Context, history []chat.Message) (string, error) {
	var b strings.Builder
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "Summarize the following conversation in a short paragraph, keeping facts about the baby (age, symptoms, routines) that matter for future questions."},
			{Role: openai.ChatMessageRoleUser, Content: b.String()},
		},
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summarize returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Healthy reports whether the provider looks usable. A configured API key is
// the only cheap signal; probing the provider on every health check would
// burn quota.
func (r *Responder) Healthy() bool {
	return r.cfg.APIKey != ""
}

func (r *Responder) systemContext(summary string) string {
	if summary == "" {
		return systemPrompt
	}
	logger.L.Debug("including conversation summary in system context", "length", len(summary))
	return systemPrompt + "\n\nSummary of the earlier conversation:\n" + summary
}

// estimateTokens approximates usage at four characters per token.
func estimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && text != "" {
		n = 1
	}
	return n
}
