package llm

import (
	"context"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/tinysteps/carebot/internal/chat"
	"github.com/tinysteps/carebot/internal/config"
)

type mockClient struct {
	requests  []openai.ChatCompletionRequest
	responses []openai.ChatCompletionResponse
	err       error
}

func (m *mockClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	m.requests = append(m.requests, req)
	if len(m.responses) == 0 {
		return openai.ChatCompletionResponse{}, nil
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func testCfg() config.LLMConfig {
	return config.LLMConfig{APIKey: "k", Model: "test-model", MaxTokens: 100, Temperature: 0.5}
}

func TestGenerateReply(t *testing.T) {
	mock := &mockClient{responses: []openai.ChatCompletionResponse{{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "feed every 3 hours"}}},
		Usage:   openai.Usage{CompletionTokens: 7},
	}}}
	r := NewResponder(mock, testCfg())

	history := []chat.Message{
		{Role: chat.RoleUser, Content: "how often should a newborn eat?"},
	}
	reply, tokens, err := r.GenerateReply(context.Background(), history, "")
	require.NoError(t, err)
	require.Equal(t, "feed every 3 hours", reply)
	require.Equal(t, 7, tokens)

	req := mock.requests[0]
	require.Equal(t, "test-model", req.Model)
	require.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	require.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
}

func TestGenerateReply_SummaryInSystemContext(t *testing.T) {
	mock := &mockClient{responses: []openai.ChatCompletionResponse{{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}},
	}}}
	r := NewResponder(mock, testCfg())

	_, _, err := r.GenerateReply(context.Background(), nil, "Baby is 3 months old.")
	require.NoError(t, err)
	require.Contains(t, mock.requests[0].Messages[0].Content, "Baby is 3 months old.")
}

func TestGenerateReply_TokenEstimateFallback(t *testing.T) {
	mock := &mockClient{responses: []openai.ChatCompletionResponse{{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "12345678"}}},
	}}}
	r := NewResponder(mock, testCfg())

	_, tokens, err := r.GenerateReply(context.Background(), nil, "")
	require.NoError(t, err)
	require.Equal(t, 2, tokens)
}

func TestGenerateReply_NoChoices(t *testing.T) {
	r := NewResponder(&mockClient{}, testCfg())
	_, _, err := r.GenerateReply(context.Background(), nil, "")
	require.Error(t, err)
}

func TestSummarize(t *testing.T) {
	mock := &mockClient{responses: []openai.ChatCompletionResponse{{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "they talked about sleep"}}},
	}}}
	r := NewResponder(mock, testCfg())

	summary, err := r.Summarize(context.Background(), []chat.Message{
		{Role: chat.RoleUser, Content: "baby won't sleep"},
		{Role: chat.RoleAssistant, Content: "try a routine"},
	})
	require.NoError(t, err)
	require.Equal(t, "they talked about sleep", summary)
	require.Contains(t, mock.requests[0].Messages[1].Content, "baby won't sleep")
}

func TestHealthy(t *testing.T) {
	require.True(t, NewResponder(&mockClient{}, testCfg()).Healthy())
	require.False(t, NewResponder(&mockClient{}, config.LLMConfig{}).Healthy())
}
