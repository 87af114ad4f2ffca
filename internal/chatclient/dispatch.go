package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tinysteps/carebot/internal/chat"
	"github.com/tinysteps/carebot/internal/logger"
)

// dispatch.go turns operations into outbound requests: every call carries
// the bearer credential, a JSON body where applicable, and the fixed
// per-call timeout. Error response bodies are opaque diagnostic strings and
// are never parsed for structure.

func (c *Client) newRequest(ctx context.Context, method, path, token string, body any) (*http.Request, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			cancel()
			return nil, nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, cancel, nil
}

// roundTrip executes the request and returns the status plus raw body. A
// transport failure (no response at all) is classified against the taxonomy;
// a non-2xx status becomes a StatusError.
func (c *Client) roundTrip(req *http.Request) (int, []byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		classified := classifyTransport(err)
		logger.L.Warn("request failed", "method", req.Method, "path", req.URL.Path, "elapsed", time.Since(start), "error", classified)
		return 0, nil, classified
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, classifyTransport(err)
	}
	logger.L.Debug("request completed", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, data, &StatusError{Code: resp.StatusCode}
	}
	return resp.StatusCode, data, nil
}

// callJSON performs a request and decodes a successful response into out
// (when out is non-nil). A 2xx body that fails to decode is malformed, not a
// transport failure.
func (c *Client) callJSON(ctx context.Context, method, path, token string, body, out any) error {
	req, cancel, err := c.newRequest(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	defer cancel()

	_, data, err := c.roundTrip(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// decodeChatResponse validates a successful /chat body, failing closed when
// any required field is missing.
func decodeChatResponse(data []byte) (chat.ChatResponse, error) {
	var resp chat.ChatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return chat.ChatResponse{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.ConversationID == "" {
		return chat.ChatResponse{}, fmt.Errorf("%w: missing conversation_id", ErrMalformedResponse)
	}
	if resp.Response.ID == "" || resp.Response.Content == "" {
		return chat.ChatResponse{}, fmt.Errorf("%w: missing response message", ErrMalformedResponse)
	}
	return resp, nil
}

// localID derives a transient identifier for locally created messages from
// the submission time. It is never sent to the server.
func localID() string {
	return fmt.Sprintf("local-%d", time.Now().UnixNano())
}
