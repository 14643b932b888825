package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrLLMUnreachable marks a connection failure to the inference endpoint so
// callers can answer 503 instead of a generic server error.
var ErrLLMUnreachable = errors.New("inference endpoint unreachable")

// Local inference is slow; give each call a generous timeout.
const llmRequestTimeout = 2 * time.Minute

type ChatMessage struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message ChatMessage `json:"message"`
	Error   string      `json:"error"`
}

// LLMClient talks to an Ollama-compatible chat-completion endpoint.
type LLMClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewLLMClient(baseURL string) *LLMClient {
	return &LLMClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: llmRequestTimeout},
	}
}

// Chat sends the ordered message list to the given model and returns the
// generated text of the next assistant turn.
func (c *LLMClient) Chat(ctx context.Context, model string, messages []ChatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{Model: model, Messages: messages, Stream: false})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isConnectionRefused(err) {
			return "", fmt.Errorf("%w at %s: start the inference server first", ErrLLMUnreachable, c.baseURL)
		}
		return "", fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read inference response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("inference request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		return "", fmt.Errorf("failed to decode inference response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		detail := parsed.Error
		if detail == "" {
			detail = strings.TrimSpace(string(respBody))
		}
		return "", fmt.Errorf("inference request failed with status %d: %s", resp.StatusCode, detail)
	}

	return parsed.Message.Content, nil
}

func isConnectionRefused(err error) bool {
	return err != nil && strings.Contains(err.Error(), "connection refused")
}
