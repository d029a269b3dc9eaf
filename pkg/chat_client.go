package pkg

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type RequestMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
	Name    string `json:"name,omitempty"`
}

type ChatCompletionRequest struct {
	Model       string           `json:"model"`
	Messages    []RequestMessage `json:"messages"`
	MaxTokens   uint32           `json:"max_tokens,omitempty"`
	Temperature *float32         `json:"temperature,omitempty"`
	TopP        *float32         `json:"top_p,omitempty"`
	Stream      *bool            `json:"stream,omitempty"`
	Stop        []string         `json:"stop,omitempty"`
	User        *string          `json:"user,omitempty"`
}

type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type StreamChoice struct {
	Index        uint32 `json:"index"`
	Delta        Delta  `json:"delta"`
	FinishReason string `json:"finish_reason,omitempty"`
}

type StreamChatCompletionResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created uint64         `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
}

// ChatClient talks to an OpenAI-compatible chat completion API. The wire
// contract is server-sent events: one "data: {json}" frame per token delta,
// terminated by a "data: [DONE]" sentinel.
type ChatClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	logger  *zap.Logger
}

func NewChatClient(baseURL, apiKey string, logger *zap.Logger) *ChatClient {
	return &ChatClient{
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger,
	}
}

func (c *ChatClient) post(ctx context.Context, endpoint string, body interface{}) (*http.Response, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, endpoint)

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	return resp, nil
}

// CreateChatCompletionStream streams a completion, invoking handler once per
// decoded frame until the [DONE] sentinel or an error. Frames that fail to
// decode are logged and skipped; a lost token is preferable to a lost
// response.
func (c *ChatClient) CreateChatCompletionStream(ctx context.Context, request ChatCompletionRequest, handler func(*StreamChatCompletionResponse) error) error {
	streamTrue := true
	request.Stream = &streamTrue

	resp, err := c.post(ctx, "chat/completions", request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		// Skip empty lines or non-data lines
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}

		// Check for stream end
		if line == "data: [DONE]" {
			break
		}

		jsonData := line[6:] // Remove "data: " prefix
		var response StreamChatCompletionResponse
		if err := json.Unmarshal([]byte(jsonData), &response); err != nil {
			c.logger.Warn("skipping malformed stream frame", zap.Error(err))
			continue
		}

		if err := handler(&response); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading stream: %w", err)
	}

	return nil
}
