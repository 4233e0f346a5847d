package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ModelClient is the reasoning-model interface consumed by the orchestrator
// and the compliance gate. This enables testing with fakes.
type ModelClient interface {
	// CreateReply sends the accumulated dialogue plus tool definitions to the
	// model and returns its reply as tagged content blocks.
	CreateReply(ctx context.Context, system string, messages []Message, tools []Tool) (*Reply, error)
}

// Client implements ModelClient against the Anthropic messages API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// NewClient creates a messages API client. baseURL and model fall back to
// sensible defaults when empty.
func NewClient(apiKey, baseURL, model string, maxTokens int) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if model == "" {
		model = "claude-3-5-sonnet-20240620"
	}
	if maxTokens <= 0 {
		maxTokens = 1000
	}

	return &Client{
		apiKey:    apiKey,
		baseURL:   baseURL,
		model:     model,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// CreateReply calls the messages API with the given history and tools.
// Failures carry distinct types: *ConnectionError when the request never
// completed, *RateLimitError on HTTP 429, *StatusError on any other non-2xx.
func (c *Client) CreateReply(ctx context.Context, system string, messages []Message, tools []Tool) (*Reply, error) {
	reqBody := Request{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  messages,
		Tools:     tools,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp apiError
		message := string(body)
		errType := ""
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			message = errResp.Error.Message
			errType = errResp.Error.Type
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, &RateLimitError{Message: message}
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Type: errType, Message: message}
	}

	var reply Reply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &reply, nil
}
