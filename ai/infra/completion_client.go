package infra

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

	"codereview-gateway/ai/domain"
)

var ErrNoChoices = errors.New("completion: no choices returned")

// StatusError é devolvido quando o provedor responde fora de 2xx.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion: provider returned status %d: %s", e.StatusCode, e.Body)
}

// limite do corpo de erro guardado em StatusError
const maxErrorBody = 512

type CompletionClient struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	HTTPClient  *http.Client
}

type CompletionOption func(*CompletionClient)

func WithHTTPClient(c *http.Client) CompletionOption {
	return func(cc *CompletionClient) { cc.HTTPClient = c }
}

func WithTemperature(t float64) CompletionOption {
	return func(cc *CompletionClient) { cc.Temperature = t }
}

func NewCompletionClient(baseURL, apiKey, model string, timeout time.Duration, opts ...CompletionOption) *CompletionClient {
	c := &CompletionClient{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		APIKey:      apiKey,
		Model:       model,
		Temperature: 0.2,
		HTTPClient:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete implementa domain.Completer.
func (c *CompletionClient) Complete(ctx context.Context, p domain.Prompt) (domain.Completion, error) {
	msgs := make([]chatMessage, 0, 2)
	if p.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: p.System})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: p.User})

	payload, err := json.Marshal(chatRequest{Model: c.Model, Messages: msgs, Temperature: c.Temperature})
	if err != nil {
		return domain.Completion{}, fmt.Errorf("completion: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return domain.Completion{}, fmt.Errorf("completion: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("completion: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.Completion{}, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Completion{}, fmt.Errorf("completion: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return domain.Completion{}, ErrNoChoices
	}

	model := out.Model
	if model == "" {
		model = c.Model
	}
	return domain.Completion{Text: out.Choices[0].Message.Content, Model: model}, nil
}

func (c *CompletionClient) client() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}
