package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/garagelab/autodiag/internal/logger"
)

// Client talks to the AI gateway's chat completions endpoint. It performs
// exactly one attempt per call; 429 and 402 are surfaced as typed errors so
// handlers can tell the user whether retrying makes sense.
type Client struct {
	logger     *logger.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewClient creates an AI gateway client.
func NewClient(log *logger.Logger, baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		logger: log,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
	}
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one system+user completion request and returns the raw
// model output.
func (c *Client) Complete(ctx context.Context, userContent []ContentPart) (string, error) {
	log := c.logger.WithContext(ctx).WithComponent("ai-client")

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call ai gateway: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrRateLimited
	case resp.StatusCode == http.StatusPaymentRequired:
		return "", ErrQuotaExhausted
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		log.Error("ai gateway returned error status", "status", resp.StatusCode)
		return "", &UpstreamError{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read ai gateway response: %w", err)
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return "", fmt.Errorf("failed to decode ai gateway response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return "", fmt.Errorf("ai gateway response contained no choices")
	}

	log.Debug("ai completion finished", "duration", time.Since(start).String())

	return chat.Choices[0].Message.Content, nil
}
