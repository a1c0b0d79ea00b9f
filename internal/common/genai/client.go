// Package genai talks to an OpenAI compatible chat completions endpoint.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"edu-content-workers/internal/common/config"
	apperrors "edu-content-workers/internal/common/errors"
	apphttp "edu-content-workers/internal/common/http"
	"edu-content-workers/internal/common/metrics"
)

var (
	// ErrTimeout is returned when the provider does not answer within the
	// configured timeout.
	ErrTimeout = errors.New("genai: request timed out")
	// ErrEmptyResponse is returned when the provider answers without choices.
	ErrEmptyResponse = errors.New("genai: empty response")
)

// TextGenerator produces raw model text for a prompt. A nil TextGenerator
// means generation is not configured.
type TextGenerator interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is one single-turn completion.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// TimeoutError matches ErrTimeout and records the limit that was hit.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("genai: request timed out after %s", e.After)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// StatusError carries a non-2xx provider response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("genai: non-2xx status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	timeout    time.Duration
	http       *apphttp.Client
}

func NewClient(cfg config.GenAIConfig) *Client {
	timeout := config.GetDuration(cfg.Timeout)
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		timeout:    timeout,
		http:       apphttp.NewClient(timeout),
	}
}

// NewFromConfig returns nil when no endpoint is configured, so callers can
// branch on generator availability.
func NewFromConfig(cfg config.GenAIConfig) TextGenerator {
	if !cfg.Enabled() {
		return nil
	}
	return NewClient(cfg)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the prompt, retrying transport errors, 429 and 5xx with
// exponential backoff.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("genai: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", c.contextErr(ctx, lastErr)
			}
		}

		start := time.Now()
		text, err := c.send(ctx, body)
		if err == nil {
			metrics.ObserveGenerator("ok", time.Since(start))
			return text, nil
		}
		metrics.ObserveGenerator("error", time.Since(start))
		lastErr = err

		if ctx.Err() != nil {
			return "", c.contextErr(ctx, err)
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.retryable() {
			return "", err
		}
		if errors.Is(err, ErrEmptyResponse) || errors.Is(err, ErrTimeout) {
			return "", err
		}
	}

	return "", fmt.Errorf("genai: failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) send(ctx context.Context, body []byte) (string, error) {
	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	resp, err := c.http.PostJSON(ctx, c.baseURL+"/chat/completions", headers, body)
	if err != nil {
		if apphttp.IsTimeout(err) {
			return "", &TimeoutError{After: c.timeout}
		}
		return "", fmt.Errorf("genai: send request: %w", err)
	}

	if !resp.OK() {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(resp.Body), 500)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return "", fmt.Errorf("genai: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return parsed.Choices[0].Message.Content, nil
}

func (c *Client) contextErr(ctx context.Context, cause error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{After: c.timeout}
	}
	if cause != nil {
		return fmt.Errorf("genai: %w (last error: %v)", ctx.Err(), cause)
	}
	return fmt.Errorf("genai: %w", ctx.Err())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// JobError maps a generator failure into the job error taxonomy.
func JobError(err error) *apperrors.StandardError {
	var te *TimeoutError
	if errors.As(err, &te) {
		return apperrors.NewLLMTimeoutError(te.After)
	}
	return apperrors.NewLLMRequestFailedError(err)
}
