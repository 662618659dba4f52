// Package llm talks to an OpenAI-compatible chat-completions endpoint.
package llm

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

	"fintrack/api/config"
	"fintrack/api/logger"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

var (
	ErrTimeout          = errors.New("llm: request timed out")
	ErrGenerationFailed = errors.New("llm: generation failed")
)

const maxRetries = 3

type OpenAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	N           int       `json:"n"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Choice struct {
	Message Message `json:"message"`
}

type OpenAIResponse struct {
	Choices []Choice `json:"choices"`
}

type Client struct {
	cfg           config.LLMConfig
	http          *http.Client
	retryInterval time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetryInterval sets the first backoff delay between retried attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client) { c.retryInterval = d }
}

func NewClient(cfg config.LLMConfig, opts ...Option) *Client {
	c := &Client{
		cfg:           cfg,
		http:          &http.Client{},
		retryInterval: 500 * time.Millisecond,
	}
	if c.cfg.Timeout <= 0 {
		c.cfg.Timeout = 30 * time.Second
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends system followed by messages and returns the first choice.
// The whole call, retries included, is bounded by the configured timeout.
// Errors wrap ErrTimeout or ErrGenerationFailed.
func (c *Client) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	reqBody := OpenAIRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		N:           1,
	}
	if system != "" {
		reqBody.Messages = append(reqBody.Messages, Message{Role: "system", Content: system})
	}
	reqBody.Messages = append(reqBody.Messages, messages...)

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	var text string
	attempt := 0
	op := func() error {
		attempt++
		out, err := c.send(ctx, jsonData)
		if err != nil {
			logger.Get().Warn("chat completion attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		text = out
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.MaxElapsedTime = 0
	err = backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s: %v", ErrTimeout, c.cfg.Timeout, err)
		}
		if errors.Is(err, ErrGenerationFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return text, nil
}

// send performs one request. Rate limits and server errors are returned as
// retryable; everything else is permanent.
func (c *Client) send(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", backoff.Permanent(err)
		}
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("%w: status %d: %s", ErrGenerationFailed, resp.StatusCode, strings.TrimSpace(string(detail)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", err
		}
		return "", backoff.Permanent(err)
	}

	var openaiResp OpenAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&openaiResp); err != nil {
		return "", backoff.Permanent(fmt.Errorf("%w: decode response: %v", ErrGenerationFailed, err))
	}
	if len(openaiResp.Choices) == 0 {
		return "", backoff.Permanent(fmt.Errorf("%w: no choices returned", ErrGenerationFailed))
	}
	text := strings.TrimSpace(openaiResp.Choices[0].Message.Content)
	if text == "" {
		return "", backoff.Permanent(fmt.Errorf("%w: empty completion", ErrGenerationFailed))
	}
	return text, nil
}
