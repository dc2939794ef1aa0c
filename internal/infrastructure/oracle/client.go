package oracle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/scentmatch/backend/internal/domain"
)

const systemPrompt = "You are a fragrance product matching assistant. " +
	"You verify whether a merchant product and a competitor candidate are the same product: " +
	"same brand, same fragrance, same size and same concentration."

// ClientConfig holds the provider settings for one OpenAI-compatible endpoint
type ClientConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	MaxRetries        int
	Timeout           time.Duration
	RequestsPerMinute int
}

// Client arbitrates shortlists through an OpenAI-compatible chat completion
// endpoint. It implements domain.ArbitrationOracle.
type Client struct {
	api         *openai.Client
	model       string
	maxRetries  int
	timeout     time.Duration
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates an arbitration client for one provider endpoint
func NewClient(config ClientConfig) *Client {
	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rpm := config.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}

	apiConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		apiConfig.BaseURL = config.BaseURL
	}

	return &Client{
		api:         openai.NewClientWithConfig(apiConfig),
		model:       config.Model,
		maxRetries:  maxRetries,
		timeout:     timeout,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 2),
	}
}

// SetDebug enables request/response logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// Arbitrate sends one batch of ambiguous items to the model and returns one
// verdict per query, in query order. Transient failures are retried with
// backoff; after the last attempt the error is returned for the caller's
// fallback handling.
func (c *Client) Arbitrate(ctx context.Context, batch []domain.ArbitrationQuery) ([]domain.ArbitrationVerdict, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	prompt := buildPrompt(batch)
	if c.debug {
		log.Printf("[ORACLE] arbitrating %d items, prompt %d bytes", len(batch), len(prompt))
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		content, err := c.complete(ctx, prompt)
		if err != nil {
			log.Printf("[ORACLE] request error (attempt %d): %v", attempt, err)
			lastErr = err
			if !sleepBackoff(ctx, attempt) {
				return nil, ctx.Err()
			}
			continue
		}

		verdicts, err := parseVerdicts(content, batch)
		if err != nil {
			// Malformed response counts as a transient failure
			log.Printf("[ORACLE] malformed response (attempt %d): %v", attempt, err)
			lastErr = err
			if !sleepBackoff(ctx, attempt) {
				return nil, ctx.Err()
			}
			continue
		}

		if c.debug {
			log.Printf("[ORACLE] resolved %d items", len(verdicts))
		}
		return verdicts, nil
	}

	return nil, fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, lastErr)
}

// complete performs one chat completion attempt with a bounded timeout
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(attemptCtx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("provider returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// sleepBackoff waits attempt*500ms, honoring context cancellation.
// Returns false when the context was cancelled.
func sleepBackoff(ctx context.Context, attempt int) bool {
	select {
	case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		return true
	case <-ctx.Done():
		return false
	}
}
