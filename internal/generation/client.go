// Package generation talks to the remote language-model service. Outbound
// calls go through a token-bucket rate limit; throttling responses are
// retried with capped exponential backoff, everything else is fatal.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"scholarassist/internal/domain"
)

// Config configures the generation client. It is constructed at startup
// and passed in explicitly; the client keeps no ambient global state.
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.cohere.com"
	}
	if c.Model == "" {
		c.Model = "command-r-plus-08-2024"
	}
	if c.Timeout == 0 {
		c.Timeout = 2 * time.Minute
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = 10
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
}

// Client implements domain.Generator against a Cohere-style chat endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("generation: missing API key")
	}
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1),
		logger:     logger,
	}, nil
}

// Ask sends the prompt and returns the answer text. Throttling (429) is
// retried up to MaxAttempts with exponential backoff; exhausting the
// budget surfaces domain.ErrThrottled. Any other failure is returned
// immediately.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	backoff := c.cfg.InitialBackoff
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		answer, throttled, err := c.send(ctx, prompt)
		if err != nil {
			return "", err
		}
		if !throttled {
			return answer, nil
		}
		c.logger.Warn("generation service throttled, backing off",
			zap.Int("attempt", attempt), zap.Duration("backoff", backoff))
		if attempt == c.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.cfg.MaxBackoff {
			backoff = c.cfg.MaxBackoff
		}
	}
	return "", fmt.Errorf("%w after %d attempts", domain.ErrThrottled, c.cfg.MaxAttempts)
}

// send performs one chat request. The second return value reports a
// throttling response that the caller may retry.
func (c *Client) send(ctx context.Context, prompt string) (string, bool, error) {
	body, err := json.Marshal(struct {
		Model   string `json:"model"`
		Message string `json:"message"`
	}{Model: c.cfg.Model, Message: prompt})
	if err != nil {
		return "", false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/chat", bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("generation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", true, nil
	}
	if resp.StatusCode >= 300 {
		return "", false, fmt.Errorf("generation request failed: %s", resp.Status)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", false, fmt.Errorf("decode generation response: %w", err)
	}
	if out.Text == "" {
		return "", false, fmt.Errorf("generation response missing answer text")
	}
	return out.Text, false, nil
}
