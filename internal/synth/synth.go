// Package synth wraps the text synthesis backend used to draft action
// plans. The capability is optional: without a configured endpoint the
// Disabled implementation is returned and callers fall back to their
// deterministic output.
package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrUnavailable signals that no synthesis backend is configured.
var ErrUnavailable = errors.New("text synthesis unavailable")

// Synthesizer produces raw synthesized text for a prompt. Callers are
// responsible for parsing and validating the payload.
type Synthesizer interface {
	Synthesize(ctx context.Context, prompt string) ([]byte, error)
}

// Config points at the synthesis endpoint. An empty BaseURL disables
// synthesis entirely.
type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// New returns the HTTP-backed synthesizer, or Disabled when no endpoint
// is configured.
func New(cfg Config, logger *zap.Logger) Synthesizer {
	if cfg.BaseURL == "" {
		return Disabled{}
	}
	return NewClient(cfg, logger)
}

// Disabled is the no-backend synthesizer.
type Disabled struct{}

// Synthesize always reports the capability as unavailable.
func (Disabled) Synthesize(context.Context, string) ([]byte, error) {
	return nil, ErrUnavailable
}

// Client talks to a generation endpoint that accepts a prompt and
// returns synthesized text.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a Client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Synthesize sends one generation request and returns the raw text. A
// single attempt is made; failures are the caller's cue to fall back.
func (c *Client) Synthesize(ctx context.Context, prompt string) ([]byte, error) {
	body, err := json.Marshal(map[string]any{
		"prompt":      prompt,
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": c.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("encode synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("synthesis endpoint returned %d", resp.StatusCode)
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode synthesis response: %w", err)
	}

	text := stripFences(payload.Text)
	if text == "" {
		return nil, errors.New("synthesis returned empty text")
	}

	c.logger.Debug("synthesis completed",
		zap.Int("bytes", len(text)),
		zap.Duration("dur", time.Since(start)))
	return []byte(text), nil
}

// stripFences removes a markdown code fence wrapper, which generation
// endpoints commonly add around JSON output.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
