// Package openai adapts the OpenAI moderation API to the gateway's Detector
// contract. Category scores are thresholded into the unified risk levels.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/censorgate/ratelimit"
	"github.com/BaSui01/censorgate/types"
)

// Config configures the OpenAI moderation adapter.
type Config struct {
	APIKey  string        `yaml:"api_key" json:"api_key"`
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Model   string        `yaml:"model,omitempty" json:"model,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// BlockThreshold is the category score at or above which flagged content
	// is blocked outright; flagged content below it goes to review.
	BlockThreshold float64 `yaml:"block_threshold" json:"block_threshold"`

	RateLimit ratelimit.Config `yaml:"rate_limit" json:"rate_limit"`
}

// DefaultConfig returns default OpenAI moderation config.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://api.openai.com/v1",
		Model:          "omni-moderation-latest",
		Timeout:        30 * time.Second,
		BlockThreshold: 0.85,
		RateLimit:      ratelimit.DefaultConfig(),
	}
}

// Provider implements censor.Detector using the OpenAI moderation API.
type Provider struct {
	cfg     Config
	client  *http.Client
	limiter *ratelimit.AdaptiveLimiter
	logger  *zap.Logger
}

// New creates an OpenAI moderation adapter.
func New(cfg Config, logger *zap.Logger) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, types.NewConfigurationError("openai: api_key is required").WithProvider("openai")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.BlockThreshold <= 0 || cfg.BlockThreshold > 1 {
		cfg.BlockThreshold = def.BlockThreshold
	}

	return &Provider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: ratelimit.NewAdaptiveLimiter(cfg.RateLimit, logger),
		logger:  logger.With(zap.String("provider", "openai")),
	}, nil
}

// Name implements censor.Detector.
func (p *Provider) Name() string { return "openai" }

// Limiter exposes the adapter's rate limiter for metrics.
func (p *Provider) Limiter() *ratelimit.AdaptiveLimiter { return p.limiter }

// Close implements censor.Detector.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

type moderationRequest struct {
	Model string `json:"model,omitempty"`
	Input any    `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged        bool               `json:"flagged"`
		Categories     map[string]bool    `json:"categories"`
		CategoryScores map[string]float64 `json:"category_scores"`
	} `json:"results"`
}

// DetectText implements censor.Detector.
func (p *Provider) DetectText(ctx context.Context, text string) (types.RiskLevel, []string, error) {
	return p.moderate(ctx, []string{text})
}

// DetectImage implements censor.Detector.
func (p *Provider) DetectImage(ctx context.Context, image string) (types.RiskLevel, []string, error) {
	imageURL := image
	if strings.HasPrefix(image, types.Base64Prefix) {
		imageURL = "data:image/jpeg;base64," + strings.TrimPrefix(image, types.Base64Prefix)
	}
	input := []map[string]any{
		{"type": "image_url", "image_url": map[string]string{"url": imageURL}},
	}
	return p.moderate(ctx, input)
}

func (p *Provider) moderate(ctx context.Context, input any) (types.RiskLevel, []string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, nil, types.NewNetworkError("rate limiter wait canceled").WithCause(err).WithProvider("openai")
	}

	payload, err := json.Marshal(moderationRequest{Model: p.cfg.Model, Input: input})
	if err != nil {
		return 0, nil, types.NewMalformedResponseError("encode request failed").WithCause(err).WithProvider("openai")
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/moderations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, types.NewNetworkError("build request failed").WithCause(err).WithProvider("openai")
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, types.NewNetworkError("moderation request failed").WithCause(err).WithProvider("openai")
	}
	defer httpResp.Body.Close()

	switch {
	case httpResp.StatusCode == http.StatusTooManyRequests:
		p.limiter.Throttled()
		return 0, nil, types.NewRateLimitError("moderation throttled").WithProvider("openai")
	case httpResp.StatusCode == http.StatusUnauthorized, httpResp.StatusCode == http.StatusForbidden:
		return 0, nil, types.NewAuthError(fmt.Sprintf("moderation auth rejected: status=%d", httpResp.StatusCode)).WithProvider("openai")
	case httpResp.StatusCode >= 400:
		body, _ := io.ReadAll(httpResp.Body)
		return 0, nil, types.NewMalformedResponseError(fmt.Sprintf("moderation error: status=%d body=%.200s", httpResp.StatusCode, string(body))).WithProvider("openai")
	}

	var resp moderationResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return 0, nil, types.NewMalformedResponseError("decode response failed").WithCause(err).WithProvider("openai")
	}
	if len(resp.Results) == 0 {
		return 0, nil, types.NewMalformedResponseError("moderation response has no results").WithProvider("openai")
	}

	p.limiter.Succeeded()
	risk, reasons := p.mapVerdict(resp)
	return risk, reasons, nil
}

func (p *Provider) mapVerdict(resp moderationResponse) (types.RiskLevel, []string) {
	risk := types.RiskPass
	var reasons []string
	for _, r := range resp.Results {
		if !r.Flagged {
			continue
		}
		levelRisk := types.RiskReview
		for cat, flagged := range r.Categories {
			if !flagged {
				continue
			}
			reasons = append(reasons, cat)
			if r.CategoryScores[cat] >= p.cfg.BlockThreshold {
				levelRisk = types.RiskBlock
			}
		}
		if len(reasons) == 0 {
			// Flagged without a named category still needs eyes on it.
			reasons = append(reasons, "flagged")
		}
		risk = types.MaxRisk(risk, levelRisk)
	}
	return risk, types.NewReasons(reasons...)
}
