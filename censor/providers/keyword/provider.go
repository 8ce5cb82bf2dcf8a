// Package keyword is an in-process word-list adapter. It is the cheap,
// zero-network first link of a fallback chain: a hit is authoritative, a
// miss hands off to the next provider.
package keyword

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/censorgate/types"
)

// Config configures the keyword adapter.
type Config struct {
	// Words are matched case-insensitively as substrings.
	Words []string `yaml:"words" json:"words"`
	// Risk is the verdict for a hit (default block).
	Risk string `yaml:"risk" json:"risk"`
}

// Provider implements censor.Detector with a local word list.
type Provider struct {
	words  []string
	risk   types.RiskLevel
	logger *zap.Logger
}

// New creates a keyword adapter. An empty word list is a configuration
// error: a silently empty list would pass everything.
func New(cfg Config, logger *zap.Logger) (*Provider, error) {
	if len(cfg.Words) == 0 {
		return nil, types.NewConfigurationError("keyword: word list is empty").WithProvider("keyword")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	risk := types.RiskBlock
	if cfg.Risk != "" {
		parsed, err := types.ParseRiskLevel(cfg.Risk)
		if err != nil {
			return nil, types.NewConfigurationError("keyword: invalid risk level " + cfg.Risk).WithProvider("keyword")
		}
		risk = parsed
	}

	words := make([]string, 0, len(cfg.Words))
	for _, w := range cfg.Words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			words = append(words, w)
		}
	}
	return &Provider{
		words:  words,
		risk:   risk,
		logger: logger.With(zap.String("provider", "keyword")),
	}, nil
}

// Name implements censor.Detector.
func (p *Provider) Name() string { return "keyword" }

// DetectText implements censor.Detector.
func (p *Provider) DetectText(ctx context.Context, text string) (types.RiskLevel, []string, error) {
	lowered := strings.ToLower(text)
	var hits []string
	for _, w := range p.words {
		if strings.Contains(lowered, w) {
			hits = append(hits, w)
		}
	}
	if len(hits) == 0 {
		return types.RiskPass, nil, nil
	}
	return p.risk, types.NewReasons(hits...), nil
}

// DetectImage implements censor.Detector. The word list has nothing to say
// about pixels; images always pass through to the next provider.
func (p *Provider) DetectImage(ctx context.Context, image string) (types.RiskLevel, []string, error) {
	return types.RiskPass, nil, nil
}

// Close implements censor.Detector.
func (p *Provider) Close() error { return nil }
