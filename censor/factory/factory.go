// Package factory creates Detector instances from configured provider
// names. It imports all provider sub-packages and maps the closed provider
// enumeration to their constructors, keeping the censor package itself free
// of provider imports.
package factory

import (
	"go.uber.org/zap"

	"github.com/BaSui01/censorgate/censor"
	"github.com/BaSui01/censorgate/censor/providers/baidu"
	"github.com/BaSui01/censorgate/censor/providers/keyword"
	"github.com/BaSui01/censorgate/censor/providers/openai"
	"github.com/BaSui01/censorgate/types"
)

// Config aggregates the per-provider configurations. Only the sections for
// providers actually selected in a chain need to be populated.
type Config struct {
	Baidu   baidu.Config   `yaml:"baidu" json:"baidu"`
	OpenAI  openai.Config  `yaml:"openai" json:"openai"`
	Keyword keyword.Config `yaml:"keyword" json:"keyword"`
}

// New resolves a provider name into a concrete adapter. Missing credentials
// for the selected provider surface here, at construction time.
func New(provider censor.Provider, cfg Config, logger *zap.Logger) (censor.Detector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch provider {
	case censor.ProviderBaidu:
		return baidu.New(cfg.Baidu, logger)
	case censor.ProviderOpenAI:
		return openai.New(cfg.OpenAI, logger)
	case censor.ProviderKeyword:
		return keyword.New(cfg.Keyword, logger)
	default:
		return nil, types.NewConfigurationError("unknown moderation provider: " + string(provider))
	}
}

// NewChain resolves an ordered list of provider names into adapters,
// preserving order. Construction stops at the first failure; already built
// adapters are closed.
func NewChain(providers []censor.Provider, cfg Config, logger *zap.Logger) ([]censor.Detector, error) {
	chain := make([]censor.Detector, 0, len(providers))
	for _, name := range providers {
		d, err := New(name, cfg, logger)
		if err != nil {
			for _, built := range chain {
				_ = built.Close()
			}
			return nil, err
		}
		chain = append(chain, d)
	}
	return chain, nil
}
