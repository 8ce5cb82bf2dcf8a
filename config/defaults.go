package config

import (
	"time"

	"github.com/BaSui01/censorgate/cache"
	"github.com/BaSui01/censorgate/censor/factory"
	"github.com/BaSui01/censorgate/censor/providers/baidu"
	"github.com/BaSui01/censorgate/censor/providers/openai"
)

// DefaultConfig returns the built-in defaults. The text chain defaults to
// the local keyword list so a fresh install fails validation (empty word
// list) rather than silently passing everything.
func DefaultConfig() *Config {
	return &Config{
		Censor: CensorConfig{
			TextChain:     []string{"keyword"},
			ImageChain:    nil,
			EnableImage:   false,
			DetectTimeout: 10 * time.Second,
		},
		Providers: factory.Config{
			Baidu:  baidu.DefaultConfig(),
			OpenAI: openai.DefaultConfig(),
		},
		Cache: cache.DefaultConfig(),
		Redis: RedisConfig{
			Addr:     "",
			DB:       0,
			PoolSize: 10,
		},
		Audit: AuditConfig{
			Enabled:     true,
			Path:        "censorgate_audit.db",
			DedupWindow: 5 * time.Minute,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		Metrics: MetricsConfig{
			Namespace: "censorgate",
		},
	}
}
