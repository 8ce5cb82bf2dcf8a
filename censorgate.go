// Package censorgate provides the top-level entry point for embedding the
// moderation gateway in another process.
//
// Usage:
//
//	import "github.com/BaSui01/censorgate"
//
//	cfg, err := config.NewLoader().WithConfigPath("config.yaml").Load()
//	gw, err := censorgate.New(cfg, logger)
//	res := gw.SubmitText(ctx, content, source, nil)
//
// New wires the configured provider chains, result cache, coalescer, audit
// store, and metrics into a [flow.Flow]. The censorgate binary uses the same
// constructor.
package censorgate

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/censorgate/audit"
	"github.com/BaSui01/censorgate/cache"
	"github.com/BaSui01/censorgate/censor/factory"
	"github.com/BaSui01/censorgate/config"
	"github.com/BaSui01/censorgate/flow"
	"github.com/BaSui01/censorgate/internal/metrics"
)

// New builds a gateway from a validated configuration.
func New(cfg *config.Config, logger *zap.Logger) (*flow.Flow, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		logger.Info("shared result cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	textProviders, err := cfg.TextProviders()
	if err != nil {
		return nil, err
	}
	textChain, err := factory.NewChain(textProviders, cfg.Providers, logger)
	if err != nil {
		return nil, err
	}

	opts := flow.Options{
		TextChain:     textChain,
		Results:       cache.NewResultCache(rdb, cfg.Cache, logger),
		Coalescer:     cache.NewCoalescer(),
		EnableImage:   cfg.Censor.EnableImage,
		DetectTimeout: cfg.Censor.DetectTimeout,
		Metrics:       metrics.NewCollector(cfg.Metrics.Namespace, nil, logger),
		Logger:        logger,
	}

	if cfg.Censor.EnableImage {
		imageProviders, err := cfg.ImageProviders()
		if err != nil {
			return nil, err
		}
		opts.ImageChain, err = factory.NewChain(imageProviders, cfg.Providers, logger)
		if err != nil {
			return nil, err
		}
	}

	if cfg.Audit.Enabled {
		store, err := audit.Open(cfg.Audit.Path, logger)
		if err != nil {
			return nil, err
		}
		opts.Audit = store
		opts.EnableAudit = true
		opts.AuditWindow = cfg.Audit.DedupWindow
	}

	return flow.New(opts)
}
