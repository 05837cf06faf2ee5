package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"codereview-gateway/ai"
	aiapp "codereview-gateway/ai/application"
	aidomain "codereview-gateway/ai/domain"
	aiinfra "codereview-gateway/ai/infra"
	"codereview-gateway/gateway"
	"codereview-gateway/middleware/metrics"
	"codereview-gateway/middleware/ratelimit"
	rldomain "codereview-gateway/middleware/ratelimit/domain"
	rlinfra "codereview-gateway/middleware/ratelimit/infra"

	"github.com/redis/go-redis/v9"
)

// app reúne o que main precisa para subir os listeners.
type app struct {
	handler http.Handler
	admin   http.Handler

	// contadores locais de admissão, resumidos no log ao desligar
	admission *rlinfra.MemoryStatsStore
}

// newApp monta o grafo de dependências. rdb nil desliga estatísticas e cache no Redis.
// ctx controla a vida do janitor dos buckets.
func newApp(ctx context.Context, cfg config, logger *slog.Logger, rdb redis.Cmdable) (*app, error) {
	reg := metrics.NewRegistry()

	promStats, err := rlinfra.NewPrometheusStatsStore(reg.Registerer())
	if err != nil {
		return nil, fmt.Errorf("register admission metrics: %w", err)
	}
	mem := rlinfra.NewMemoryStatsStore(rlinfra.WithTrackKeys(cfg.rateStatsTrackKeys))
	stats := rlinfra.MultiStats{promStats, mem}
	if rdb != nil {
		stats = append(stats, rlinfra.NewRedisStatsStore(
			rdb,
			rlinfra.WithStatsPrefix(cfg.rateStatsPrefix),
			rlinfra.WithStatsTTL(cfg.rateStatsTTL),
			rlinfra.WithStatsTrackKeys(cfg.rateStatsTrackKeys),
		))
	}

	var store rldomain.LimiterStore
	if cfg.rateEnabled {
		buckets := rlinfra.NewBucketStore(cfg.rateRPS, cfg.rateBurst)
		buckets.StartJanitor(ctx)
		store = buckets
	}
	var pool rldomain.SlotPool
	if cfg.concurrencyMax > 0 {
		pool = rlinfra.NewChanPool(cfg.concurrencyMax)
	}

	var cache aidomain.ReviewCache
	switch {
	case cfg.reviewCacheTTL <= 0:
	case rdb != nil:
		cache = aiinfra.NewRedisReviewCache(rdb, "")
	default:
		memCache := aiinfra.NewMemoryReviewCache()
		memCache.StartJanitor(ctx)
		cache = memCache
	}

	reviews := aiapp.ReviewService{
		Completer:    aiinfra.NewCompletionClient(cfg.aiBaseURL, cfg.aiAPIKey, cfg.aiModel, cfg.aiTimeout),
		Cache:        cache,
		CacheTTL:     cfg.reviewCacheTTL,
		Model:        cfg.aiModel,
		MaxCodeBytes: cfg.aiMaxCodeBytes,
		Logger:       logger,
	}

	aiRoutes := ai.Routes(ai.RoutesOptions{
		Reviewer: reviews,
		Admission: ratelimit.Middleware(ratelimit.Options{
			Store:               store,
			Pool:                pool,
			Stats:               stats,
			KeyHeader:           cfg.rateKeyHeader,
			TrustXForwardedFor:  cfg.trustXFF,
			RetryAfter:          cfg.retryAfter,
			AcquireTimeout:      cfg.concurrencyTimeout,
			AddRateLimitHeaders: cfg.addHeaders,
			Logger:              logger,
		}),
		Logger: logger,
	})

	return &app{
		handler: gateway.Build(gateway.Options{
			CORS:    cfg.corsPolicy(),
			JSON:    cfg.jsonOptions(),
			AI:      aiRoutes,
			Logger:  logger,
			Metrics: reg,
		}),
		admin:     metrics.AdminHandler(reg),
		admission: mem,
	}, nil
}
