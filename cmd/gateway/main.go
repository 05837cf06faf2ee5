package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"codereview-gateway/logging"

	"github.com/redis/go-redis/v9"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := readConfig()
	if err != nil {
		logging.New(logging.Config{Output: os.Stderr}).Error("config error", "error", err)
		return 1
	}

	logger := logging.New(logging.Config{Level: cfg.logLevel, Format: cfg.logFormat})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var rdb redis.Cmdable
	if cfg.redisEnabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		// fecha só depois que os servidores drenaram
		defer func() { _ = client.Close() }()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := client.Ping(pingCtx).Result()
		pingCancel()
		if err != nil {
			logger.Error("redis ping error", "addr", cfg.redisAddr, "error", err)
			return 1
		}
		rdb = client
	}

	a, err := newApp(ctx, cfg, logger, rdb)
	if err != nil {
		logger.Error("startup error", "error", err)
		return 1
	}

	// WriteTimeout e o prazo de shutdown acompanham AI_TIMEOUT: a revisão responde só
	// depois do modelo
	shutdownTimeout := cfg.aiTimeout + 5*time.Second
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.aiTimeout + 10*time.Second,
		IdleTimeout:       90 * time.Second,
	}
	ln, err := net.Listen("tcp", cfg.listenAddr)
	if err != nil {
		logger.Error("listen error", "addr", cfg.listenAddr, "error", err)
		return 1
	}

	var wg sync.WaitGroup
	if cfg.metricsAddr != "" {
		adminLn, err := net.Listen("tcp", cfg.metricsAddr)
		if err != nil {
			_ = ln.Close()
			logger.Error("listen error", "addr", cfg.metricsAddr, "error", err)
			return 1
		}
		admin := &http.Server{Handler: a.admin, ReadHeaderTimeout: 5 * time.Second}

		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("admin listening", "addr", adminLn.Addr().String())
			if err := serve(ctx, admin, adminLn, 5*time.Second); err != nil {
				logger.Error("admin server error", "error", err)
			}
		}()
	}

	logger.Info("gateway listening",
		"addr", ln.Addr().String(),
		"origins", cfg.corsPolicy().AllowedOrigins,
		"ai_base_url", cfg.aiBaseURL,
		"ai_model", cfg.aiModel,
	)
	logger.Info("admission",
		"rate_enabled", cfg.rateEnabled,
		"rps", cfg.rateRPS,
		"burst", cfg.rateBurst,
		"key_header", cfg.rateKeyHeader,
		"trust_xff", cfg.trustXFF,
		"concurrency_max", cfg.concurrencyMax,
		"acquire_timeout", cfg.concurrencyTimeout,
		"redis", cfg.redisEnabled(),
	)

	code := 0
	if err := serve(ctx, srv, ln, shutdownTimeout); err != nil {
		logger.Error("server error", "error", err)
		code = 1
	}
	// erro no listener principal também derruba o admin
	cancel()
	wg.Wait()

	t := a.admission.Total()
	logger.Info("gateway stopped",
		"allowed", t.Allowed,
		"rate_limited", t.RateLimited,
		"saturated", t.Saturated,
	)
	return code
}
