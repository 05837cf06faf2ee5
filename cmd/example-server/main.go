// example-server é um provedor de completions falso, compatível com a API da OpenAI,
// para rodar o gateway localmente sem chave real:
//
//	go run ./cmd/example-server &
//	AI_BASE_URL=http://localhost:8081/v1 AI_API_KEY=dev go run ./cmd/gateway
//
// O próprio servidor usa o middleware de admissão para simular a cota do provedor
// (429 quando excedida), o que permite exercitar o caminho 502 do gateway.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"codereview-gateway/logging"
	"codereview-gateway/middleware/accesslog"
	"codereview-gateway/middleware/ratelimit"
	"codereview-gateway/middleware/ratelimit/infra"

	"github.com/go-chi/chi/v5"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

func main() {
	logger := logging.New(logging.Config{Level: os.Getenv("LOG_LEVEL"), Format: "text"})

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}
	var latency time.Duration
	if v := os.Getenv("MOCK_LATENCY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			logger.Error("invalid MOCK_LATENCY", "error", err)
			os.Exit(1)
		}
		latency = d
	}

	// cota do "provedor": 2 req/s por IP
	store := infra.NewBucketStore(2, 4)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	store.StartJanitor(ctx)

	r := chi.NewRouter()
	r.Use(accesslog.RequestID)
	r.Use(accesslog.Logger(logger))
	r.Use(accesslog.Recoverer(logger))
	r.Use(ratelimit.Middleware(ratelimit.Options{
		Store:               store,
		Pool:                infra.NewChanPool(50),
		AddRateLimitHeaders: true,
		Logger:              logger,
	}))
	r.Post("/v1/chat/completions", completions(latency))

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second + latency,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("example completion server listening", "addr", addr, "latency", latency)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func completions(latency time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			http.Error(w, `{"error":{"message":"missing bearer token"}}`, http.StatusUnauthorized)
			return
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":{"message":"invalid JSON"}}`, http.StatusBadRequest)
			return
		}

		if latency > 0 {
			select {
			case <-time.After(latency):
			case <-r.Context().Done():
				return
			}
		}

		var code string
		for _, m := range req.Messages {
			if m.Role == "user" {
				code = m.Content
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "mock-" + strconv.FormatInt(time.Now().UnixNano(), 36),
			"object":  "chat.completion",
			"model":   req.Model,
			"choices": []map[string]any{{"index": 0, "message": chatMessage{Role: "assistant", Content: cannedReview(code)}, "finish_reason": "stop"}},
		})
	}
}

func cannedReview(code string) string {
	lines := strings.Count(code, "\n") + 1
	return fmt.Sprintf("## Issues\nNo issues found in %d line(s).\n\n## Improvements\nNone.\n\n## Recommended version\nThe code can stay as is.", lines)
}
