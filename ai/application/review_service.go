package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"codereview-gateway/ai/domain"
)

const DefaultMaxCodeBytes = 64 << 10

// SystemInstruction orienta o modelo a agir como revisor sênior.
const SystemInstruction = `You are a senior code reviewer with deep experience across languages and frameworks.
Review the code you receive and answer in Markdown with these sections:
1. Issues: bugs, security problems and incorrect behaviour, each with the offending snippet.
2. Improvements: readability, performance and maintainability suggestions.
3. Recommended version: the corrected code when changes are needed.
Be precise and concise. Do not invent APIs. If the code is fine, say so and explain why.`

type ReviewService struct {
	Completer domain.Completer
	Cache     domain.ReviewCache
	CacheTTL  time.Duration

	// Model entra na chave do cache: trocar de modelo não reaproveita revisões antigas.
	Model        string
	MaxCodeBytes int
	Logger       *slog.Logger
}

func (s ReviewService) Review(ctx context.Context, code string) (domain.Review, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Review{}, domain.ErrEmptyCode
	}
	limit := s.MaxCodeBytes
	if limit <= 0 {
		limit = DefaultMaxCodeBytes
	}
	if len(code) > limit {
		return domain.Review{}, fmt.Errorf("%w: %d bytes, limit %d", domain.ErrCodeTooLarge, len(code), limit)
	}

	key := CacheKey(s.Model, code)
	if text, ok := s.cached(ctx, key); ok {
		return domain.Review{Text: text, Model: s.Model, Cached: true}, nil
	}

	c, err := s.Completer.Complete(ctx, domain.Prompt{System: SystemInstruction, User: code})
	if err != nil {
		return domain.Review{}, fmt.Errorf("review completion: %w", err)
	}

	s.store(ctx, key, c.Text)
	model := c.Model
	if model == "" {
		model = s.Model
	}
	return domain.Review{Text: c.Text, Model: model}, nil
}

func (s ReviewService) cached(ctx context.Context, key string) (string, bool) {
	if s.Cache == nil || s.CacheTTL <= 0 {
		return "", false
	}
	text, ok, err := s.Cache.Get(ctx, key)
	if err != nil {
		s.logger().Warn("review cache read failed", "error", err)
		return "", false
	}
	return text, ok
}

func (s ReviewService) store(ctx context.Context, key, text string) {
	if s.Cache == nil || s.CacheTTL <= 0 || text == "" {
		return
	}
	if err := s.Cache.Set(ctx, key, text, s.CacheTTL); err != nil {
		s.logger().Warn("review cache write failed", "error", err)
	}
}

func (s ReviewService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// CacheKey é o sha256 hex de model + NUL + code.
func CacheKey(model, code string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + code))
	return hex.EncodeToString(sum[:])
}
