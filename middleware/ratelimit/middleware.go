package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"codereview-gateway/middleware/ratelimit/application"
	"codereview-gateway/middleware/ratelimit/domain"

	"github.com/go-chi/chi/v5"
)

type Options struct {
	Store domain.LimiterStore
	Pool  domain.SlotPool
	Stats domain.StatsStore

	KeyFn              KeyFunc
	KeyHeader          string
	TrustXForwardedFor bool

	RetryAfter     time.Duration
	AcquireTimeout time.Duration

	RateLimitedStatus int
	SaturatedStatus   int

	AddRateLimitHeaders bool

	Logger *slog.Logger
}

type rateInfo interface {
	RPS() float64
	Burst() int
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RateLimitedStatus == 0 {
		opts.RateLimitedStatus = http.StatusTooManyRequests
	}
	if opts.SaturatedStatus == 0 {
		opts.SaturatedStatus = http.StatusServiceUnavailable
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	guard := application.Guard{
		Store:          opts.Store,
		Pool:           opts.Pool,
		RetryAfter:     opts.RetryAfter,
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := domain.Key(opts.KeyFn(r))

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", string(key))
				if ri, ok := opts.Store.(rateInfo); ok {
					w.Header().Set("X-RateLimit-RPS", strconv.FormatFloat(ri.RPS(), 'f', -1, 64))
					w.Header().Set("X-RateLimit-Burst", strconv.Itoa(ri.Burst()))
				}
			}

			dec := guard.Admit(r.Context(), key)

			switch dec.Outcome {
			case domain.OutcomeRateLimited:
				record(r, opts, key, dec.Outcome)
				w.Header().Set("Retry-After", strconv.Itoa(int(dec.RetryAfter.Seconds())))
				http.Error(w, http.StatusText(opts.RateLimitedStatus), opts.RateLimitedStatus)
				return
			case domain.OutcomeSaturated:
				record(r, opts, key, dec.Outcome)
				http.Error(w, http.StatusText(opts.SaturatedStatus), opts.SaturatedStatus)
				return
			}
			defer dec.Release()

			next.ServeHTTP(w, r)
			// só depois do roteamento o chi conhece o padrão completo
			record(r, opts, key, dec.Outcome)
		})
	}
}

func record(r *http.Request, opts Options, key domain.Key, outcome domain.Outcome) {
	if outcome != domain.OutcomeAllowed {
		opts.Logger.Warn("ai request rejected", "key", string(key), "outcome", string(outcome), "path", r.URL.Path)
	}
	if opts.Stats == nil {
		return
	}

	err := opts.Stats.Record(r.Context(), domain.StatsEvent{
		Key:     key,
		Outcome: outcome,
		Method:  r.Method,
		Route:   routeOf(r),
		At:      time.Now(),
	})
	if err != nil {
		opts.Logger.Debug("admission stats not recorded", "error", err)
	}
}

// routeOf usa o padrão do chi. Fora do chi (ou sem rota) vira "unmatched": o path
// cru não entra em label.
func routeOf(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
