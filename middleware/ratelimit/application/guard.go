package application

import (
	"context"
	"time"

	"codereview-gateway/middleware/ratelimit/domain"
)

const defaultRetryAfter = 1 * time.Second

// Guard combina o token bucket por chave com o limite global de concorrência.
//
// A ordem importa: o bucket é consultado primeiro, assim um cliente bloqueado
// nunca ocupa (nem espera por) uma vaga do pool.
type Guard struct {
	Store      domain.LimiterStore
	Pool       domain.SlotPool
	RetryAfter time.Duration
	// AcquireTimeout <= 0 espera por uma vaga até o ctx da requisição encerrar.
	AcquireTimeout time.Duration
}

func (g Guard) Admit(ctx context.Context, key domain.Key) domain.Decision {
	if !g.allowRate(key) {
		retry := g.RetryAfter
		if retry <= 0 {
			retry = defaultRetryAfter
		}
		return domain.Decision{Outcome: domain.OutcomeRateLimited, RetryAfter: retry}
	}

	release, ok := g.acquire(ctx)
	if !ok {
		return domain.Decision{Outcome: domain.OutcomeSaturated}
	}
	return domain.Decision{Outcome: domain.OutcomeAllowed, Release: release}
}

func (g Guard) allowRate(key domain.Key) bool {
	if g.Store == nil {
		return true
	}
	lim := g.Store.Get(key)
	if lim == nil {
		return true
	}
	return lim.Allow()
}

func (g Guard) acquire(ctx context.Context) (func(), bool) {
	if g.Pool == nil {
		return func() {}, true
	}
	if g.AcquireTimeout <= 0 {
		return g.Pool.Acquire(ctx)
	}

	acqCtx, cancel := context.WithTimeout(ctx, g.AcquireTimeout)
	defer cancel()
	return g.Pool.Acquire(acqCtx)
}
