package domain

import (
	"context"
	"time"
)

type Key string

// Outcome é o resultado de uma tentativa de admissão.
type Outcome string

const (
	OutcomeAllowed     Outcome = "allowed"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeSaturated   Outcome = "saturated"
)

// Limiter decide se uma ação é permitida agora (token bucket, leaky bucket...).
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter por chave (IP, API key, usuário).
type LimiterStore interface {
	Get(Key) Limiter
}

// SlotPool representa um recurso com capacidade finita (chamadas simultâneas ao modelo).
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar.
// O release retornado deve ser chamado exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}

// Decision é a resposta do Guard para uma requisição.
type Decision struct {
	Outcome Outcome
	// RetryAfter só é preenchido quando Outcome == OutcomeRateLimited.
	RetryAfter time.Duration
	// Release libera a vaga de concorrência. Nunca é nil quando Allowed() é true.
	Release func()
}

func (d Decision) Allowed() bool { return d.Outcome == OutcomeAllowed }
