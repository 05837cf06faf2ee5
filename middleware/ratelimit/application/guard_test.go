package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codereview-gateway/middleware/ratelimit/domain"
)

type fakeLimiter struct {
	allow bool
}

func (f fakeLimiter) Allow() bool { return f.allow }

type fakeStore struct {
	lim domain.Limiter
}

func (s fakeStore) Get(domain.Key) domain.Limiter { return s.lim }

type blockingPool struct{}

func (p *blockingPool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case <-ctx.Done():
		return nil, false
	case <-time.After(5 * time.Second):
		// não deve chegar aqui nos testes
		return nil, false
	}
}

type countingPool struct {
	acquired int
	released int
}

func (p *countingPool) Acquire(context.Context) (func(), bool) {
	p.acquired++
	return func() { p.released++ }, true
}

func TestGuard_Admit_AllowsWithoutStoreOrPool(t *testing.T) {
	dec := Guard{}.Admit(context.Background(), "k")

	require.True(t, dec.Allowed())
	require.NotNil(t, dec.Release)
	assert.Zero(t, dec.RetryAfter)
	dec.Release()
}

func TestGuard_Admit_RateLimitedUsesDefaultRetryAfter(t *testing.T) {
	g := Guard{Store: fakeStore{lim: fakeLimiter{allow: false}}}

	dec := g.Admit(context.Background(), "k")

	assert.Equal(t, domain.OutcomeRateLimited, dec.Outcome)
	assert.Equal(t, 1*time.Second, dec.RetryAfter)
	assert.Nil(t, dec.Release)
}

func TestGuard_Admit_RateLimitedUsesConfiguredRetryAfter(t *testing.T) {
	g := Guard{Store: fakeStore{lim: fakeLimiter{allow: false}}, RetryAfter: 2500 * time.Millisecond}

	dec := g.Admit(context.Background(), "k")

	assert.Equal(t, 2500*time.Millisecond, dec.RetryAfter)
}

func TestGuard_Admit_RateLimitedNeverTouchesPool(t *testing.T) {
	pool := &countingPool{}
	g := Guard{Store: fakeStore{lim: fakeLimiter{allow: false}}, Pool: pool}

	_ = g.Admit(context.Background(), "k")

	assert.Zero(t, pool.acquired)
}

func TestGuard_Admit_SaturatedAfterAcquireTimeout(t *testing.T) {
	g := Guard{Pool: &blockingPool{}, AcquireTimeout: 10 * time.Millisecond}

	dec := g.Admit(context.Background(), "k")

	assert.Equal(t, domain.OutcomeSaturated, dec.Outcome)
	assert.False(t, dec.Allowed())
}

func TestGuard_Admit_NoTimeoutDelegatesToPool(t *testing.T) {
	pool := &countingPool{}
	g := Guard{Store: fakeStore{lim: fakeLimiter{allow: true}}, Pool: pool}

	dec := g.Admit(context.Background(), "k")
	require.True(t, dec.Allowed())
	dec.Release()

	assert.Equal(t, 1, pool.acquired)
	assert.Equal(t, 1, pool.released)
}

func TestGuard_Admit_NilLimiterIsAllowed(t *testing.T) {
	g := Guard{Store: fakeStore{lim: nil}}

	assert.True(t, g.Admit(context.Background(), "k").Allowed())
}
