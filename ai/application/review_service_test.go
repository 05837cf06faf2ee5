package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codereview-gateway/ai/domain"
)

type fakeCompleter struct {
	calls  int
	prompt domain.Prompt
	out    domain.Completion
	err    error
}

func (f *fakeCompleter) Complete(_ context.Context, p domain.Prompt) (domain.Completion, error) {
	f.calls++
	f.prompt = p
	return f.out, f.err
}

type mapCache struct {
	data    map[string]string
	ttl     time.Duration
	getErr  error
	setErr  error
	setKeys []string
}

func newMapCache() *mapCache { return &mapCache{data: map[string]string{}} }

func (c *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	if c.getErr != nil {
		return "", false, c.getErr
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key, text string, ttl time.Duration) error {
	c.setKeys = append(c.setKeys, key)
	c.ttl = ttl
	if c.setErr != nil {
		return c.setErr
	}
	c.data[key] = text
	return nil
}

func TestReviewService_EmptyCode(t *testing.T) {
	comp := &fakeCompleter{}
	svc := ReviewService{Completer: comp}

	_, err := svc.Review(context.Background(), "  \n\t ")

	assert.ErrorIs(t, err, domain.ErrEmptyCode)
	assert.Zero(t, comp.calls)
}

func TestReviewService_CodeTooLarge(t *testing.T) {
	comp := &fakeCompleter{}
	svc := ReviewService{Completer: comp, MaxCodeBytes: 4}

	_, err := svc.Review(context.Background(), "12345")

	assert.ErrorIs(t, err, domain.ErrCodeTooLarge)
	assert.Zero(t, comp.calls)
}

func TestReviewService_BuildsPromptAndReturnsCompletion(t *testing.T) {
	comp := &fakeCompleter{out: domain.Completion{Text: "looks good", Model: "gemini-2.0-flash-001"}}
	svc := ReviewService{Completer: comp, Model: "gemini-2.0-flash"}

	rv, err := svc.Review(context.Background(), "  func main() {}  ")

	require.NoError(t, err)
	assert.Equal(t, domain.Review{Text: "looks good", Model: "gemini-2.0-flash-001"}, rv)
	assert.Equal(t, SystemInstruction, comp.prompt.System)
	assert.Equal(t, "func main() {}", comp.prompt.User)
}

func TestReviewService_FallsBackToConfiguredModel(t *testing.T) {
	comp := &fakeCompleter{out: domain.Completion{Text: "ok"}}
	svc := ReviewService{Completer: comp, Model: "m1"}

	rv, err := svc.Review(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, "m1", rv.Model)
}

func TestReviewService_CompletionErrorIsWrapped(t *testing.T) {
	boom := errors.New("upstream down")
	svc := ReviewService{Completer: &fakeCompleter{err: boom}}

	_, err := svc.Review(context.Background(), "x")

	assert.ErrorIs(t, err, boom)
	assert.True(t, strings.HasPrefix(err.Error(), "review completion:"))
}

func TestReviewService_CacheHitSkipsCompleter(t *testing.T) {
	comp := &fakeCompleter{out: domain.Completion{Text: "fresh"}}
	cache := newMapCache()
	svc := ReviewService{Completer: comp, Cache: cache, CacheTTL: time.Hour, Model: "m"}

	first, err := svc.Review(context.Background(), "x := 1")
	require.NoError(t, err)
	second, err := svc.Review(context.Background(), "x := 1")
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, "fresh", second.Text)
	assert.Equal(t, 1, comp.calls)
	assert.Equal(t, time.Hour, cache.ttl)
	assert.Equal(t, []string{CacheKey("m", "x := 1")}, cache.setKeys)
}

func TestReviewService_CacheDisabledWithZeroTTL(t *testing.T) {
	comp := &fakeCompleter{out: domain.Completion{Text: "fresh"}}
	cache := newMapCache()
	svc := ReviewService{Completer: comp, Cache: cache}

	_, _ = svc.Review(context.Background(), "x")
	_, _ = svc.Review(context.Background(), "x")

	assert.Equal(t, 2, comp.calls)
	assert.Empty(t, cache.setKeys)
}

func TestReviewService_CacheFailuresAreBestEffort(t *testing.T) {
	comp := &fakeCompleter{out: domain.Completion{Text: "fresh"}}
	cache := newMapCache()
	cache.getErr = errors.New("read timeout")
	cache.setErr = errors.New("write timeout")
	svc := ReviewService{Completer: comp, Cache: cache, CacheTTL: time.Minute}

	rv, err := svc.Review(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, "fresh", rv.Text)
}

func TestCacheKey_DependsOnModel(t *testing.T) {
	assert.NotEqual(t, CacheKey("a", "code"), CacheKey("b", "code"))
	assert.Equal(t, CacheKey("a", "code"), CacheKey("a", "code"))
	assert.Len(t, CacheKey("a", "code"), 64)
}
