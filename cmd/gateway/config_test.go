package main

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codereview-gateway/middleware/cors"
)

var configKeys = []string{
	"LISTEN_ADDR", "METRICS_ADDR", "LOG_LEVEL", "LOG_FORMAT",
	"CORS_ALLOWED_ORIGINS", "JSON_BODY_LIMIT",
	"AI_API_KEY", "GOOGLE_GEMINI_KEY", "AI_BASE_URL", "AI_MODEL", "AI_TIMEOUT", "AI_MAX_CODE_BYTES",
	"REVIEW_CACHE_TTL",
	"RATE_ENABLED", "RATE_RPS", "RATE_BURST", "RATE_KEY_HEADER", "TRUST_XFF", "RETRY_AFTER",
	"ADD_RATELIMIT_HEADERS", "CONCURRENCY_MAX", "CONCURRENCY_TIMEOUT",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"RATE_STATS_PREFIX", "RATE_STATS_TTL", "RATE_STATS_TRACK_KEYS",
}

// clearEnv remove as variáveis do processo durante o teste (t.Setenv restaura no fim).
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestReadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_API_KEY", "secret")

	cfg, err := readConfig()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.listenAddr)
	assert.Equal(t, ":9090", cfg.metricsAddr)
	assert.Equal(t, "info", cfg.logLevel)
	assert.Equal(t, "json", cfg.logFormat)
	assert.Equal(t, cors.DefaultPolicy(), cfg.corsPolicy())
	assert.Equal(t, int64(102400), cfg.jsonBodyLimit)
	assert.Equal(t, defaultAIBaseURL, cfg.aiBaseURL)
	assert.Equal(t, defaultAIModel, cfg.aiModel)
	assert.Equal(t, 60*time.Second, cfg.aiTimeout)
	assert.Equal(t, 65536, cfg.aiMaxCodeBytes)
	assert.Equal(t, time.Hour, cfg.reviewCacheTTL)
	assert.True(t, cfg.rateEnabled)
	assert.Equal(t, 1.0, cfg.rateRPS)
	assert.Equal(t, 5, cfg.rateBurst)
	assert.Equal(t, time.Second, cfg.retryAfter)
	assert.Equal(t, 20, cfg.concurrencyMax)
	assert.False(t, cfg.redisEnabled())
	assert.Equal(t, "codereview:ratelimit", cfg.rateStatsPrefix)
	assert.Equal(t, 24*time.Hour, cfg.rateStatsTTL)
}

func TestReadConfig_RequiresAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := readConfig()
	assert.EqualError(t, err, "AI_API_KEY is required")
}

func TestReadConfig_GeminiKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_GEMINI_KEY", "legacy")

	cfg, err := readConfig()
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.aiAPIKey)

	t.Setenv("AI_API_KEY", "preferred")
	cfg, err = readConfig()
	require.NoError(t, err)
	assert.Equal(t, "preferred", cfg.aiAPIKey)
}

func TestReadConfig_EmptyMetricsAddrDisablesAdmin(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_API_KEY", "secret")
	t.Setenv("METRICS_ADDR", "")

	cfg, err := readConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.metricsAddr)
}

func TestReadConfig_OriginOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_API_KEY", "secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com/")

	cfg, err := readConfig()
	require.NoError(t, err)

	p := cfg.corsPolicy()
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, p.AllowedOrigins)
	assert.Equal(t, cors.DefaultPolicy().AllowedMethods, p.AllowedMethods)
	assert.True(t, p.AllowCredentials)
}

func TestReadConfig_LowRPSDefaultsBurstToOne(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_API_KEY", "secret")
	t.Setenv("RATE_RPS", "0.1")

	cfg, err := readConfig()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.rateBurst)
}

func TestReadConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad origin", map[string]string{"CORS_ALLOWED_ORIGINS": "code-reviewai.vercel.app"}, "CORS_ALLOWED_ORIGINS"},
		{"wildcard origin", map[string]string{"CORS_ALLOWED_ORIGINS": "*"}, "CORS_ALLOWED_ORIGINS"},
		{"zero body limit", map[string]string{"JSON_BODY_LIMIT": "0"}, "JSON_BODY_LIMIT must be > 0"},
		{"zero timeout", map[string]string{"AI_TIMEOUT": "0s"}, "AI_TIMEOUT must be > 0"},
		{"zero code limit", map[string]string{"AI_MAX_CODE_BYTES": "0"}, "AI_MAX_CODE_BYTES must be > 0"},
		{"negative rps", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS must be > 0"},
		{"zero burst", map[string]string{"RATE_BURST": "0"}, "RATE_BURST must be > 0"},
		{"negative concurrency", map[string]string{"CONCURRENCY_MAX": "-1"}, "CONCURRENCY_MAX must be >= 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("AI_API_KEY", "secret")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := readConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadConfig_RateDisabledSkipsRateValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_API_KEY", "secret")
	t.Setenv("RATE_ENABLED", "false")
	t.Setenv("RATE_RPS", "-1")

	cfg, err := readConfig()
	require.NoError(t, err)
	assert.False(t, cfg.rateEnabled)
}

func TestReadConfig_InvalidValuesAreErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_API_KEY", "secret")
	t.Setenv("JSON_BODY_LIMIT", "abc")
	t.Setenv("AI_TIMEOUT", "60")
	t.Setenv("RATE_ENABLED", "maybe")
	t.Setenv("RATE_RPS", "fast")
	t.Setenv("RATE_BURST", "1.5")

	_, err := readConfig()
	require.Error(t, err)

	for _, want := range []string{
		`JSON_BODY_LIMIT: invalid integer "abc"`,
		`AI_TIMEOUT: invalid duration "60"`,
		`RATE_ENABLED: invalid boolean "maybe"`,
		`RATE_RPS: invalid number "fast"`,
		`RATE_BURST: invalid integer "1.5"`,
	} {
		assert.Contains(t, err.Error(), want)
	}
}
