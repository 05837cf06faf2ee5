package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"codereview-gateway/middleware/cors"
	"codereview-gateway/middleware/jsonbody"
)

const (
	defaultAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	defaultAIModel   = "gemini-2.0-flash"
)

type config struct {
	listenAddr  string
	metricsAddr string
	logLevel    string
	logFormat   string

	corsOrigins   []string
	jsonBodyLimit int64

	aiAPIKey       string
	aiBaseURL      string
	aiModel        string
	aiTimeout      time.Duration
	aiMaxCodeBytes int
	reviewCacheTTL time.Duration

	rateEnabled        bool
	rateRPS            float64
	rateBurst          int
	rateKeyHeader      string
	trustXFF           bool
	retryAfter         time.Duration
	addHeaders         bool
	concurrencyMax     int
	concurrencyTimeout time.Duration

	redisAddr     string
	redisPassword string
	redisDB       int

	rateStatsPrefix    string
	rateStatsTTL       time.Duration
	rateStatsTrackKeys bool
}

func (c config) corsPolicy() cors.Policy {
	p := cors.DefaultPolicy()
	if len(c.corsOrigins) > 0 {
		p.AllowedOrigins = c.corsOrigins
	}
	return p
}

func (c config) jsonOptions() jsonbody.Options {
	return jsonbody.Options{Limit: c.jsonBodyLimit}
}

func (c config) redisEnabled() bool { return strings.TrimSpace(c.redisAddr) != "" }

func readConfig() (config, error) {
	env := &envParser{}
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":3000")
	// vazio desliga o listener administrativo
	cfg.metricsAddr = getenvLookupDefault("METRICS_ADDR", ":9090")
	cfg.logLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.logFormat = getenvDefault("LOG_FORMAT", "json")

	cfg.corsOrigins = cors.ParseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))
	cfg.jsonBodyLimit = int64(env.intDefault("JSON_BODY_LIMIT", int(jsonbody.DefaultLimit)))

	cfg.aiAPIKey = getenvDefault("AI_API_KEY", os.Getenv("GOOGLE_GEMINI_KEY"))
	cfg.aiBaseURL = getenvDefault("AI_BASE_URL", defaultAIBaseURL)
	cfg.aiModel = getenvDefault("AI_MODEL", defaultAIModel)
	cfg.aiTimeout = env.durationDefault("AI_TIMEOUT", 60*time.Second)
	cfg.aiMaxCodeBytes = env.intDefault("AI_MAX_CODE_BYTES", 64<<10)
	cfg.reviewCacheTTL = env.durationDefault("REVIEW_CACHE_TTL", time.Hour)

	cfg.rateEnabled = env.boolDefault("RATE_ENABLED", true)
	cfg.rateRPS = env.floatDefault("RATE_RPS", 1)
	// cada revisão custa uma chamada ao modelo: burst pequeno por padrão
	if burst, ok := env.lookupInt("RATE_BURST"); ok {
		cfg.rateBurst = burst
	} else {
		cfg.rateBurst = 5
		if getenvIsSet("RATE_RPS") && cfg.rateRPS > 0 && cfg.rateRPS < 1 {
			cfg.rateBurst = 1
		}
	}
	cfg.rateKeyHeader = os.Getenv("RATE_KEY_HEADER")
	cfg.trustXFF = env.boolDefault("TRUST_XFF", false)
	cfg.retryAfter = env.durationDefault("RETRY_AFTER", 1*time.Second)
	cfg.addHeaders = env.boolDefault("ADD_RATELIMIT_HEADERS", false)
	cfg.concurrencyMax = env.intDefault("CONCURRENCY_MAX", 20)
	cfg.concurrencyTimeout = env.durationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.redisAddr = os.Getenv("REDIS_ADDR")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = env.intDefault("REDIS_DB", 0)

	cfg.rateStatsPrefix = getenvDefault("RATE_STATS_PREFIX", "codereview:ratelimit")
	cfg.rateStatsTTL = env.durationDefault("RATE_STATS_TTL", 24*time.Hour)
	cfg.rateStatsTrackKeys = env.boolDefault("RATE_STATS_TRACK_KEYS", false)

	// valor que não faz parse é erro, não default silencioso
	if err := env.err(); err != nil {
		return config{}, err
	}
	if strings.TrimSpace(cfg.aiAPIKey) == "" {
		return config{}, errors.New("AI_API_KEY is required")
	}
	if err := cfg.corsPolicy().Validate(); err != nil {
		return config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS: %w", err)
	}
	if cfg.jsonBodyLimit <= 0 {
		return config{}, errors.New("JSON_BODY_LIMIT must be > 0")
	}
	if cfg.aiTimeout <= 0 {
		return config{}, errors.New("AI_TIMEOUT must be > 0")
	}
	if cfg.aiMaxCodeBytes <= 0 {
		return config{}, errors.New("AI_MAX_CODE_BYTES must be > 0")
	}
	if cfg.rateEnabled {
		if cfg.rateRPS <= 0 {
			return config{}, errors.New("RATE_RPS must be > 0")
		}
		if cfg.rateBurst <= 0 {
			return config{}, errors.New("RATE_BURST must be > 0")
		}
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getenvLookupDefault respeita valor vazio explícito (ex.: METRICS_ADDR= desliga).
func getenvLookupDefault(k, def string) string {
	if v, ok := os.LookupEnv(k); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func getenvIsSet(k string) bool {
	v, ok := os.LookupEnv(k)
	return ok && v != ""
}

// envParser lê variáveis tipadas e acumula os erros de parse.
type envParser struct {
	errs []error
}

func (p *envParser) fail(k, v, kind string) {
	p.errs = append(p.errs, fmt.Errorf("%s: invalid %s %q", k, kind, v))
}

func (p *envParser) err() error { return errors.Join(p.errs...) }

func (p *envParser) intDefault(k string, def int) int {
	if i, ok := p.lookupInt(k); ok {
		return i
	}
	return def
}

func (p *envParser) lookupInt(k string) (int, bool) {
	v := os.Getenv(k)
	if v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		p.fail(k, v, "integer")
		return 0, false
	}
	return i, true
}

func (p *envParser) floatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(k, v, "number")
		return def
	}
	return f
}

func (p *envParser) boolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(k, v, "boolean")
		return def
	}
	return b
}

func (p *envParser) durationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(k, v, "duration")
		return def
	}
	return d
}
