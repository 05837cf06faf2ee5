package gateway

import (
	"log/slog"
	"net/http"

	"codereview-gateway/middleware/accesslog"
	"codereview-gateway/middleware/cors"
	"codereview-gateway/middleware/jsonbody"
	"codereview-gateway/middleware/metrics"

	"github.com/go-chi/chi/v5"
)

const greeting = "Hello World"

type Options struct {
	// CORS vazio (sem origens) usa cors.DefaultPolicy().
	CORS cors.Policy
	JSON jsonbody.Options

	// AI é montado em /ai. nil responde not-found até existir um sub-router.
	AI http.Handler

	Logger  *slog.Logger
	Metrics *metrics.Registry
}

// Build devolve o handler raiz. O valor retornado é imutável e seguro para uso concorrente.
func Build(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if len(opts.CORS.AllowedOrigins) == 0 {
		opts.CORS = cors.DefaultPolicy()
	}
	if opts.JSON.Logger == nil {
		opts.JSON.Logger = opts.Logger
	}
	ai := opts.AI
	if ai == nil {
		ai = http.NotFoundHandler()
	}

	r := chi.NewRouter()
	r.Use(accesslog.RequestID)
	r.Use(accesslog.Logger(opts.Logger))
	r.Use(accesslog.Recoverer(opts.Logger))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Instrument)
	}
	r.Use(cors.Middleware(opts.CORS, opts.Logger))
	r.Use(jsonbody.Middleware(opts.JSON))

	r.Get("/", hello)
	r.Mount("/ai", ai)

	r.NotFound(http.NotFound)
	// método errado numa rota conhecida também é "sem resposta definida"
	r.MethodNotAllowed(http.NotFound)

	return r
}

func hello(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(greeting))
}
