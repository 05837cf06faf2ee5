package ai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"codereview-gateway/ai/domain"
	"codereview-gateway/middleware/jsonbody"

	"github.com/go-chi/chi/v5"
)

const HeaderReviewCache = "X-Review-Cache"

type RoutesOptions struct {
	Reviewer domain.Reviewer

	// Admission envolve todas as rotas (normalmente ratelimit.Middleware). nil desliga.
	Admission func(http.Handler) http.Handler
	Logger    *slog.Logger
}

// Routes devolve o handler a ser montado em /ai.
func Routes(opts RoutesOptions) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	h := &reviewHandler{reviewer: opts.Reviewer, logger: opts.Logger}

	r := chi.NewRouter()
	if opts.Admission != nil {
		r.Use(opts.Admission)
	}
	r.Post("/get-review", h.post)
	r.Get("/get-review", h.get)
	return r
}

type reviewHandler struct {
	reviewer domain.Reviewer
	logger   *slog.Logger
}

type reviewRequest struct {
	Code string `json:"code"`
}

func (h *reviewHandler) post(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := jsonbody.Decode(r, &req); err != nil {
		// sem corpo JSON (outro content-type) ou JSON que não é objeto
		http.Error(w, domain.ErrEmptyCode.Error(), http.StatusBadRequest)
		return
	}
	h.review(w, r, req.Code)
}

func (h *reviewHandler) get(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, r.URL.Query().Get("code"))
}

func (h *reviewHandler) review(w http.ResponseWriter, r *http.Request, code string) {
	rv, err := h.reviewer.Review(r.Context(), code)
	if err != nil {
		status := statusOf(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("review failed", "error", err)
		}
		http.Error(w, messageOf(err, status), status)
		return
	}

	cache := "miss"
	if rv.Cached {
		cache = "hit"
	}
	w.Header().Set(HeaderReviewCache, cache)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rv.Text))
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyCode):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCodeTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.Canceled):
		// cliente desistiu; o status só aparece no log
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func messageOf(err error, status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return err.Error()
	default:
		return http.StatusText(status)
	}
}
