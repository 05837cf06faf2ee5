// Package cors aplica a política de Cross-Origin Resource Sharing do gateway
// usando github.com/rs/cors.
//
// A política é um valor estático: origens e métodos permitidos e se requisições
// com credenciais são aceitas. Origens fora da lista não recebem os headers de
// aprovação, mas a requisição segue para o handler normalmente; quem bloqueia a
// leitura da resposta é o navegador.
package cors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/cors"
)

// Origens do front-end de code review.
const (
	OriginProduction = "https://code-reviewai.vercel.app"
	OriginPreview    = "https://code-review-ai-woad.vercel.app"
	OriginLocalDev   = "http://localhost:5173"
)

var (
	ErrNoOrigins           = errors.New("cors: at least one allowed origin is required")
	ErrNoMethods           = errors.New("cors: at least one allowed method is required")
	ErrWildcardCredentials = errors.New("cors: wildcard origin cannot be combined with credentials")
)

type Policy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowCredentials bool

	// OptionsSuccessStatus é o status do preflight aprovado. 0 usa 200.
	OptionsSuccessStatus int
	// MaxAge em segundos para cache do preflight no navegador. 0 omite o header.
	MaxAge int
}

// DefaultPolicy é a política publicada para o front-end: três origens, GET e POST,
// com credenciais.
func DefaultPolicy() Policy {
	return Policy{
		AllowedOrigins:   []string{OriginProduction, OriginPreview, OriginLocalDev},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowCredentials: true,
	}
}

func (p Policy) Validate() error {
	if len(p.AllowedOrigins) == 0 {
		return ErrNoOrigins
	}
	if len(p.AllowedMethods) == 0 {
		return ErrNoMethods
	}
	for _, o := range p.AllowedOrigins {
		if o == "*" {
			if p.AllowCredentials {
				return ErrWildcardCredentials
			}
			continue
		}
		if err := validateOrigin(o); err != nil {
			return err
		}
	}
	for _, m := range p.AllowedMethods {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("cors: empty method in %v", p.AllowedMethods)
		}
	}
	return nil
}

// validateOrigin exige o formato serializado de origem: scheme://host[:port], sem path.
func validateOrigin(o string) error {
	u, err := url.Parse(o)
	if err != nil {
		return fmt.Errorf("cors: invalid origin %q: %w", o, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("cors: invalid origin %q: want scheme://host", o)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return fmt.Errorf("cors: invalid origin %q: must not carry path, query or userinfo", o)
	}
	return nil
}

// Middleware monta o handler do rs/cors para a política. Com logger em nível debug,
// as decisões do rs/cors também vão para o log.
func Middleware(p Policy, logger *slog.Logger) func(http.Handler) http.Handler {
	status := p.OptionsSuccessStatus
	if status == 0 {
		status = http.StatusOK
	}

	// "*" em AllowedHeaders reflete os headers pedidos no preflight
	opts := cors.Options{
		AllowedOrigins:       p.AllowedOrigins,
		AllowedMethods:       p.AllowedMethods,
		AllowedHeaders:       []string{"*"},
		AllowCredentials:     p.AllowCredentials,
		OptionsSuccessStatus: status,
		MaxAge:               p.MaxAge,
	}
	if logger != nil && logger.Enabled(context.Background(), slog.LevelDebug) {
		opts.Logger = slog.NewLogLogger(logger.Handler(), slog.LevelDebug)
	}

	return cors.New(opts).Handler
}

// ParseOrigins lê uma lista separada por vírgulas, ignorando itens vazios.
func ParseOrigins(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if o := strings.TrimRight(strings.TrimSpace(part), "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}
