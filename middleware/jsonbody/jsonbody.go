// Package jsonbody interpreta corpos application/json antes do roteamento.
//
// Segue o comportamento padrão do express.json(): limite de 100 KiB, modo estrito
// (só objeto ou array no topo), corpo vazio vira {} e JSON malformado encerra a
// requisição com 400 antes de qualquer handler de rota. Corpos gzip e deflate são
// descomprimidos; o limite vale para o JSON já descomprimido.
package jsonbody

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
)

const DefaultLimit int64 = 100 << 10

var (
	ErrNoBody   = errors.New("jsonbody: request has no parsed JSON body")
	ErrNotJSON  = errors.New("jsonbody: malformed JSON")
	ErrStrict   = errors.New("jsonbody: top-level value must be an object or array")
	ErrTooLarge = errors.New("jsonbody: request entity too large")
	ErrCharset  = errors.New("jsonbody: unsupported charset")
	ErrEncoding = errors.New("jsonbody: unsupported content encoding")
	ErrInflate  = errors.New("jsonbody: invalid compressed body")
)

type Options struct {
	// Limit em bytes. 0 usa DefaultLimit.
	Limit int64
	// AllowPrimitives desliga o modo estrito (aceita "x", 1, true, null no topo).
	AllowPrimitives bool

	Logger *slog.Logger
}

// Body é o corpo já interpretado, disponível no contexto da requisição.
type Body struct {
	Raw   json.RawMessage
	Value any
}

type ctxKey struct{}

func FromContext(ctx context.Context) (Body, bool) {
	b, ok := ctx.Value(ctxKey{}).(Body)
	return b, ok
}

// Decode preenche v a partir do corpo já interpretado pelo middleware.
func Decode(r *http.Request, v any) error {
	b, ok := FromContext(r.Context())
	if !ok {
		return ErrNoBody
	}
	return json.Unmarshal(b.Raw, v)
}

func Middleware(opts Options) func(http.Handler) http.Handler {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hasBody(r) || !isJSON(r) {
				next.ServeHTTP(w, r)
				return
			}

			body, err := parse(w, r, opts)
			if err != nil {
				status := statusOf(err)
				opts.Logger.Debug("json body rejected", "path", r.URL.Path, "status", status, "error", err)
				http.Error(w, http.StatusText(status), status)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body.Raw))
			r.ContentLength = int64(len(body.Raw))
			// o corpo re-anexado já está descomprimido
			r.Header.Del("Content-Encoding")
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, body)))
		})
	}
}

func parse(w http.ResponseWriter, r *http.Request, opts Options) (Body, error) {
	if !charsetOK(r) {
		return Body{}, ErrCharset
	}
	enc := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding")))
	if r.ContentLength > opts.Limit {
		return Body{}, ErrTooLarge
	}

	raw, err := readBody(http.MaxBytesReader(w, r.Body, opts.Limit), enc, opts.Limit)
	if err != nil {
		return Body{}, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Body{Raw: json.RawMessage("{}"), Value: map[string]any{}}, nil
	}
	if !opts.AllowPrimitives && trimmed[0] != '{' && trimmed[0] != '[' {
		return Body{}, ErrStrict
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return Body{}, errors.Join(ErrNotJSON, err)
	}
	return Body{Raw: json.RawMessage(trimmed), Value: v}, nil
}

// readBody descomprime conforme Content-Encoding e lê no máximo limit bytes
// descomprimidos. "deflate" em HTTP é o formato zlib.
func readBody(body io.Reader, enc string, limit int64) ([]byte, error) {
	var src io.Reader
	switch enc {
	case "", "identity":
		src = body
	case "gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, inflateErr(err)
		}
		defer func() { _ = zr.Close() }()
		src = zr
	case "deflate":
		zr, err := zlib.NewReader(body)
		if err != nil {
			return nil, inflateErr(err)
		}
		defer func() { _ = zr.Close() }()
		src = zr
	default:
		return nil, ErrEncoding
	}

	raw, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		if src == body {
			return nil, tooLargeOr(err, err)
		}
		return nil, inflateErr(err)
	}
	if int64(len(raw)) > limit {
		return nil, ErrTooLarge
	}
	return raw, nil
}

func inflateErr(err error) error {
	return tooLargeOr(err, errors.Join(ErrInflate, err))
}

func tooLargeOr(err, other error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return ErrTooLarge
	}
	return other
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrCharset), errors.Is(err, ErrEncoding):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusBadRequest
	}
}

func hasBody(r *http.Request) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return false
	}
	// -1: tamanho desconhecido (chunked)
	return r.ContentLength != 0
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// charsetOK aceita ausência de charset ou qualquer utf-*.
func charsetOK(r *http.Request) bool {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	cs, ok := params["charset"]
	return !ok || strings.HasPrefix(strings.ToLower(cs), "utf-")
}
