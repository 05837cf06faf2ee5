package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEmptyCode    = errors.New("code is required")
	ErrCodeTooLarge = errors.New("code is too large")
)

// Prompt é o par de mensagens enviado ao modelo.
type Prompt struct {
	System string
	User   string
}

type Completion struct {
	Text  string
	Model string
}

// Completer conversa com o provedor do modelo (API compatível com OpenAI).
type Completer interface {
	Complete(ctx context.Context, p Prompt) (Completion, error)
}

type Review struct {
	Text   string
	Model  string
	Cached bool
}

// Reviewer é o caso de uso consumido pelas rotas /ai.
type Reviewer interface {
	Review(ctx context.Context, code string) (Review, error)
}

// ReviewCache guarda revisões por chave de conteúdo.
//
// Get retorna ok=false (sem erro) para ausência.
type ReviewCache interface {
	Get(ctx context.Context, key string) (text string, ok bool, err error)
	Set(ctx context.Context, key, text string, ttl time.Duration) error
}
