package domain

import (
	"context"
	"time"
)

// StatsEvent representa uma decisão de admissão.
//
// Route é o padrão da rota no chi, nunca o path cru. Requisições admitidas são
// registradas depois do roteamento ("/ai/get-review"); as rejeitadas não chegam ao
// sub-router e ficam com o padrão do mount ("/ai/*"). Fora do chi: "unmatched".
type StatsEvent struct {
	Key     Key
	Outcome Outcome

	Method string
	Route  string

	At time.Time
}

// StatsStore persiste estatísticas de admissão.
//
// O middleware trata erro como best-effort (não derruba request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
