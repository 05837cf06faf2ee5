package infra

import (
	"context"

	"codereview-gateway/middleware/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusStatsStore expõe as decisões como counter. A chave do cliente não vira
// label (cardinalidade).
type PrometheusStatsStore struct {
	decisions *prometheus.CounterVec
}

func NewPrometheusStatsStore(reg prometheus.Registerer) (*PrometheusStatsStore, error) {
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codereview",
		Subsystem: "admission",
		Name:      "decisions_total",
		Help:      "Admission decisions for AI routes, partitioned by outcome.",
	}, []string{"method", "route", "outcome"})

	if err := reg.Register(decisions); err != nil {
		return nil, err
	}
	return &PrometheusStatsStore{decisions: decisions}, nil
}

func (s *PrometheusStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.decisions.WithLabelValues(ev.Method, ev.Route, string(ev.Outcome)).Inc()
	return nil
}
