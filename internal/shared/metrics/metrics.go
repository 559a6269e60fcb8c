package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Métricas de domínio do motor de rodadas, registradas no registry default
// e expostas pelo servidor de /metrics de cada serviço
var (
	RoundsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_rounds_started_total",
		Help: "Total de rodadas crash iniciadas",
	})

	RoundsCrashed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_rounds_crashed_total",
		Help: "Total de rodadas crash encerradas, por origem do resultado",
	}, []string{"source"}) // "computed" | "admin-override"

	BetsPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_bets_placed_total",
		Help: "Total de apostas admitidas, por tipo de jogo",
	}, []string{"game"}) // "crash" | "dice" | "sports"

	BetsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_bets_rejected_total",
		Help: "Total de apostas rejeitadas na admissão, por motivo",
	}, []string{"reason"})

	SettlementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "engine_settlement_seconds",
		Help:    "Duração da aplicação de uma liquidação completa",
		Buckets: prometheus.DefBuckets,
	})

	Resettlements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_resettlements_total",
		Help: "Total de correções de resultado (reversão + nova liquidação)",
	})

	NotificationsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_notifications_delivered_total",
		Help: "Total de notificações de aposta liquidada entregues via webhook, por resultado",
	}, []string{"outcome"}) // "ok" | "failed" | "dlq"
)
