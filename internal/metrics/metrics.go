// Package metrics expone los collectors Prometheus del servicio.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokensIssued cuenta tokens emitidos por tipo.
	TokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loandesk_tokens_issued_total",
		Help: "Tokens issued, by kind.",
	}, []string{"kind"})

	// TokenRedemptions cuenta intentos de canje por tipo y resultado.
	// outcome: ok | not_found | already_used | expired | error
	TokenRedemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loandesk_token_redemptions_total",
		Help: "Token redemption attempts, by kind and outcome.",
	}, []string{"kind", "outcome"})

	// Invitations cuenta eventos del ciclo de vida de invitaciones.
	// event: sent | accepted | cancelled | expired | resent
	Invitations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loandesk_invitations_total",
		Help: "Invitation lifecycle events.",
	}, []string{"event"})

	// TenantsCreated cuenta workspaces creados en bootstrap.
	TenantsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loandesk_tenants_created_total",
		Help: "Workspaces created during bootstrap.",
	})

	// NotifyFailures cuenta despachos de notificación fallidos (el write ya
	// está commiteado cuando se despacha, así que solo se cuenta y loguea).
	NotifyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loandesk_notify_failures_total",
		Help: "Notification dispatch failures after commit.",
	})

	// HTTPDuration mide la latencia por ruta y status.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loandesk_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)
