package metrics

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	prometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// Namespace prefixes every metric exported by the server.
	Namespace = "p2pexchange"
)

// Metrics contains the counters recorded by the identity and order services.
type Metrics struct {
	// Token registrations by outcome: created, returning, collision.
	Registrations metrics.Counter
	// Tokens rejected by the entropy gate.
	EntropyRejections metrics.Counter
	// Accounts deleted by their owner.
	Deprovisions metrics.Counter

	// Orders created, labeled by type.
	OrdersCreated metrics.Counter
	// Orders taken.
	OrdersTaken metrics.Counter
	// Create or take attempts refused because the identity already holds a role.
	RoleRejections metrics.Counter
	// Orders moved to expired by the expiry job.
	OrdersExpired metrics.Counter
	// Order lookups, labeled by whether the requester was a participant.
	Lookups metrics.Counter
}

// PrometheusMetrics returns Metrics built using the Prometheus client library.
// It registers on the default registry, so call it once per process.
func PrometheusMetrics() *Metrics {
	return &Metrics{
		Registrations: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "identity",
			Name:      "registrations_total",
			Help:      "Token registrations by outcome.",
		}, []string{"outcome"}),
		EntropyRejections: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "identity",
			Name:      "entropy_rejections_total",
			Help:      "Tokens refused for insufficient entropy.",
		}, []string{}),
		Deprovisions: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "identity",
			Name:      "deprovisions_total",
			Help:      "Accounts deleted by their owner.",
		}, []string{}),
		OrdersCreated: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders created, by type.",
		}, []string{"type"}),
		OrdersTaken: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "orders",
			Name:      "taken_total",
			Help:      "Orders taken.",
		}, []string{}),
		RoleRejections: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "orders",
			Name:      "role_rejections_total",
			Help:      "Requests refused because the identity already holds a maker or taker role.",
		}, []string{"role"}),
		OrdersExpired: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "orders",
			Name:      "expired_total",
			Help:      "Public orders expired by the scheduler.",
		}, []string{}),
		Lookups: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "orders",
			Name:      "lookups_total",
			Help:      "Order lookups, by requester visibility.",
		}, []string{"participant"}),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Registrations:     discard.NewCounter(),
		EntropyRejections: discard.NewCounter(),
		Deprovisions:      discard.NewCounter(),
		OrdersCreated:     discard.NewCounter(),
		OrdersTaken:       discard.NewCounter(),
		RoleRejections:    discard.NewCounter(),
		OrdersExpired:     discard.NewCounter(),
		Lookups:           discard.NewCounter(),
	}
}
