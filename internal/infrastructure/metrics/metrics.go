package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/escrowledger/internal/domain"
)

const namespace = "escrowledger"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Transfer metrics
	TransferTransitions *prometheus.CounterVec
	Fulfillments        *prometheus.CounterVec
	TransferErrors      *prometheus.CounterVec

	// Expiry metrics
	ExpiryWatched prometheus.Gauge

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxFailures  prometheus.Counter

	// API metrics
	HTTPRequests         *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TransferTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfer_transitions_total",
				Help:      "Transfer state transitions by resulting state",
			},
			[]string{"state"},
		),
		Fulfillments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fulfillments_total",
				Help:      "Accepted condition fulfillments by branch",
			},
			[]string{"branch"},
		),
		TransferErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfer_errors_total",
				Help:      "Failed transfer operations by error kind",
			},
			[]string{"kind"},
		),

		ExpiryWatched: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "expiry_watched_transfers",
			Help:      "Unfinalized transfers waiting for their deadline",
		}),

		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Notifications delivered from the outbox",
		}),
		OutboxFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_failures_total",
			Help:      "Notification deliveries that failed",
		}),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		HTTPRequestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		}),
	}
}

// ObserveTransition counts a transfer reaching state.
func (m *Metrics) ObserveTransition(state domain.TransferState) {
	m.TransferTransitions.WithLabelValues(string(state)).Inc()
}

// ObserveFulfillment counts an accepted fulfillment for branch.
func (m *Metrics) ObserveFulfillment(branch string) {
	m.Fulfillments.WithLabelValues(branch).Inc()
}

// ObserveError counts a failed operation by its error kind.
func (m *Metrics) ObserveError(err error) {
	if err == nil {
		return
	}
	m.TransferErrors.WithLabelValues(errorKind(err)).Inc()
}

func errorKind(err error) string {
	kind := domain.Kind(err)
	if kind == nil {
		return "internal"
	}

	switch kind {
	case domain.ErrNotFound:
		return "not_found"
	case domain.ErrInvalidBody:
		return "invalid_body"
	case domain.ErrInvalidModification:
		return "invalid_modification"
	case domain.ErrUnauthorized:
		return "unauthorized"
	case domain.ErrUnprocessableEntity:
		return "unprocessable_entity"
	case domain.ErrInsufficientFunds:
		return "insufficient_funds"
	case domain.ErrUnmetCondition:
		return "unmet_condition"
	case domain.ErrMissingHoldAccount:
		return "missing_hold_account"
	default:
		return "internal"
	}
}
