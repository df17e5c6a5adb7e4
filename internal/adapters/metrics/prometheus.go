package metrics

import (
	"net/http"
	"time"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/bdlandchain/landchain-cli/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "landchain"

// Prometheus records the transaction lifecycle on a private registry.
type Prometheus struct {
	registry        *prometheus.Registry
	submitted       *prometheus.CounterVec
	settled         *prometheus.CounterVec
	toasts          *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
}

var _ ports.Metrics = (*Prometheus)(nil)

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	submitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transactions_submitted_total",
		Help:      "Ledger transactions accepted by the signing agent.",
	}, []string{"kind"})
	settled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transactions_settled_total",
		Help:      "Ledger transactions that reached a terminal status.",
	}, []string{"kind", "status"})
	toasts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Notifications pushed to the user.",
	}, []string{"kind"})
	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_refreshes_total",
		Help:      "Full ledger refreshes by outcome.",
	}, []string{"outcome"})
	refreshDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ledger_refresh_duration_seconds",
		Help:      "Duration of full ledger refreshes in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
	registry.MustRegister(submitted, settled, toasts, refreshes, refreshDuration)

	return &Prometheus{
		registry:        registry,
		submitted:       submitted,
		settled:         settled,
		toasts:          toasts,
		refreshes:       refreshes,
		refreshDuration: refreshDuration,
	}
}

func (p *Prometheus) TxSubmitted(kind domain.TxKind) {
	p.submitted.WithLabelValues(string(kind)).Inc()
}

func (p *Prometheus) TxSettled(kind domain.TxKind, status domain.TxStatus) {
	p.settled.WithLabelValues(string(kind), string(status)).Inc()
}

func (p *Prometheus) ToastPushed(kind domain.ToastKind) {
	p.toasts.WithLabelValues(string(kind)).Inc()
}

func (p *Prometheus) RefreshObserved(duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.refreshes.WithLabelValues(outcome).Inc()
	p.refreshDuration.Observe(duration.Seconds())
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
