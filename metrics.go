package indirectx

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics of a host. All methods are safe on a
// nil receiver so hosts without metrics pay nothing.
type Metrics struct {
	Constructions   *prometheus.CounterVec
	CoalescedWaits  prometheus.Counter
	LiveInstances   prometheus.Gauge
	Disposals       *prometheus.CounterVec
	ResolveFailures *prometheus.CounterVec
}

// NewMetrics creates the host metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		Constructions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "indirectx",
				Name:      "constructions_total",
				Help:      "Number of factory invocations by provider kind and result",
			},
			[]string{"kind", "result"},
		),
		CoalescedWaits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "indirectx",
				Name:      "coalesced_waits_total",
				Help:      "Number of resolutions that joined a construction already in progress",
			},
		),
		LiveInstances: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "indirectx",
				Name:      "live_instances",
				Help:      "Number of instances that have been created and not yet disposed",
			},
		),
		Disposals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "indirectx",
				Name:      "disposals_total",
				Help:      "Number of completed disposals by result",
			},
			[]string{"result"},
		),
		ResolveFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "indirectx",
				Name:      "resolve_failures_total",
				Help:      "Number of failed resolutions by reason",
			},
			[]string{"reason"},
		),
	}

	for _, c := range []prometheus.Collector{m.Constructions, m.CoalescedWaits, m.LiveInstances, m.Disposals, m.ResolveFailures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) constructed(kind Kind, err error) {
	if m == nil {
		return
	}
	m.Constructions.WithLabelValues(kind.String(), resultLabel(err)).Inc()
}

func (m *Metrics) coalesced() {
	if m == nil {
		return
	}
	m.CoalescedWaits.Inc()
}

func (m *Metrics) instanceCreated() {
	if m == nil {
		return
	}
	m.LiveInstances.Inc()
}

func (m *Metrics) disposed(err error) {
	if m == nil {
		return
	}
	m.LiveInstances.Dec()
	m.Disposals.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) resolveFailed(err error) {
	if m == nil {
		return
	}
	m.ResolveFailures.WithLabelValues(failureReason(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func failureReason(err error) string {
	var ixErr *IxError
	if errors.As(err, &ixErr) {
		switch ixErr.Kind {
		case ErrNotVisible:
			return "not_visible"
		case ErrAmbiguous:
			return "ambiguous"
		case ErrDisposing:
			return "disposing"
		case ErrCycle:
			return "cycle"
		case ErrConstruction:
			return "construction"
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "other"
}
