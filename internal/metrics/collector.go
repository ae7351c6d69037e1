// Package metrics exposes admission-control counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/serroba/admission-go/internal/ratelimit"
)

const namespace = "admission"

// Sizer reports how many keys a store is tracking.
type Sizer interface {
	Len() int
}

// Collector records limiter decisions and store evictions.
// It satisfies ratelimit.Observer and store.EvictionObserver.
type Collector struct {
	registry  *prometheus.Registry
	decisions *prometheus.CounterVec
	evicted   prometheus.Counter
}

// NewCollector registers the admission metrics on a fresh registry.
// store may be nil when no tracked-keys gauge is wanted.
func NewCollector(store Sizer) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Admission decisions by key scope and outcome.",
		}, []string{"scope", "outcome"}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evicted_records_total",
			Help:      "Idle quota records removed by the sweeper.",
		}),
	}

	reg.MustRegister(
		c.decisions,
		c.evicted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if store != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_keys",
			Help:      "Quota records currently held in memory.",
		}, func() float64 {
			return float64(store.Len())
		}))
	}

	return c
}

// ObserveDecision counts one decision. Denials are labelled by reason.
func (c *Collector) ObserveDecision(scope ratelimit.Scope, d ratelimit.Decision) {
	outcome := "allowed"
	if !d.Allowed {
		outcome = "denied_" + string(d.Reason)
	}

	c.decisions.WithLabelValues(string(scope), outcome).Inc()
}

// ObserveEvictions adds n evicted records.
func (c *Collector) ObserveEvictions(n int) {
	c.evicted.Add(float64(n))
}

// Registry returns the registry holding the admission metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Compile-time check.
var _ ratelimit.Observer = (*Collector)(nil)
