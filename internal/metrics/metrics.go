// Package metrics exposes bot counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pharmtutor"

// Collector holds all bot metrics. A nil *Collector is valid and records
// nothing, so callers never branch on whether metrics are enabled.
type Collector struct {
	registry *prometheus.Registry

	updates  *prometheus.CounterVec
	turns    *prometheus.CounterVec
	turnTime *prometheus.HistogramVec
	storeOps *prometheus.CounterVec
	reloads  *prometheus.CounterVec
	sends    *prometheus.CounterVec
	attempts *prometheus.HistogramVec
}

// New builds a collector with process and Go runtime collectors attached.
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Inbound updates by kind and admission result.",
		}, []string{"kind", "result"}),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns by state and outcome.",
		}, []string{"state", "outcome"}),
		turnTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time spent routing a conversation turn.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Progress store operations by result.",
		}, []string{"op", "result"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_reloads_total",
			Help:      "Catalog reload attempts by result.",
		}, []string{"result"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_sends_total",
			Help:      "Outbound Bot API jobs by action and result.",
		}, []string{"action", "result"}),
		attempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "telegram_send_attempts",
			Help:      "Attempts needed per outbound job.",
			Buckets:   []float64{1, 2, 3, 5},
		}, []string{"action"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.updates, c.turns, c.turnTime, c.storeOps, c.reloads, c.sends, c.attempts,
	)
	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveUpdate counts an inbound update.
func (c *Collector) ObserveUpdate(kind string, admitted bool) {
	if c == nil {
		return
	}
	result := "admitted"
	if !admitted {
		result = "refused"
	}
	c.updates.WithLabelValues(kind, result).Inc()
}

// ObserveTurn counts a routed turn.
func (c *Collector) ObserveTurn(state, outcome string, took time.Duration) {
	if c == nil {
		return
	}
	c.turns.WithLabelValues(state, outcome).Inc()
	c.turnTime.WithLabelValues(outcome).Observe(took.Seconds())
}

// ObserveStore counts a store operation.
func (c *Collector) ObserveStore(op, result string) {
	if c == nil {
		return
	}
	c.storeOps.WithLabelValues(op, result).Inc()
}

// ObserveReload counts a catalog reload attempt.
func (c *Collector) ObserveReload(err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.reloads.WithLabelValues(result).Inc()
}

// ObserveSend counts a finished outbound job.
func (c *Collector) ObserveSend(action string, attempts int, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.sends.WithLabelValues(action, result).Inc()
	c.attempts.WithLabelValues(action).Observe(float64(attempts))
}

// GaugeFunc registers a gauge sampled from fn at scrape time.
func (c *Collector) GaugeFunc(name, help string, fn func() float64) {
	if c == nil || fn == nil {
		return
	}
	c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
