// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services and caches report to.
type Recorder interface {
	RecordAuth(action, outcome string)
	RecordOrderCreated(orderType string)
	RecordOrderTransition(from, to string)
	RecordCacheLookup(cache string, hit bool)
	RecordEventPublish(event string, ok bool)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	auth        *prometheus.CounterVec
	ordersNew   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	cache       *prometheus.CounterVec
	events      *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		auth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cafe_auth_total",
			Help: "Authentication operations by action and outcome.",
		}, []string{"action", "outcome"}),
		ordersNew: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cafe_orders_created_total",
			Help: "Orders created by order type.",
		}, []string{"type"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cafe_order_transitions_total",
			Help: "Applied order status transitions.",
		}, []string{"from", "to"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cafe_cache_lookups_total",
			Help: "Cache lookups by cache and result.",
		}, []string{"cache", "result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cafe_events_published_total",
			Help: "Order events handed to the broker by event and result.",
		}, []string{"event", "result"}),
	}

	reg.MustRegister(c.auth, c.ordersNew, c.transitions, c.cache, c.events)
	return c
}

func (c *Collector) RecordAuth(action, outcome string) {
	c.auth.WithLabelValues(action, outcome).Inc()
}

func (c *Collector) RecordOrderCreated(orderType string) {
	c.ordersNew.WithLabelValues(orderType).Inc()
}

func (c *Collector) RecordOrderTransition(from, to string) {
	c.transitions.WithLabelValues(from, to).Inc()
}

func (c *Collector) RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cache.WithLabelValues(cache, result).Inc()
}

func (c *Collector) RecordEventPublish(event string, ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	c.events.WithLabelValues(event, result).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.  It is the default when no collector is wired.
type Nop struct{}

func (Nop) RecordAuth(string, string) {}
func (Nop) RecordOrderCreated(string) {}
func (Nop) RecordOrderTransition(string, string) {}
func (Nop) RecordCacheLookup(string, bool) {}
func (Nop) RecordEventPublish(string, bool) {}
