// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "churchboard"

// Requirement transitions.
const (
	TransitionCreated     = "created"
	TransitionUpdated     = "updated"
	TransitionPurchased   = "purchased"
	TransitionReverted    = "reverted"
	TransitionTransferred = "transferred"
	TransitionDeleted     = "deleted"
)

// Outcome labels for notifications and AI calls.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Collector is a prometheus.Collector for the HTTP API and the domain events
// behind it. A nil *Collector is valid and records nothing.
type Collector struct {
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	transitions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	aiCalls       *prometheus.CounterVec
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "The number of HTTP requests served.",
			}, []string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "The time taken to serve an HTTP request.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method", "route"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requirement_transitions_total",
				Help:      "The number of requirement lifecycle events.",
			}, []string{"transition"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "notifications_total",
				Help:      "The number of notification emails by kind and result.",
			}, []string{"kind", "result"},
		),
		aiCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "ai_recognitions_total",
				Help:      "The number of receipt recognition calls by result.",
			}, []string{"result"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.httpRequests.Describe(ch)
	c.httpDuration.Describe(ch)
	c.transitions.Describe(ch)
	c.notifications.Describe(ch)
	c.aiCalls.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.httpRequests.Collect(ch)
	c.httpDuration.Collect(ch)
	c.transitions.Collect(ch)
	c.notifications.Collect(ch)
	c.aiCalls.Collect(ch)
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RequirementTransition counts a requirement lifecycle event.
func (c *Collector) RequirementTransition(transition string) {
	if c == nil {
		return
	}
	c.transitions.WithLabelValues(transition).Inc()
}

// Notification counts a notification attempt.
func (c *Collector) Notification(kind, result string) {
	if c == nil {
		return
	}
	c.notifications.WithLabelValues(kind, result).Inc()
}

// AIRecognition counts a receipt recognition call.
func (c *Collector) AIRecognition(result string) {
	if c == nil {
		return
	}
	c.aiCalls.WithLabelValues(result).Inc()
}

// NewRegistry returns a registry with c and the Go runtime and process
// collectors registered.
func NewRegistry(c *Collector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	for _, col := range []prometheus.Collector{
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
