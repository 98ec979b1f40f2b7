// Package metrics exposes Prometheus metrics for inbound requests, handshake
// steps and upstream calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/brizzai/signalbind/internal/numverify"
	"github.com/brizzai/signalbind/internal/requester"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// Collector records SignalBind metrics on its own registry.
type Collector struct {
	registry         *prometheus.Registry
	httpRequests     *prometheus.CounterVec
	steps            *prometheus.CounterVec
	stepLatency      *prometheus.HistogramVec
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
}

// NewCollector creates a Collector with a fresh registry including Go runtime metrics.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbind_http_requests_total",
			Help: "Inbound HTTP requests by route and status code.",
		}, []string{"route", "status_code"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbind_number_verification_steps_total",
			Help: "Number verification handshake steps by outcome.",
		}, []string{"step", "outcome"}),
		stepLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signalbind_number_verification_step_seconds",
			Help:    "Duration of number verification handshake steps.",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbind_upstream_requests_total",
			Help: "Gateway calls by name and status code; status 0 means a transport error.",
		}, []string{"name", "status_code"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signalbind_upstream_latency_seconds",
			Help:    "Gateway call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"name"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequests,
		c.steps,
		c.stepLatency,
		c.upstreamRequests,
		c.upstreamLatency,
	)
	return c
}

// Registry returns the registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest counts one inbound request.
func (c *Collector) RecordHTTPRequest(route string, statusCode int) {
	c.httpRequests.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
}

// ObserveStep implements numverify.StepObserver.
func (c *Collector) ObserveStep(step string, err error, duration time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.steps.WithLabelValues(step, outcome).Inc()
	c.stepLatency.WithLabelValues(step).Observe(duration.Seconds())
}

// ObserveUpstream implements requester.Observer.
func (c *Collector) ObserveUpstream(name string, statusCode int, duration time.Duration) {
	c.upstreamRequests.WithLabelValues(name, strconv.Itoa(statusCode)).Inc()
	c.upstreamLatency.WithLabelValues(name).Observe(duration.Seconds())
}

// Module provides the collector and exposes it as the requester and step observers
var Module = fx.Module("metrics",
	fx.Provide(
		NewCollector,
		func(c *Collector) requester.Observer { return c },
		func(c *Collector) numverify.StepObserver { return c },
	),
)
