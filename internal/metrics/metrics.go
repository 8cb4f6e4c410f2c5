// Package metrics exposes Prometheus instrumentation for the HTTP API and the
// vendor event publisher.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several apps can coexist in one process.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	authFailures    prometheus.Counter
	eventsPublished *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vendorrisk_http_requests_total",
			Help: "The total number of handled HTTP requests",
		}, []string{"method", "route", "status"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vendorrisk_http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		authFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "vendorrisk_auth_failures_total",
			Help: "The total number of rejected bearer tokens",
		}),
		eventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vendorrisk_vendor_events_total",
			Help: "Vendor events handed to the broker",
		}, []string{"routing_key", "result"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request counts and latency. The route label is the
// matched route pattern, not the raw path.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		m.requests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// AuthFailure counts one rejected token.
func (m *Metrics) AuthFailure() {
	m.authFailures.Inc()
}

// Publisher is the subset of the event publisher that is instrumented.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type countingPublisher struct {
	next    Publisher
	counter *prometheus.CounterVec
}

func (p countingPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	err := p.next.Publish(ctx, routingKey, payload)
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.counter.WithLabelValues(routingKey, result).Inc()
	return err
}

// InstrumentPublisher wraps next so every publish attempt is counted.
func (m *Metrics) InstrumentPublisher(next Publisher) Publisher {
	return countingPublisher{next: next, counter: m.eventsPublished}
}
