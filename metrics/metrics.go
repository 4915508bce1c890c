package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/pilecalc/pile-api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pileapi"

// Collector exposes auth activity and HTTP traffic as prometheus metrics.
// It doubles as a pileapi.ActivitySink.
type Collector struct {
	registry *prometheus.Registry

	mEvents   *prometheus.CounterVec
	mRequests *prometheus.CounterVec
	mDuration *prometheus.HistogramVec
}

var _ pileapi.ActivitySink = (*Collector)(nil)

// New creates a collector backed by its own registry
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		mEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_events_total",
			Help:      "Auth and account activity events by type and reason",
		}, []string{"event", "reason"}),
		mRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		mDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.mEvents,
		c.mRequests,
		c.mDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Record implements pileapi.ActivitySink
func (c *Collector) Record(_ context.Context, event pileapi.ActivityEvent) error {
	c.mEvents.WithLabelValues(string(event.EventType), event.Reason).Inc()
	return nil
}

// Middleware records request count and latency per route template
func (c *Collector) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		status := ctx.Response().StatusCode()
		if err != nil {
			status = pileapi.StatusCode(err)
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		route := ctx.Route().Path
		c.mRequests.WithLabelValues(ctx.Method(), route, strconv.Itoa(status)).Inc()
		c.mDuration.WithLabelValues(ctx.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the prometheus exposition format
func (c *Collector) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
