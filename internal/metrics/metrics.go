package metrics

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "vendorbid"

	httpSubsystem   = "http"
	marketSubsystem = "market"
)

// Metrics contains metrics exposed by the API server.
type Metrics struct {
	// Number of HTTP requests, by method, route and status code.
	Requests metrics.Counter
	// Request latency in seconds, by method and route.
	RequestDuration metrics.Histogram
	// Requests refused by the auth rate limiter.
	RateLimited metrics.Counter

	// Bids placed by suppliers.
	BidsSubmitted metrics.Counter
	// Bids withdrawn by suppliers.
	BidsWithdrawn metrics.Counter
	// Requirements awarded to a bid.
	Awards metrics.Counter
	// Domain events that could not be published, by event name.
	PublishFailures metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
func PrometheusMetrics(namespace string) *Metrics {
	return &Metrics{
		Requests: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: httpSubsystem,
			Name:      "requests_total",
			Help:      "Number of HTTP requests served.",
		}, []string{"method", "route", "code"}),
		RequestDuration: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: httpSubsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   stdprometheus.DefBuckets,
		}, []string{"method", "route"}),
		RateLimited: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: httpSubsystem,
			Name:      "rate_limited_total",
			Help:      "Number of requests refused by the rate limiter.",
		}, []string{}),
		BidsSubmitted: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: marketSubsystem,
			Name:      "bids_submitted_total",
			Help:      "Number of bids placed.",
		}, []string{}),
		BidsWithdrawn: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: marketSubsystem,
			Name:      "bids_withdrawn_total",
			Help:      "Number of bids withdrawn.",
		}, []string{}),
		Awards: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: marketSubsystem,
			Name:      "awards_total",
			Help:      "Number of requirements awarded.",
		}, []string{}),
		PublishFailures: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: marketSubsystem,
			Name:      "event_publish_failures_total",
			Help:      "Number of domain events that failed to publish.",
		}, []string{"event"}),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Requests:        discard.NewCounter(),
		RequestDuration: discard.NewHistogram(),
		RateLimited:     discard.NewCounter(),
		BidsSubmitted:   discard.NewCounter(),
		BidsWithdrawn:   discard.NewCounter(),
		Awards:          discard.NewCounter(),
		PublishFailures: discard.NewCounter(),
	}
}
