// Package telemetry provides Prometheus metrics and tracing for the
// link-enricher service.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonesrussell/north-cloud/link-enricher/infrastructure/metrics"
)

const (
	serviceName = "link-enricher"
	namespace   = "link_enricher"
)

// Job outcomes recorded by RecordJob.
const (
	OutcomeResolved  = "resolved"
	OutcomeFallback  = "fallback"
	OutcomeRetried   = "retried"
	OutcomeSkipped   = "skipped"
	OutcomeDropped   = "dropped"
	OutcomeAbandoned = "abandoned"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	JobsProcessed   *prometheus.CounterVec
	JobDuration     *prometheus.HistogramVec
	FetchErrors     *prometheus.CounterVec
	EnqueueFailures prometheus.Counter
	PublishFailures prometheus.Counter
	QueueDepth      *prometheus.GaugeVec
	WorkersBusy     prometheus.Gauge
}

// Provider wraps the metrics registry and tracer. A nil *Provider is valid
// and records nothing.
type Provider struct {
	Tracer   trace.Tracer
	Metrics  *Metrics
	HTTP     *metrics.HTTPMetrics
	registry *prometheus.Registry
}

// NewProvider registers all collectors on a fresh registry, together with
// the Go runtime and process collectors.
func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Provider{
		Tracer:   otel.Tracer(serviceName),
		Metrics:  initMetrics(promauto.With(reg)),
		HTTP:     metrics.NewHTTPMetrics(reg, namespace),
		registry: reg,
	}
}

func initMetrics(factory promauto.Factory) *Metrics {
	return &Metrics{
		JobsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Enrichment jobs handled, by outcome",
		}, []string{"outcome"}),

		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time to handle one enrichment job",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),

		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Outbound fetch failures, by kind",
		}, []string{"kind"}),

		EnqueueFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enqueue_failures_total",
			Help:      "Jobs that could not be enqueued from the write path",
		}),

		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Metadata update events that could not be published",
		}),

		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Jobs in the queue, by state",
		}, []string{"state"}),

		WorkersBusy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_busy",
			Help:      "Workers currently handling a job",
		}),
	}
}

// Registry returns the registry backing the provider's collectors.
func (p *Provider) Registry() *prometheus.Registry {
	if p == nil {
		return nil
	}
	return p.registry
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (p *Provider) Handler() http.Handler {
	if p == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// HTTPMiddleware returns the request metrics middleware.
func (p *Provider) HTTPMiddleware() gin.HandlerFunc {
	if p == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return p.HTTP.Middleware()
}

// RecordJob records the outcome and duration of one job.
func (p *Provider) RecordJob(outcome, provider string, duration time.Duration) {
	if p == nil {
		return
	}
	if provider == "" {
		provider = "unknown"
	}
	p.Metrics.JobsProcessed.WithLabelValues(outcome).Inc()
	p.Metrics.JobDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordFetchError counts a failed fetch by error kind.
func (p *Provider) RecordFetchError(kind string) {
	if p == nil {
		return
	}
	p.Metrics.FetchErrors.WithLabelValues(kind).Inc()
}

// IncrementEnqueueFailures counts a job lost on the write path.
func (p *Provider) IncrementEnqueueFailures() {
	if p == nil {
		return
	}
	p.Metrics.EnqueueFailures.Inc()
}

// IncrementPublishFailures counts an event that was not delivered.
func (p *Provider) IncrementPublishFailures() {
	if p == nil {
		return
	}
	p.Metrics.PublishFailures.Inc()
}

// SetQueueDepth sets the gauges for each queue state.
func (p *Provider) SetQueueDepth(pending, processing, delayed int64) {
	if p == nil {
		return
	}
	p.Metrics.QueueDepth.WithLabelValues("pending").Set(float64(pending))
	p.Metrics.QueueDepth.WithLabelValues("processing").Set(float64(processing))
	p.Metrics.QueueDepth.WithLabelValues("delayed").Set(float64(delayed))
}

// WorkerBusy marks one worker busy; call the returned func when it is idle
// again.
func (p *Provider) WorkerBusy() func() {
	if p == nil {
		return func() {}
	}
	p.Metrics.WorkersBusy.Inc()
	return p.Metrics.WorkersBusy.Dec
}

// StartSpan starts a new trace span.
// The caller is responsible for ending the span with span.End().
//
//nolint:spancheck // Caller is responsible for ending the span
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(serviceName)
	if p != nil {
		tracer = p.Tracer
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
