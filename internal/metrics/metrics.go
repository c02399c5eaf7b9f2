package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus instruments for the scheduler. Each
// Collector owns its registry so tests can build as many as they need.
type Collector struct {
	registry *prometheus.Registry

	jobsScheduled prometheus.Counter
	jobsSent      prometheus.Counter
	jobsFailed    prometheus.Counter
	jobsRetried   prometheus.Counter
	jobsCanceled  prometheus.Counter
	sweeps        prometheus.Counter

	sendLatency prometheus.Histogram
	inFlight    prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailsched_jobs_scheduled_total",
			Help: "Total number of jobs accepted for deferred delivery",
		}),
		jobsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailsched_jobs_sent_total",
			Help: "Total number of jobs delivered successfully",
		}),
		jobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailsched_jobs_failed_total",
			Help: "Total number of jobs that exhausted their retry budget",
		}),
		jobsRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailsched_jobs_retried_total",
			Help: "Total number of delivery attempts rescheduled with backoff",
		}),
		jobsCanceled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailsched_jobs_canceled_total",
			Help: "Total number of jobs canceled before dispatch",
		}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailsched_sweeps_total",
			Help: "Total number of due-job sweep cycles",
		}),
		sendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mailsched_send_latency_seconds",
			Help:    "Latency of successful send operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mailsched_dispatches_in_flight",
			Help: "Current number of in-flight send operations",
		}),
	}

	c.registry.MustRegister(
		c.jobsScheduled,
		c.jobsSent,
		c.jobsFailed,
		c.jobsRetried,
		c.jobsCanceled,
		c.sweeps,
		c.sendLatency,
		c.inFlight,
	)
	return c
}

// Handler serves this collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordScheduled() {
	c.jobsScheduled.Inc()
}

func (c *Collector) RecordSweep() {
	c.sweeps.Inc()
}

func (c *Collector) RecordSent(latencySeconds float64) {
	c.jobsSent.Inc()
	c.sendLatency.Observe(latencySeconds)
}

func (c *Collector) RecordRetry() {
	c.jobsRetried.Inc()
}

func (c *Collector) RecordFailed() {
	c.jobsFailed.Inc()
}

func (c *Collector) RecordCanceled() {
	c.jobsCanceled.Inc()
}

func (c *Collector) DispatchStarted() {
	c.inFlight.Inc()
}

func (c *Collector) DispatchDone() {
	c.inFlight.Dec()
}
