// Package metrics exposes Prometheus collectors for analysis runs, model
// fits and the changepoint cache.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "salescast"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeNoModel = "no_model"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Collector owns a registry and the application collectors. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry        *prometheus.Registry
	runs            *prometheus.CounterVec
	fits            *prometheus.CounterVec
	fitDuration     *prometheus.HistogramVec
	changepointHits *prometheus.CounterVec
}

// New creates a collector with its own registry, including the Go runtime
// and process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Analysis runs by outcome.",
		}, []string{"outcome"}),
		fits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_fits_total",
			Help:      "Holt-Winters fits by configuration and outcome.",
		}, []string{"config", "outcome"}),
		fitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_fit_seconds",
			Help:      "Duration of Holt-Winters fits.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"config"}),
		changepointHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changepoint_cache_total",
			Help:      "Changepoint fit cache lookups by result.",
		}, []string{"result"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.runs,
		c.fits,
		c.fitDuration,
		c.changepointHits,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RunFinished counts a finished analysis run.
func (c *Collector) RunFinished(outcome string) {
	if c == nil {
		return
	}
	c.runs.WithLabelValues(outcome).Inc()
}

// FitFinished records a model fit for the given configuration label.
func (c *Collector) FitFinished(config string, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	c.fits.WithLabelValues(config, outcome).Inc()
	c.fitDuration.WithLabelValues(config).Observe(elapsed.Seconds())
}

// CacheLookup records a changepoint cache hit or miss.
func (c *Collector) CacheLookup(hit bool) {
	if c == nil {
		return
	}
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	c.changepointHits.WithLabelValues(result).Inc()
}
