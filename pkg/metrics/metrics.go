// Package metrics exposes the service counters and histograms on a private
// Prometheus registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the observer interfaces of the sdmx, catalog and
// query packages.
type Collector struct {
	registry *prometheus.Registry

	// SDMX
	FetchesTotal  *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	EndpointUp    *prometheus.GaugeVec

	// Catalog build
	BuildStepsTotal   *prometheus.CounterVec
	BuildStepDuration *prometheus.HistogramVec

	// Queries
	QueriesTotal  *prometheus.CounterVec
	QueryDuration prometheus.Histogram
	LLMTokens     prometheus.Counter

	// HTTP
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
}

// NewCollector registers every metric under namespace on a fresh registry,
// together with the Go runtime and process collectors.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		FetchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sdmx_fetches_total",
				Help:      "SDMX fetches by resource and outcome, retries included in one fetch",
			},
			[]string{"resource", "outcome"},
		),
		FetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sdmx_fetch_duration_seconds",
				Help:      "SDMX fetch duration in seconds by resource",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"resource"},
		),
		EndpointUp: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sdmx_endpoint_up",
				Help:      "1 when the last availability check of the endpoint succeeded",
			},
			[]string{"endpoint"},
		),

		BuildStepsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "build_steps_total",
				Help:      "Catalog build steps by step and outcome",
			},
			[]string{"step", "outcome"},
		),
		BuildStepDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "build_step_duration_seconds",
				Help:      "Catalog build step duration in seconds",
				Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"step"},
		),

		QueriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Population queries by outcome (ok, no_results, config_error, error)",
			},
			[]string{"outcome"},
		),
		QueryDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "End-to-end population query duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
		),
		LLMTokens: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_tokens_total",
				Help:      "Total tokens consumed by LLM completions",
			},
		),

		APIRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by route, method, and status",
			},
			[]string{"route", "method", "status"},
		),
		APIRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"route"},
		),
	}
}

// Registry returns the private registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveFetch records one logical SDMX fetch.
func (c *Collector) ObserveFetch(resource, outcome string, elapsed time.Duration) {
	c.FetchesTotal.WithLabelValues(resource, outcome).Inc()
	c.FetchDuration.WithLabelValues(resource).Observe(elapsed.Seconds())
}

// SetEndpointUp records the availability of a watched endpoint.
func (c *Collector) SetEndpointUp(name string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	c.EndpointUp.WithLabelValues(name).Set(v)
}

// ObserveStep records one catalog build step.
func (c *Collector) ObserveStep(step, outcome string, elapsed time.Duration) {
	c.BuildStepsTotal.WithLabelValues(step, outcome).Inc()
	c.BuildStepDuration.WithLabelValues(step).Observe(elapsed.Seconds())
}

// ObserveQuery records one population query and the LLM tokens it used.
func (c *Collector) ObserveQuery(outcome string, elapsed time.Duration, tokens int) {
	c.QueriesTotal.WithLabelValues(outcome).Inc()
	c.QueryDuration.Observe(elapsed.Seconds())
	if tokens > 0 {
		c.LLMTokens.Add(float64(tokens))
	}
}

// ObserveRequest records one HTTP request.
func (c *Collector) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	c.APIRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.APIRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
