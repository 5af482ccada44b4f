package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports HTTP and pipeline metrics on its own registry.
// It implements pipeline.Monitor.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	pipelineRuns     *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	retrievalResults *prometheus.HistogramVec
}

var _ pipeline.Monitor = (*Metrics)(nil)

// NewMetrics registers every collector on a fresh registry, together with
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinroute_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clinroute_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		pipelineRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinroute_pipeline_runs_total",
				Help: "Total number of pipeline runs by route and outcome",
			},
			[]string{"route", "status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clinroute_pipeline_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),
		retrievalResults: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clinroute_retrieval_results",
				Help:    "Number of catalog records retrieved per handler stage",
				Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50, 100},
			},
			[]string{"stage"},
		),
	}
	m.registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.pipelineRuns,
		m.stageDuration,
		m.retrievalResults,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and durations labelled with the chi
// route pattern, so path parameters don't explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := wrapWriter(w)
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Start(_ string) {}

func (m *Metrics) StageCompleted(stage string, state core.PipelineState, elapsed time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	if stage != pipeline.StageSupervisor {
		m.retrievalResults.WithLabelValues(stage).Observe(float64(len(state.ToolsResults) + len(state.OrgsResults)))
	}
}

func (m *Metrics) StageFailed(stage string, _ error, elapsed time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (m *Metrics) Finish(state core.PipelineState, err error) {
	route := string(state.Route)
	if route == "" {
		route = "none"
	}
	status := "success"
	switch {
	case errors.Is(err, context.Canceled):
		status = "cancelled"
	case err != nil:
		status = "error"
	}
	m.pipelineRuns.WithLabelValues(route, status).Inc()
}
