// Package metrics provides a Prometheus metrics registry for the gateway.
//
// All metrics are scoped to a private registry (not the global default) so
// they don't interfere with host-level metrics when embedded in other
// applications. The /metrics HTTP handler is exposed via Handler().
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Registry holds all exported metrics.
type Registry struct {
	reg *prometheus.Registry

	// gateway_inflight_requests
	inFlight prometheus.Gauge

	// gateway_http_requests_total{function,status}
	httpRequestsTotal *prometheus.CounterVec

	// gateway_http_request_duration_seconds{function}
	httpDuration *prometheus.HistogramVec

	// gateway_dispatch_total{provider,function,status}
	dispatchTotal *prometheus.CounterVec

	// gateway_dispatch_duration_seconds{provider,function,cache}
	dispatchDuration *prometheus.HistogramVec

	// gateway_upstream_attempts_total{provider,function,outcome}
	upstreamAttempts *prometheus.CounterVec

	// gateway_upstream_retries_total{provider,status}
	upstreamRetries *prometheus.CounterVec

	// gateway_cache_operations_total{cache,result} — cache is "request" or "hook"
	cacheOps *prometheus.CounterVec

	// gateway_hook_executions_total{phase,type,outcome}
	hookExecutions *prometheus.CounterVec

	// gateway_hook_duration_seconds{phase,type}
	hookDuration *prometheus.HistogramVec

	// gateway_ratelimit_total{result}
	rateLimitTotal *prometheus.CounterVec

	// gateway_tokens_total{provider,function,direction}
	tokensTotal *prometheus.CounterVec

	// gateway_tool_captures_total{outcome}
	toolCaptures *prometheus.CounterVec

	// gateway_log_drops_total
	logDrops prometheus.Counter

	// gateway_build_info{version}
	buildInfo *prometheus.GaugeVec

	metricsHandler fasthttp.RequestHandler
}

func New() *Registry {
	reg := prometheus.NewRegistry()

	// Baseline runtime metrics even with a private registry.
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	r := &Registry{
		reg: reg,

		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_inflight_requests",
			Help: "Current number of in-flight HTTP requests handled by the gateway",
		}),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_http_requests_total",
				Help: "Total number of HTTP requests handled by the gateway",
			},
			[]string{"function", "status"},
		),

		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds (end-to-end, includes hooks + cache + upstream)",
				Buckets: []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"function"},
		),

		dispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_dispatch_total",
				Help: "Total dispatched provider requests",
			},
			[]string{"provider", "function", "status"},
		),

		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_dispatch_duration_seconds",
				Help:    "Provider dispatch duration (gateway perspective) in seconds",
				Buckets: []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"provider", "function", "cache"},
		),

		upstreamAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_upstream_attempts_total",
				Help: "Total upstream provider attempts (includes retries)",
			},
			[]string{"provider", "function", "outcome"},
		),

		upstreamRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_upstream_retries_total",
				Help: "Retried upstream attempts by triggering status code",
			},
			[]string{"provider", "status"},
		),

		cacheOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_cache_operations_total",
				Help: "Request- and hook-cache consultations by result",
			},
			[]string{"cache", "result"},
		),

		hookExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_hook_executions_total",
				Help: "Hook executions by phase, provider type and outcome",
			},
			[]string{"phase", "type", "outcome"},
		),

		hookDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_hook_duration_seconds",
				Help:    "Hook execution duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"phase", "type"},
		),

		rateLimitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_ratelimit_total",
				Help: "Rate limit decisions",
			},
			[]string{"result"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_tokens_total",
				Help: "Token usage totals derived from upstream usage fields",
			},
			[]string{"provider", "function", "direction"},
		),

		toolCaptures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_tool_captures_total",
				Help: "Tool definitions captured from request bodies",
			},
			[]string{"outcome"},
		),

		logDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_log_drops_total",
			Help: "Dispatch log records dropped because the log queue was full",
		}),

		buildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gateway_build_info",
				Help: "Build information",
			},
			[]string{"version"},
		),
	}

	reg.MustRegister(
		r.inFlight,
		r.httpRequestsTotal,
		r.httpDuration,
		r.dispatchTotal,
		r.dispatchDuration,
		r.upstreamAttempts,
		r.upstreamRetries,
		r.cacheOps,
		r.hookExecutions,
		r.hookDuration,
		r.rateLimitTotal,
		r.tokensTotal,
		r.toolCaptures,
		r.logDrops,
		r.buildInfo,
	)

	h := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	r.metricsHandler = fasthttpadaptor.NewFastHTTPHandler(h)

	return r
}

func (r *Registry) IncInFlight() { r.inFlight.Inc() }
func (r *Registry) DecInFlight() { r.inFlight.Dec() }

// ObserveHTTP records end-to-end HTTP metrics for one handled request.
func (r *Registry) ObserveHTTP(function string, statusCode int, dur time.Duration) {
	status := strconv.Itoa(statusCode)
	r.httpRequestsTotal.WithLabelValues(function, status).Inc()
	r.httpDuration.WithLabelValues(function).Observe(dur.Seconds())
}

// ObserveDispatch records one completed provider dispatch.
func (r *Registry) ObserveDispatch(provider, function, cacheStatus string, statusCode int, dur time.Duration) {
	r.dispatchTotal.WithLabelValues(provider, function, strconv.Itoa(statusCode)).Inc()
	r.dispatchDuration.WithLabelValues(provider, function, cacheStatus).Observe(dur.Seconds())
}

// ObserveUpstreamAttempt records one upstream provider attempt.
func (r *Registry) ObserveUpstreamAttempt(provider, function, outcome string) {
	r.upstreamAttempts.WithLabelValues(provider, function, outcome).Inc()
}

// RecordRetry records a retried attempt and the status code that triggered it.
func (r *Registry) RecordRetry(provider string, statusCode int) {
	r.upstreamRetries.WithLabelValues(provider, strconv.Itoa(statusCode)).Inc()
}

// RecordCache records a cache consultation result. cache is "request" or
// "hook"; result is the lowercased cache status.
func (r *Registry) RecordCache(cache, result string) {
	r.cacheOps.WithLabelValues(cache, result).Inc()
}

// RecordHook records one hook execution.
func (r *Registry) RecordHook(phase, hookType, outcome string, dur time.Duration) {
	r.hookExecutions.WithLabelValues(phase, hookType, outcome).Inc()
	r.hookDuration.WithLabelValues(phase, hookType).Observe(dur.Seconds())
}

func (r *Registry) RecordRateLimit(result string) {
	r.rateLimitTotal.WithLabelValues(result).Inc()
}

func (r *Registry) AddTokens(provider, function string, inputTokens, outputTokens int) {
	if inputTokens > 0 {
		r.tokensTotal.WithLabelValues(provider, function, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		r.tokensTotal.WithLabelValues(provider, function, "output").Add(float64(outputTokens))
	}
}

func (r *Registry) RecordToolCapture(outcome string) {
	r.toolCaptures.WithLabelValues(outcome).Inc()
}

func (r *Registry) RecordLogDrop() {
	r.logDrops.Inc()
}

func (r *Registry) SetBuildInfo(version string) {
	// Gauge is used so the time series always exists.
	r.buildInfo.WithLabelValues(version).Set(1)
}

func (r *Registry) Handler() fasthttp.RequestHandler {
	return r.metricsHandler
}

func (r *Registry) PromRegistry() *prometheus.Registry { return r.reg }
