package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vyrodovalexey/edgegate/internal/util"
)

// unmatchedRoute is the label value used for requests that do not
// match any configured route, ensuring bounded cardinality.
const unmatchedRoute = "unmatched"

// Listener label values.
const (
	ListenerEdge   = "edge"
	ListenerOrigin = "origin"
)

// Invocation outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Metrics holds the Prometheus metrics of the edge and the origin.
type Metrics struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	activeRequests      *prometheus.GaugeVec
	firewallVerdicts    *prometheus.CounterVec
	authorizerDecisions *prometheus.CounterVec
	denials             *prometheus.CounterVec
	invocations         *prometheus.CounterVec
	invocationDuration  *prometheus.HistogramVec
	buildInfo           *prometheus.GaugeVec
	startTime           prometheus.Gauge
	registry            *prometheus.Registry
}

// NewMetrics creates a new Metrics instance backed by its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "edgegate"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests per listener",
		},
		[]string{"listener", "method", "route", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets: []float64{
				.001, .005, .01, .025, .05,
				.1, .25, .5, 1, 2.5, 5, 10, 30, 60,
			},
		},
		[]string{"listener", "method", "route"},
	)

	m.activeRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_requests",
			Help:      "Number of in-flight HTTP requests per listener",
		},
		[]string{"listener"},
	)

	m.firewallVerdicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "firewall_verdicts_total",
			Help:      "Firewall verdicts at the edge (pass, reject)",
		},
		[]string{"verdict"},
	)

	m.authorizerDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorizer_decisions_total",
			Help:      "Authorizer decisions at the origin",
		},
		[]string{"decision", "reason"},
	)

	m.denials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "denials_total",
			Help:      "Requests denied, by the stage that denied them",
		},
		[]string{"stage"},
	)

	m.invocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "function_invocations_total",
			Help:      "Function invocations by function, role and outcome",
		},
		[]string{"function", "role", "outcome"},
	)

	m.invocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "function_duration_seconds",
			Help:      "Function invocation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"function", "role"},
	)

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information of edgegate",
		},
		[]string{"version", "commit", "build_time"},
	)

	m.startTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "start_time_seconds",
			Help:      "Start time of edgegate in unix seconds",
		},
	)

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.activeRequests,
		m.firewallVerdicts,
		m.authorizerDecisions,
		m.denials,
		m.invocations,
		m.invocationDuration,
		m.buildInfo,
		m.startTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.startTime.SetToCurrentTime()

	return m
}

// RecordRequest records a completed HTTP request on a listener.
// The route should be the matched route key, not the raw path.
func (m *Metrics) RecordRequest(listener, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(listener, method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(listener, method, route).Observe(duration.Seconds())
}

// RecordFirewallVerdict records a firewall verdict.
func (m *Metrics) RecordFirewallVerdict(verdict string) {
	if m == nil {
		return
	}
	m.firewallVerdicts.WithLabelValues(verdict).Inc()
}

// RecordAuthorizerDecision records an authorizer decision.
func (m *Metrics) RecordAuthorizerDecision(allowed bool, reason string) {
	if m == nil {
		return
	}
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	m.authorizerDecisions.WithLabelValues(decision, reason).Inc()
}

// RecordDenial records a request denied at the given stage.
func (m *Metrics) RecordDenial(stage util.Stage) {
	if m == nil {
		return
	}
	m.denials.WithLabelValues(stage.String()).Inc()
}

// RecordInvocation records a function invocation.
func (m *Metrics) RecordInvocation(function, role, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(function, role, outcome).Inc()
	m.invocationDuration.WithLabelValues(function, role).Observe(duration.Seconds())
}

// SetBuildInfo sets the build information metric.
func (m *Metrics) SetBuildInfo(version, commit, buildTime string) {
	if m == nil {
		return
	}
	m.buildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		m.registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MetricsMiddleware returns a middleware that records request metrics for
// the named listener. The route label comes from the request context
// (set by the origin router), so cardinality stays bounded.
func MetricsMiddleware(metrics *Metrics, listener string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := util.NewStatusCapturingResponseWriter(w)

			metrics.activeRequests.WithLabelValues(listener).Inc()
			defer metrics.activeRequests.WithLabelValues(listener).Dec()

			route := &routeRecorder{}
			next.ServeHTTP(rw, r.WithContext(withRouteRecorder(r.Context(), route)))

			name := route.name
			if name == "" {
				name = unmatchedRoute
			}
			metrics.RecordRequest(listener, r.Method, name, rw.StatusCode, time.Since(start))
		})
	}
}
