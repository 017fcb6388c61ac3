package edge

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vyrodovalexey/edgegate/internal/firewall"
	"github.com/vyrodovalexey/edgegate/internal/middleware"
	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/secret"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

const (
	// DefaultOriginTimeout bounds one origin round trip.
	DefaultOriginTimeout = 30 * time.Second

	// ViaValue is added to every response the edge returns.
	ViaValue = "1.1 edgegate"

	// defaultBehavior is the route label of edge requests.
	defaultBehavior = "default"

	headerVia = "Via"
)

// Config configures the edge.
type Config struct {
	OriginURL     string
	HeaderName    string
	Secret        secret.Secret
	OriginTimeout time.Duration
}

// Edge is the distribution handler.
type Edge struct {
	cfg      Config
	target   *url.URL
	firewall *firewall.Firewall
	proxy    *httputil.ReverseProxy
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	logger   observability.Logger
}

// Option configures an Edge.
type Option func(*Edge)

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Edge) {
		e.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(e *Edge) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l observability.Logger) Option {
	return func(e *Edge) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates the edge. The firewall, the origin URL, the header name and
// the secret are all required.
func New(cfg Config, fw *firewall.Firewall, opts ...Option) (*Edge, error) {
	if fw == nil {
		return nil, util.NewProvisioningError("edge.firewall", "firewall is required")
	}
	if err := util.ValidateURL(cfg.OriginURL); err != nil {
		return nil, util.NewProvisioningErrorWithCause("edge.originURL", "invalid origin URL", err)
	}
	if err := util.ValidateSecretHeaderName(cfg.HeaderName); err != nil {
		return nil, util.NewProvisioningErrorWithCause("edge.headerName", "invalid secret header", err)
	}
	if cfg.Secret.IsZero() {
		return nil, util.NewProvisioningError("edge.secret", "secret is required")
	}
	if cfg.OriginTimeout <= 0 {
		cfg.OriginTimeout = DefaultOriginTimeout
	}

	target, err := url.Parse(cfg.OriginURL)
	if err != nil {
		return nil, util.NewProvisioningErrorWithCause("edge.originURL", "invalid origin URL", err)
	}

	e := &Edge{
		cfg:      cfg,
		target:   target,
		firewall: fw,
		tracer:   observability.NopTracer(),
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.proxy = &httputil.ReverseProxy{
		Rewrite:        e.rewrite,
		FlushInterval:  -1,
		ErrorHandler:   e.errorHandler,
		ModifyResponse: e.modifyResponse,
	}

	return e, nil
}

// OriginURL returns the origin the edge forwards to.
func (e *Edge) OriginURL() string {
	return e.target.String()
}

// Handler returns the edge with its listener middleware. The firewall
// runs before anything that touches the request. Edge headers are set on
// every response, so a firewall denial and a proxied origin denial look
// the same to the client.
func (e *Edge) Handler() http.Handler {
	return middleware.Chain(http.HandlerFunc(e.forward),
		middleware.Recovery(e.logger),
		via,
		middleware.RequestID(),
		middleware.Logging(e.logger, observability.ListenerEdge),
		observability.TracingMiddleware(e.tracer, observability.ListenerEdge),
		observability.MetricsMiddleware(e.metrics, observability.ListenerEdge),
		e.firewall.Middleware,
	)
}

// forward proxies a request that passed the firewall.
func (e *Edge) forward(w http.ResponseWriter, r *http.Request) {
	observability.RecordRoute(r.Context(), defaultBehavior)

	ctx, cancel := context.WithTimeout(r.Context(), e.cfg.OriginTimeout)
	defer cancel()

	e.proxy.ServeHTTP(w, r.WithContext(ctx))
}

// rewrite builds the origin request. Client-supplied values of the
// secret header are dropped before the secret is set.
func (e *Edge) rewrite(pr *httputil.ProxyRequest) {
	pr.SetURL(e.target)
	pr.SetXForwarded()

	clientIP := util.ClientIPFromContext(pr.In.Context())
	ctx, span := e.tracer.StartStageSpan(pr.In.Context(), util.StageHeaderInjected,
		attribute.String("edgegate.header", e.cfg.HeaderName),
		attribute.String("edgegate.client_ip", clientIP),
		attribute.Bool("edgegate.header.client_supplied", len(pr.In.Header.Values(e.cfg.HeaderName)) > 0),
	)
	defer span.End()

	pr.Out.Header.Del(e.cfg.HeaderName)
	pr.Out.Header.Set(e.cfg.HeaderName, e.cfg.Secret.Value())

	e.tracer.InjectTraceContext(ctx, pr.Out.Header)

	e.logger.WithContext(ctx).Debug("request stage",
		observability.String("stage", util.StageHeaderInjected.String()),
		observability.String("path", pr.In.URL.Path),
		observability.String("client_ip", clientIP),
	)
}

// modifyResponse drops the origin's X-Request-ID so the edge's own value
// is the only one returned.
func (e *Edge) modifyResponse(resp *http.Response) error {
	resp.Header.Del(middleware.HeaderXRequestID)
	return nil
}

func via(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add(headerVia, ViaValue)
		next.ServeHTTP(w, r)
	})
}
