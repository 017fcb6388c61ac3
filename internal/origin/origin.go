package origin

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/vyrodovalexey/edgegate/internal/authorizer"
	"github.com/vyrodovalexey/edgegate/internal/middleware"
	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

// DefaultMaxBodyBytes is the request body limit of the API layer.
const DefaultMaxBodyBytes = 10 << 20

// Config describes the API deployment the origin serves.
type Config struct {
	APIID        string
	Region       string
	AccountID    string
	Stage        string
	DomainName   string
	HeaderName   string
	MaxBodyBytes int64
}

// Origin is the API layer handler.
type Origin struct {
	cfg          Config
	routes       *RouteTable
	metrics      *observability.Metrics
	tracer       *observability.Tracer
	logger       observability.Logger
	now          func() time.Time
	newRequestID func() string
}

// Option configures an Origin.
type Option func(*Origin)

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Origin) {
		o.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(o *Origin) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l observability.Logger) Option {
	return func(o *Origin) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the time source used for request timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Origin) {
		o.now = now
	}
}

// New creates the API layer.
func New(cfg Config, routes *RouteTable, opts ...Option) (*Origin, error) {
	switch {
	case cfg.APIID == "":
		return nil, util.NewProvisioningError("origin.apiId", "api id is required")
	case cfg.Region == "":
		return nil, util.NewProvisioningError("origin.region", "region is required")
	case routes == nil:
		return nil, util.NewProvisioningError("origin.routes", "route table is required")
	}
	if err := util.ValidateSecretHeaderName(cfg.HeaderName); err != nil {
		return nil, util.NewProvisioningErrorWithCause("origin.headerName", "invalid identity header", err)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	o := &Origin{
		cfg:          cfg,
		routes:       routes,
		tracer:       observability.NopTracer(),
		logger:       observability.NopLogger(),
		now:          time.Now,
		newRequestID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// Routes returns the route table.
func (o *Origin) Routes() *RouteTable {
	return o.routes
}

// RouteArn returns the execute-api ARN of a route.
func (o *Origin) RouteArn(r *Route) string {
	return o.routeArn(r.Method, r.Path)
}

// Handler returns the origin wrapped in its listener middleware.
func (o *Origin) Handler() http.Handler {
	return middleware.Chain(o,
		middleware.Recovery(o.logger),
		middleware.RequestID(),
		middleware.Logging(o.logger, observability.ListenerOrigin),
		observability.TracingMiddleware(o.tracer, observability.ListenerOrigin),
		observability.MetricsMiddleware(o.metrics, observability.ListenerOrigin),
	)
}

// ServeHTTP implements http.Handler.
func (o *Origin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := o.logger.WithContext(ctx)

	route, ok := o.routes.Match(r.Method, r.URL.Path)
	if !ok {
		util.WriteJSONError(w, http.StatusNotFound, util.NotFoundBody)
		return
	}
	observability.RecordRoute(ctx, route.Key())

	// The body is not read for requests without an identity.
	identity := o.identityOf(r)
	if identity == "" {
		o.deny(w, log, route, authorizer.ReasonMissingHeader)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, o.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			util.WriteJSONError(w, http.StatusRequestEntityTooLarge, util.RequestTooLargeBody)
			return
		}
		util.WriteJSONError(w, http.StatusBadRequest, `{"message":"Bad Request"}`)
		return
	}

	requestID := o.newRequestID()
	event := o.buildEvent(r, route, body, requestID, o.now())

	authResp, err := route.Authorizer.Invoke(ctx, o.authorizerEvent(event, identity))
	if err != nil {
		o.writeInvokeError(w, log, route, util.StageAuthorizerEvaluated, err, http.StatusInternalServerError,
			util.InternalServerBody)
		return
	}

	decision := authorizer.DecisionFromSimpleResponse(authResp)
	if !decision.Allowed() {
		o.deny(w, log, route, decision.Reason())
		return
	}
	o.metrics.RecordAuthorizerDecision(true, "")

	event.RequestContext.Authorizer = &events.APIGatewayV2HTTPRequestContextAuthorizerDescription{
		Lambda: authResp.Context,
	}

	resp, err := route.Integration.Invoke(ctx, event)
	if err != nil {
		o.writeInvokeError(w, log, route, util.StageBackendInvoked, err, http.StatusBadGateway, util.BadGatewayBody)
		return
	}

	respBody, err := decodeResponse(resp)
	if err != nil {
		o.writeInvokeError(w, log, route, util.StageBackendInvoked, err, http.StatusBadGateway, util.BadGatewayBody)
		return
	}

	log.Debug("request stage",
		observability.String("stage", util.StageResponseReturned.String()),
		observability.String("route", route.Key()),
		observability.Int("status", resp.StatusCode),
	)

	w.Header().Set(headerAPIGWReqID, requestID)
	writeResponse(w, resp, respBody)
}

// deny answers with the generic denial. The integration is not invoked.
func (o *Origin) deny(w http.ResponseWriter, log observability.Logger, route *Route, reason authorizer.Reason) {
	o.metrics.RecordAuthorizerDecision(false, string(reason))
	o.metrics.RecordDenial(util.StageAuthorizerEvaluated)

	log.Debug("authorizer denied request",
		observability.String("stage", util.StageAuthorizerEvaluated.String()),
		observability.String("route", route.Key()),
		observability.String("reason", string(reason)),
	)

	util.WriteDenied(w)
}

// writeInvokeError maps an invocation failure to a status: timeouts are
// always 504, anything else gets the stage's status.
func (o *Origin) writeInvokeError(
	w http.ResponseWriter,
	log observability.Logger,
	route *Route,
	stage util.Stage,
	err error,
	status int,
	body string,
) {
	if errors.Is(err, util.ErrTimeout) {
		status, body = http.StatusGatewayTimeout, util.GatewayTimeoutBody
	}

	if stage == util.StageBackendInvoked {
		err = util.NewBackendError(route.Key(), status, err)
	}
	log.Error("function invocation failed",
		observability.String("stage", stage.String()),
		observability.String("route", route.Key()),
		observability.Int("status", status),
		observability.Error(err),
	)

	util.WriteJSONError(w, status, body)
}
