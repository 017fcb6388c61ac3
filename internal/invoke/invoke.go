package invoke

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

// DefaultTimeout is the invocation deadline when none is configured.
const DefaultTimeout = time.Minute

// Role is what a function does for a route.
type Role string

// Function roles.
const (
	RoleAuthorizer  Role = "authorizer"
	RoleIntegration Role = "integration"
)

// Target is where a function runs.
type Target string

// Function targets.
const (
	TargetLocal  Target = "local"
	TargetLambda Target = "lambda"
)

// ErrInvocationTimeout is returned when a function does not answer
// before its deadline.
var ErrInvocationTimeout = fmt.Errorf("function invocation timed out: %w", util.ErrTimeout)

// FunctionError reports a function that failed: it returned an error,
// panicked, or the remote runtime reported an unhandled error.
type FunctionError struct {
	Function string
	Type     string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *FunctionError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("function %s failed (%s): %s", e.Function, e.Type, e.Message)
	}
	return fmt.Sprintf("function %s failed: %s", e.Function, e.Message)
}

// Unwrap returns the underlying error.
func (e *FunctionError) Unwrap() error {
	return e.Cause
}

// Handler is a function entrypoint in the aws-lambda-go handler shape.
type Handler[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// AuthorizerHandler is the entrypoint of a REQUEST authorizer with
// simple responses.
type AuthorizerHandler = Handler[
	events.APIGatewayV2CustomAuthorizerV2Request,
	events.APIGatewayV2CustomAuthorizerSimpleResponse,
]

// IntegrationHandler is the entrypoint of an HTTP API integration.
type IntegrationHandler = Handler[events.APIGatewayV2HTTPRequest, events.APIGatewayV2HTTPResponse]

// Invoker invokes one function.
type Invoker[Req, Resp any] interface {
	Invoke(ctx context.Context, req Req) (Resp, error)
	// Identifier names the function for operators: "local:<name>" or
	// the remote function name or ARN.
	Identifier() string
}

// AuthorizerInvoker invokes an authorizer function.
type AuthorizerInvoker = Invoker[
	events.APIGatewayV2CustomAuthorizerV2Request,
	events.APIGatewayV2CustomAuthorizerSimpleResponse,
]

// IntegrationInvoker invokes an integration function.
type IntegrationInvoker = Invoker[events.APIGatewayV2HTTPRequest, events.APIGatewayV2HTTPResponse]

// Option configures an invoker.
type Option func(*settings)

// WithTimeout sets the per-invocation deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(s *settings) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l observability.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// settings is shared by both invoker kinds.
type settings struct {
	name    string
	role    Role
	timeout time.Duration
	metrics *observability.Metrics
	tracer  *observability.Tracer
	logger  observability.Logger
}

func newSettings(name string, role Role, opts []Option) settings {
	s := settings{
		name:    name,
		role:    role,
		timeout: DefaultTimeout,
		tracer:  observability.NopTracer(),
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s *settings) stage() util.Stage {
	if s.role == RoleAuthorizer {
		return util.StageAuthorizerEvaluated
	}
	return util.StageBackendInvoked
}

// begin opens the invocation span.
func (s *settings) begin(ctx context.Context, target Target) (context.Context, trace.Span) {
	return s.tracer.StartStageSpan(ctx, s.stage(),
		attribute.String("faas.invoked_name", s.name),
		attribute.String("edgegate.function.role", string(s.role)),
		attribute.String("edgegate.function.target", string(target)),
	)
}

// end records the outcome of an invocation.
func (s *settings) end(ctx context.Context, span trace.Span, start time.Time, err error) {
	duration := time.Since(start)
	outcome := observability.OutcomeSuccess

	switch {
	case errors.Is(err, ErrInvocationTimeout):
		outcome = observability.OutcomeTimeout
	case err != nil:
		outcome = observability.OutcomeError
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		s.logger.WithContext(ctx).Warn("function invocation failed",
			observability.String("function", s.name),
			observability.String("role", string(s.role)),
			observability.String("outcome", outcome),
			observability.Duration("duration", duration),
			observability.Error(err),
		)
	}
	span.End()

	s.metrics.RecordInvocation(s.name, string(s.role), outcome, duration)
}
