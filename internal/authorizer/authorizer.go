package authorizer

import (
	"context"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/secret"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

// Authorizer evaluates the edge secret header.
type Authorizer struct {
	secret     secret.Secret
	headerName string
	principal  string
	logger     observability.Logger
}

// Option configures an Authorizer.
type Option func(*Authorizer)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(a *Authorizer) {
		a.logger = logger
	}
}

// New creates an Authorizer. An empty secret is a provisioning error;
// the authorizer never falls back to allowing everything.
func New(cfg Config, opts ...Option) (*Authorizer, error) {
	if cfg.Secret == "" {
		return nil, util.NewProvisioningError("authorizer.secret", "secret is required")
	}
	if err := util.ValidateSecretHeaderName(cfg.HeaderName); err != nil {
		return nil, util.NewProvisioningErrorWithCause("authorizer.headerName", "invalid identity header", err)
	}

	a := &Authorizer{
		secret:     secret.FromValue(cfg.Secret),
		headerName: cfg.HeaderName,
		principal:  cfg.Principal,
		logger:     observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Evaluate decides on a request. The first non-empty identity source
// wins; the named header is consulted only when none was extracted.
func (a *Authorizer) Evaluate(identitySource []string, headers map[string]string) Decision {
	if a == nil || a.secret.IsZero() {
		return Deny(ReasonNotConfigured)
	}

	got := firstIdentitySource(identitySource)
	if got == "" {
		got = lookupHeader(headers, a.headerName)
	}

	switch {
	case got == "":
		return Deny(ReasonMissingHeader)
	case a.secret.Equal(got):
		return Allow(a.principal)
	default:
		return Deny(ReasonMismatch)
	}
}

// Handle is the function entrypoint for HTTP API REQUEST authorizers
// with simple responses.
func (a *Authorizer) Handle(
	ctx context.Context,
	req events.APIGatewayV2CustomAuthorizerV2Request,
) (events.APIGatewayV2CustomAuthorizerSimpleResponse, error) {
	if err := ctx.Err(); err != nil {
		return events.APIGatewayV2CustomAuthorizerSimpleResponse{}, err
	}

	decision := a.Evaluate(req.IdentitySource, req.Headers)

	a.logger.WithContext(ctx).Debug("authorizer decision",
		observability.String("route_arn", req.RouteArn),
		observability.String("request_id", req.RequestContext.RequestID),
		observability.Bool("allowed", decision.Allowed()),
		observability.String("reason", string(decision.Reason())),
	)

	return decision.SimpleResponse(), nil
}

func firstIdentitySource(values []string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func lookupHeader(headers map[string]string, name string) string {
	if v, ok := headers[strings.ToLower(name)]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
