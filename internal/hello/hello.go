// Package hello implements the hello backend function.
package hello

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/caarlos0/env/v11"

	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

// principalKey is the authorizer context key carrying the principal.
const principalKey = "principal"

// Config is the hello function configuration.
type Config struct {
	Region    string `env:"REGION"`
	AccountID string `env:"ACCOUNT_ID"`
	Message   string `env:"HELLO_MESSAGE" envDefault:"Hello from edgegate"`
}

// LoadConfig reads the configuration from the process environment.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, util.NewProvisioningErrorWithCause("hello.env", "invalid environment", err)
	}
	return cfg, nil
}

// ConfigFromEnvironment reads the configuration from the given variables.
func ConfigFromEnvironment(environ map[string]string) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: environ})
	if err != nil {
		return Config{}, util.NewProvisioningErrorWithCause("hello.env", "invalid environment", err)
	}
	return cfg, nil
}

// Response is the JSON body returned by the function.
type Response struct {
	Message   string `json:"message"`
	Path      string `json:"path"`
	Method    string `json:"method"`
	Region    string `json:"region,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Principal string `json:"principal,omitempty"`
}

// Function is the hello backend.
type Function struct {
	cfg    Config
	logger observability.Logger
}

// New creates the hello function.
func New(cfg Config, logger observability.Logger) *Function {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Function{cfg: cfg, logger: logger}
}

// Handle answers an HTTP API request with a greeting.
func (f *Function) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if err := ctx.Err(); err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}

	body, err := json.Marshal(Response{
		Message:   f.cfg.Message,
		Path:      req.RequestContext.HTTP.Path,
		Method:    req.RequestContext.HTTP.Method,
		Region:    f.cfg.Region,
		RequestID: req.RequestContext.RequestID,
		Principal: principalOf(req),
	})
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, fmt.Errorf("failed to encode response: %w", err)
	}

	f.logger.WithContext(ctx).Debug("hello invoked",
		observability.String("request_id", req.RequestContext.RequestID),
		observability.String("route_key", req.RouteKey),
	)

	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}

func principalOf(req events.APIGatewayV2HTTPRequest) string {
	if req.RequestContext.Authorizer == nil {
		return ""
	}
	p, _ := req.RequestContext.Authorizer.Lambda[principalKey].(string)
	return p
}
