package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/gatekeeper"
	"github.com/vyrodovalexey/edgegate/internal/health"
	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/server"
)

// Listener names.
const (
	listenerEdge    = "edge"
	listenerOrigin  = "origin"
	listenerMetrics = "metrics"
)

// writeTimeoutMargin is added to the longest upstream timeout of a
// listener so the server never cuts off a response the handler is still
// allowed to produce.
const writeTimeoutMargin = 5 * time.Second

// application holds all application components.
type application struct {
	config        *config.Config
	gatekeeper    *gatekeeper.Gatekeeper
	metrics       *observability.Metrics
	tracer        *observability.Tracer
	healthChecker *health.Checker
	listeners     *server.Group
}

// initApplication builds the gatekeeper and its listeners. Nothing is
// bound yet.
func initApplication(ctx context.Context, cfg *config.Config, logger observability.Logger) (*application, error) {
	metrics := observability.NewMetrics("edgegate")
	metrics.SetBuildInfo(version, gitCommit, buildTime)

	tracer, err := initTracer(cfg)
	if err != nil {
		return nil, err
	}

	opts := []gatekeeper.Option{
		gatekeeper.WithLogger(logger),
		gatekeeper.WithMetrics(metrics),
		gatekeeper.WithTracer(tracer),
	}
	if usesLambda(cfg) {
		client, err := newLambdaClient(ctx, cfg.Spec.Deployment.Region)
		if err != nil {
			return nil, err
		}
		opts = append(opts, gatekeeper.WithLambdaClient(client))
	}

	gk, err := gatekeeper.New(cfg, opts...)
	if err != nil {
		return nil, err
	}

	healthChecker := health.NewChecker(version, logger)
	healthChecker.RegisterCheck("gatekeeper", health.StaticCheck(health.Check{Status: health.StatusHealthy}))
	if addr, err := originAddress(gk.OriginURL()); err == nil {
		healthChecker.RegisterCheck("origin", health.TCPCheck(addr, health.DefaultCheckTimeout))
	}

	var listeners []*server.Listener
	if cfg.Spec.Observability.Metrics.Enabled {
		listeners = append(listeners, server.NewListener(listenerMetrics, cfg.Spec.Observability.Metrics.Listen,
			metricsMux(cfg.Spec.Observability.Metrics.Path, metrics, healthChecker),
			server.WithLogger(logger),
		))
	}
	// The group stops in reverse order: the edge first, the metrics and
	// health listener last.
	listeners = append(listeners,
		server.NewListener(listenerOrigin, cfg.Spec.Origin.Listen, gk.OriginHandler(),
			server.WithLogger(logger),
			server.WithWriteTimeout(originWriteTimeout(cfg)),
		),
		server.NewListener(listenerEdge, cfg.Spec.Edge.Listen, gk.EdgeHandler(),
			server.WithLogger(logger),
			server.WithWriteTimeout(cfg.Spec.Edge.OriginTimeout.OrDefault(config.DefaultOriginTimeout)+writeTimeoutMargin),
		),
	)

	return &application{
		config:        cfg,
		gatekeeper:    gk,
		metrics:       metrics,
		tracer:        tracer,
		healthChecker: healthChecker,
		listeners:     server.NewGroup(listeners...),
	}, nil
}

// initTracer initializes the tracer.
func initTracer(cfg *config.Config) (*observability.Tracer, error) {
	tracing := cfg.Spec.Observability.Tracing

	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  tracing.ServiceName,
		OTLPEndpoint: tracing.OTLPEndpoint,
		SamplingRate: tracing.SamplingRate,
		Enabled:      tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	return tracer, nil
}

func usesLambda(cfg *config.Config) bool {
	for _, fn := range cfg.Spec.Functions {
		if fn.Target == config.TargetLambda {
			return true
		}
	}
	return false
}

// newLambdaClient loads the default AWS credential chain for region.
func newLambdaClient(ctx context.Context, region string) (*lambda.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return lambda.NewFromConfig(awsCfg), nil
}

// metricsMux serves metrics and the health endpoints.
func metricsMux(path string, metrics *observability.Metrics, healthChecker *health.Checker) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())
	healthChecker.Register(mux)
	return mux
}

// originWriteTimeout covers an authorizer and an integration call in
// sequence.
func originWriteTimeout(cfg *config.Config) time.Duration {
	var longest time.Duration
	for _, fn := range cfg.Spec.Functions {
		longest = max(longest, fn.Timeout.OrDefault(config.DefaultFunctionTimeout))
	}
	return 2*longest + writeTimeoutMargin
}

// originAddress returns host:port of rawURL, filling in the scheme's
// default port.
func originAddress(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL %q has no host", rawURL)
	}

	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}
