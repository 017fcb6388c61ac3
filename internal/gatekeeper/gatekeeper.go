package gatekeeper

import (
	"fmt"
	"net"
	"net/http"
	"slices"

	"github.com/aws/aws-lambda-go/events"
	"github.com/samber/lo"

	"github.com/vyrodovalexey/edgegate/internal/authorizer"
	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/edge"
	"github.com/vyrodovalexey/edgegate/internal/firewall"
	"github.com/vyrodovalexey/edgegate/internal/hello"
	"github.com/vyrodovalexey/edgegate/internal/invoke"
	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/origin"
	"github.com/vyrodovalexey/edgegate/internal/secret"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

// Outputs are the values surfaced to the operator after a build.
type Outputs struct {
	OriginEndpoint string            `json:"originEndpoint" yaml:"originEndpoint"`
	EdgeURL        string            `json:"edgeURL" yaml:"edgeURL"`
	Routes         []RouteOutput     `json:"routes" yaml:"routes"`
	Functions      map[string]string `json:"functions" yaml:"functions"`
}

// RouteOutput is the invoke URL of one route on the origin and on the edge.
type RouteOutput struct {
	Key       string `json:"key" yaml:"key"`
	OriginURL string `json:"originURL" yaml:"originURL"`
	EdgeURL   string `json:"edgeURL" yaml:"edgeURL"`
}

// Gatekeeper holds the built edge and origin.
type Gatekeeper struct {
	cfg     *config.Config
	logger  observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer

	lambdaClient         invoke.LambdaClient
	authorizerOverrides  map[string]invoke.AuthorizerHandler
	integrationOverrides map[string]invoke.IntegrationHandler

	firewall      *firewall.Firewall
	secret        secret.Secret
	authorizers   map[string]invoke.AuthorizerInvoker
	integrations  map[string]invoke.IntegrationInvoker
	origin        *origin.Origin
	edge          *edge.Edge
	edgeHandler   http.Handler
	originHandler http.Handler
	outputs       Outputs
}

// Option configures a Gatekeeper.
type Option func(*Gatekeeper)

// WithLogger sets the logger.
func WithLogger(l observability.Logger) Option {
	return func(g *Gatekeeper) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithMetrics sets the metrics sink shared by every component.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gatekeeper) {
		g.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(g *Gatekeeper) {
		if t != nil {
			g.tracer = t
		}
	}
}

// WithAuthorizerHandler runs h in place of the built-in authorizer for
// the local function called name.
func WithAuthorizerHandler(name string, h invoke.AuthorizerHandler) Option {
	return func(g *Gatekeeper) {
		g.authorizerOverrides[name] = h
	}
}

// WithIntegrationHandler runs h in place of the built-in backend for the
// local function called name.
func WithIntegrationHandler(name string, h invoke.IntegrationHandler) Option {
	return func(g *Gatekeeper) {
		g.integrationOverrides[name] = h
	}
}

// WithLambdaClient sets the client used for functions with the lambda
// target.
func WithLambdaClient(c invoke.LambdaClient) Option {
	return func(g *Gatekeeper) {
		g.lambdaClient = c
	}
}

// New validates cfg and builds the gatekeeper. Any failure is a
// provisioning error.
func New(cfg *config.Config, opts ...Option) (*Gatekeeper, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	g := &Gatekeeper{
		cfg:                  cfg,
		logger:               observability.NopLogger(),
		tracer:               observability.NopTracer(),
		authorizerOverrides:  make(map[string]invoke.AuthorizerHandler),
		integrationOverrides: make(map[string]invoke.IntegrationHandler),
		authorizers:          make(map[string]invoke.AuthorizerInvoker),
		integrations:         make(map[string]invoke.IntegrationInvoker),
	}
	for _, opt := range opts {
		opt(g)
	}

	p := &plan{}
	p.add(stepFirewall, g.buildFirewall)
	p.add(stepSecret, g.buildSecret)
	p.add(stepFunctions, g.buildFunctions, stepSecret)
	p.add(stepOrigin, g.buildOrigin, stepFunctions)
	p.add(stepEdge, g.buildEdge, stepFirewall, stepSecret, stepOrigin)
	p.add(stepOutputs, g.buildOutputs, stepOrigin, stepEdge)

	if err := p.execute(); err != nil {
		return nil, err
	}

	g.logger.Info("gatekeeper built",
		observability.String("name", cfg.Metadata.Name),
		observability.String("origin_endpoint", g.outputs.OriginEndpoint),
		observability.String("edge_url", g.outputs.EdgeURL),
		observability.Any("functions", g.outputs.Functions),
	)

	return g, nil
}

// EdgeHandler returns the handler of the edge listener.
func (g *Gatekeeper) EdgeHandler() http.Handler {
	return g.edgeHandler
}

// OriginHandler returns the handler of the origin listener.
func (g *Gatekeeper) OriginHandler() http.Handler {
	return g.originHandler
}

// Outputs returns the operator outputs.
func (g *Gatekeeper) Outputs() Outputs {
	out := g.outputs
	out.Routes = slices.Clone(g.outputs.Routes)
	out.Functions = lo.Assign(g.outputs.Functions)
	return out
}

// Secret returns the shared secret the edge injects.
func (g *Gatekeeper) Secret() secret.Secret {
	return g.secret
}

// OriginURL returns the URL the edge forwards to.
func (g *Gatekeeper) OriginURL() string {
	return g.edge.OriginURL()
}

// Firewall returns the edge firewall.
func (g *Gatekeeper) Firewall() *firewall.Firewall {
	return g.firewall
}

func (g *Gatekeeper) buildFirewall() error {
	spec := g.cfg.Spec.Firewall

	entries, err := firewall.ParseEntries(spec.AllowList)
	if err != nil {
		return err
	}
	if spec.AllowListFile != "" {
		fromFile, err := firewall.LoadAllowListFile(spec.AllowListFile)
		if err != nil {
			return err
		}
		entries = append(entries, fromFile...)
	}

	list, err := firewall.NewAllowList(entries)
	if err != nil {
		return err
	}

	g.firewall, err = firewall.New(list,
		firewall.WithTrustedProxies(g.cfg.Spec.Edge.TrustedProxies),
		firewall.WithMetrics(g.metrics),
		firewall.WithTracer(g.tracer),
		firewall.WithLogger(g.logger),
	)
	return err
}

func (g *Gatekeeper) buildSecret() error {
	dep := g.cfg.Spec.Deployment
	hs := g.cfg.Spec.Handshake

	s, err := secret.Derive(secret.Params{
		APIID:  dep.APIID,
		Region: dep.Region,
		Mode:   hs.Derivation,
		Key:    []byte(hs.DerivationKey),
	})
	if err != nil {
		return err
	}
	g.secret = s
	return nil
}

func (g *Gatekeeper) buildFunctions() error {
	for name := range g.authorizerOverrides {
		if fn, ok := g.cfg.Spec.Function(name); !ok || fn.Role != config.RoleAuthorizer {
			return util.NewProvisioningError("gatekeeper.overrides", fmt.Sprintf("no authorizer function %q", name))
		}
	}
	for name := range g.integrationOverrides {
		if fn, ok := g.cfg.Spec.Function(name); !ok || fn.Role != config.RoleIntegration {
			return util.NewProvisioningError("gatekeeper.overrides", fmt.Sprintf("no integration function %q", name))
		}
	}

	for i, fn := range g.cfg.Spec.Functions {
		field := fmt.Sprintf("spec.functions[%d]", i)
		opts := []invoke.Option{
			invoke.WithTimeout(fn.Timeout.OrDefault(config.DefaultFunctionTimeout)),
			invoke.WithMetrics(g.metrics),
			invoke.WithTracer(g.tracer),
			invoke.WithLogger(g.logger),
		}

		if fn.Target == config.TargetLambda && g.lambdaClient == nil {
			return util.NewProvisioningError(field,
				fmt.Sprintf("function %s targets lambda but no Lambda client is configured", fn.Name))
		}

		switch fn.Role {
		case config.RoleAuthorizer:
			inv, err := g.authorizerInvoker(fn, opts)
			if err != nil {
				return err
			}
			g.authorizers[fn.Name] = inv
		case config.RoleIntegration:
			inv, err := g.integrationInvoker(fn, opts)
			if err != nil {
				return err
			}
			g.integrations[fn.Name] = inv
		default:
			return util.NewProvisioningError(field, fmt.Sprintf("unknown role %q", fn.Role))
		}
	}
	return nil
}

func (g *Gatekeeper) authorizerInvoker(fn config.FunctionConfig, opts []invoke.Option) (invoke.AuthorizerInvoker, error) {
	if fn.Target == config.TargetLambda {
		return invoke.NewLambda[
			events.APIGatewayV2CustomAuthorizerV2Request,
			events.APIGatewayV2CustomAuthorizerSimpleResponse,
		](g.lambdaClient, fn.Name, invoke.RoleAuthorizer, fn.FunctionName, opts...), nil
	}

	handler, ok := g.authorizerOverrides[fn.Name]
	if !ok {
		cfg, err := authorizer.ConfigFromEnvironment(g.functionEnvironment(fn, map[string]string{
			authorizer.EnvSecret:         g.secret.Value(),
			authorizer.EnvIdentityHeader: g.cfg.Spec.Handshake.HeaderName,
		}))
		if err != nil {
			return nil, err
		}
		a, err := authorizer.New(cfg, authorizer.WithLogger(g.logger))
		if err != nil {
			return nil, err
		}
		handler = a.Handle
	}

	return invoke.NewLocal(fn.Name, invoke.RoleAuthorizer, handler, opts...), nil
}

func (g *Gatekeeper) integrationInvoker(fn config.FunctionConfig, opts []invoke.Option) (invoke.IntegrationInvoker, error) {
	if fn.Target == config.TargetLambda {
		return invoke.NewLambda[
			events.APIGatewayV2HTTPRequest,
			events.APIGatewayV2HTTPResponse,
		](g.lambdaClient, fn.Name, invoke.RoleIntegration, fn.FunctionName, opts...), nil
	}

	handler, ok := g.integrationOverrides[fn.Name]
	if !ok {
		cfg, err := hello.ConfigFromEnvironment(g.functionEnvironment(fn, nil))
		if err != nil {
			return nil, err
		}
		handler = hello.New(cfg, g.logger).Handle
	}

	return invoke.NewLocal(fn.Name, invoke.RoleIntegration, handler, opts...), nil
}

// functionEnvironment merges the function's configured variables with the
// provisioned ones. Provisioned values win.
func (g *Gatekeeper) functionEnvironment(fn config.FunctionConfig, provisioned map[string]string) map[string]string {
	dep := g.cfg.Spec.Deployment
	return lo.Assign(
		fn.Environment,
		map[string]string{
			authorizer.EnvRegion:    dep.Region,
			authorizer.EnvAccountID: dep.AccountID,
		},
		provisioned,
	)
}

func (g *Gatekeeper) buildOrigin() error {
	routes := make([]origin.Route, 0, len(g.cfg.Spec.Routes))
	for i, rc := range g.cfg.Spec.Routes {
		field := fmt.Sprintf("spec.routes[%d]", i)

		auth, ok := g.authorizers[rc.Authorizer]
		if !ok {
			return util.NewProvisioningError(field+".authorizer", fmt.Sprintf("no authorizer function %q", rc.Authorizer))
		}
		integration, ok := g.integrations[rc.Integration]
		if !ok {
			return util.NewProvisioningError(field+".integration", fmt.Sprintf("no integration function %q", rc.Integration))
		}

		routes = append(routes, origin.Route{
			Method:      rc.Method,
			Path:        rc.Path,
			Authorizer:  auth,
			Integration: integration,
		})
	}

	table, err := origin.NewRouteTable(routes)
	if err != nil {
		return err
	}

	spec := g.cfg.Spec
	g.origin, err = origin.New(origin.Config{
		APIID:        spec.Deployment.APIID,
		Region:       spec.Deployment.Region,
		AccountID:    spec.Deployment.AccountID,
		Stage:        spec.Origin.Stage,
		DomainName:   spec.Origin.DomainName,
		HeaderName:   spec.Handshake.HeaderName,
		MaxBodyBytes: spec.Origin.MaxBodyBytes,
	}, table,
		origin.WithMetrics(g.metrics),
		origin.WithTracer(g.tracer),
		origin.WithLogger(g.logger),
	)
	if err != nil {
		return err
	}

	g.originHandler = g.origin.Handler()
	return nil
}

func (g *Gatekeeper) buildEdge() error {
	spec := g.cfg.Spec

	originURL := spec.Edge.OriginURL
	if originURL == "" {
		originURL = localURL(spec.Origin.Listen)
	}

	var err error
	g.edge, err = edge.New(edge.Config{
		OriginURL:     originURL,
		HeaderName:    spec.Handshake.HeaderName,
		Secret:        g.secret,
		OriginTimeout: spec.Edge.OriginTimeout.OrDefault(config.DefaultOriginTimeout),
	}, g.firewall,
		edge.WithMetrics(g.metrics),
		edge.WithTracer(g.tracer),
		edge.WithLogger(g.logger),
	)
	if err != nil {
		return err
	}

	g.edgeHandler = g.edge.Handler()
	return nil
}

func (g *Gatekeeper) buildOutputs() error {
	spec := g.cfg.Spec

	functions := make(map[string]string, len(g.authorizers)+len(g.integrations))
	for name, inv := range g.authorizers {
		functions[name] = inv.Identifier()
	}
	for name, inv := range g.integrations {
		functions[name] = inv.Identifier()
	}

	originEndpoint := publicURL(spec.Origin.DomainName, spec.Origin.Listen)
	edgeURL := publicURL(spec.Edge.DomainName, spec.Edge.Listen)

	g.outputs = Outputs{
		OriginEndpoint: originEndpoint,
		EdgeURL:        edgeURL,
		Routes: lo.Map(spec.Routes, func(rc config.RouteConfig, _ int) RouteOutput {
			return RouteOutput{
				Key:       rc.Key(),
				OriginURL: originEndpoint + rc.Path,
				EdgeURL:   edgeURL + rc.Path,
			}
		}),
		Functions: functions,
	}
	return nil
}

// publicURL is https://domain when a domain is configured and the local
// listener URL otherwise.
func publicURL(domain, listen string) string {
	if domain != "" {
		return "https://" + domain
	}
	return localURL(listen)
}

// localURL turns a listen address into a URL reachable from this host.
func localURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
