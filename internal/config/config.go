package config

import "time"

// Config kinds and API versions.
const (
	APIVersion = "edgegate.io/v1"
	Kind       = "EdgeGatekeeper"
)

// Function roles.
const (
	RoleAuthorizer  = "authorizer"
	RoleIntegration = "integration"
)

// Function targets.
const (
	TargetLocal  = "local"
	TargetLambda = "lambda"
)

// Secret derivation modes.
const (
	DerivationConcat = "concat"
	DerivationHKDF   = "hkdf"
)

// Defaults.
const (
	DefaultEdgeListen      = ":8080"
	DefaultOriginListen    = ":8081"
	DefaultMetricsListen   = ":9090"
	DefaultMetricsPath     = "/metrics"
	DefaultStage           = "$default"
	DefaultHeaderName      = "X-Cfn-Header"
	DefaultAccountID       = "000000000000"
	DefaultRouteMethod     = "GET"
	DefaultServiceName     = "edgegate"
	DefaultFunctionTimeout = time.Minute
	DefaultOriginTimeout   = 30 * time.Second
	DefaultMaxBodyBytes    = 10 << 20
)

// Config is the root edgegate configuration document.
type Config struct {
	APIVersion string   `yaml:"apiVersion" json:"apiVersion" validate:"required,eq=edgegate.io/v1"`
	Kind       string   `yaml:"kind" json:"kind" validate:"required,eq=EdgeGatekeeper"`
	Metadata   Metadata `yaml:"metadata" json:"metadata"`
	Spec       Spec     `yaml:"spec" json:"spec"`
}

// Metadata names the deployment.
type Metadata struct {
	Name   string            `yaml:"name" json:"name" validate:"required"`
	Labels map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// Spec holds everything needed to build one gatekeeper.
type Spec struct {
	Deployment    Deployment          `yaml:"deployment" json:"deployment"`
	Edge          EdgeConfig          `yaml:"edge" json:"edge"`
	Origin        OriginConfig        `yaml:"origin" json:"origin"`
	Firewall      FirewallConfig      `yaml:"firewall" json:"firewall"`
	Handshake     HandshakeConfig     `yaml:"handshake" json:"handshake"`
	Functions     []FunctionConfig    `yaml:"functions" json:"functions" validate:"required,min=1,dive"`
	Routes        []RouteConfig       `yaml:"routes" json:"routes" validate:"required,min=1,dive"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// Deployment identifies the API deployment the secret is derived from.
type Deployment struct {
	APIID     string `yaml:"apiId" json:"apiId" validate:"required,alphanum"`
	Region    string `yaml:"region" json:"region" validate:"required"`
	AccountID string `yaml:"accountId" json:"accountId" validate:"omitempty,numeric,len=12"`
}

// EdgeConfig configures the distribution listener.
type EdgeConfig struct {
	Listen         string   `yaml:"listen" json:"listen"`
	DomainName     string   `yaml:"domainName,omitempty" json:"domainName,omitempty" validate:"omitempty,hostname"`
	OriginURL      string   `yaml:"originURL,omitempty" json:"originURL,omitempty"`
	OriginTimeout  Duration `yaml:"originTimeout,omitempty" json:"originTimeout,omitempty"`
	TrustedProxies []string `yaml:"trustedProxies,omitempty" json:"trustedProxies,omitempty" validate:"dive,cidr|ip"`
}

// OriginConfig configures the API layer listener.
type OriginConfig struct {
	Listen       string `yaml:"listen" json:"listen"`
	Stage        string `yaml:"stage" json:"stage"`
	DomainName   string `yaml:"domainName,omitempty" json:"domainName,omitempty" validate:"omitempty,hostname"`
	MaxBodyBytes int64  `yaml:"maxBodyBytes,omitempty" json:"maxBodyBytes,omitempty" validate:"gte=0"`
}

// FirewallConfig lists the allowed client networks. Entries from the
// inline list and the file are merged.
type FirewallConfig struct {
	AllowList     []string `yaml:"allowList,omitempty" json:"allowList,omitempty" validate:"dive,cidr|ip"`
	AllowListFile string   `yaml:"allowListFile,omitempty" json:"allowListFile,omitempty"`
}

// HandshakeConfig configures the shared-secret header.
type HandshakeConfig struct {
	HeaderName    string `yaml:"headerName" json:"headerName"`
	Derivation    string `yaml:"derivation" json:"derivation" validate:"omitempty,oneof=concat hkdf"`
	DerivationKey string `yaml:"derivationKey,omitempty" json:"-"`
}

// FunctionConfig declares one function the origin can invoke.
type FunctionConfig struct {
	Name         string            `yaml:"name" json:"name" validate:"required"`
	Role         string            `yaml:"role" json:"role" validate:"required,oneof=authorizer integration"`
	Target       string            `yaml:"target" json:"target" validate:"omitempty,oneof=local lambda"`
	FunctionName string            `yaml:"functionName,omitempty" json:"functionName,omitempty"`
	Timeout      Duration          `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Environment  map[string]string `yaml:"environment,omitempty" json:"environment,omitempty"`
}

// RouteConfig binds a method and path to an integration and an authorizer.
type RouteConfig struct {
	Method      string `yaml:"method" json:"method" validate:"omitempty,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS"`
	Path        string `yaml:"path" json:"path" validate:"required,startswith=/"`
	Integration string `yaml:"integration" json:"integration" validate:"required"`
	Authorizer  string `yaml:"authorizer" json:"authorizer" validate:"required"`
}

// Key returns the route key, for example "GET /hello".
func (r RouteConfig) Key() string {
	return r.Method + " " + r.Path
}

// ObservabilityConfig configures metrics and tracing.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
}

// MetricsConfig configures the metrics and health listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" json:"listen"`
	Path    string `yaml:"path" json:"path" validate:"omitempty,startswith=/"`
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate" validate:"gte=0,lte=1"`
	ServiceName  string  `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
}

// Function returns the function with the given name.
func (s *Spec) Function(name string) (FunctionConfig, bool) {
	for _, fn := range s.Functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return FunctionConfig{}, false
}

// DefaultConfig returns the configuration of the reference deployment:
// one cfAuth authorizer guarding GET /hello. The allow-list is left empty
// and must be supplied.
func DefaultConfig() *Config {
	cfg := &Config{
		APIVersion: APIVersion,
		Kind:       Kind,
		Metadata:   Metadata{Name: "edgegate"},
		Spec: Spec{
			Functions: []FunctionConfig{
				{Name: "cfAuth", Role: RoleAuthorizer},
				{Name: "hello", Role: RoleIntegration},
			},
			Routes: []RouteConfig{
				{Method: DefaultRouteMethod, Path: "/hello", Integration: "hello", Authorizer: "cfAuth"},
			},
			Observability: ObservabilityConfig{
				Metrics: MetricsConfig{Enabled: true},
				Tracing: TracingConfig{SamplingRate: 1.0},
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	spec := &cfg.Spec

	if spec.Deployment.AccountID == "" {
		spec.Deployment.AccountID = DefaultAccountID
	}
	if spec.Edge.Listen == "" {
		spec.Edge.Listen = DefaultEdgeListen
	}
	if spec.Edge.OriginTimeout == 0 {
		spec.Edge.OriginTimeout = Duration(DefaultOriginTimeout)
	}
	if spec.Origin.Listen == "" {
		spec.Origin.Listen = DefaultOriginListen
	}
	if spec.Origin.Stage == "" {
		spec.Origin.Stage = DefaultStage
	}
	if spec.Origin.MaxBodyBytes == 0 {
		spec.Origin.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if spec.Handshake.HeaderName == "" {
		spec.Handshake.HeaderName = DefaultHeaderName
	}
	if spec.Handshake.Derivation == "" {
		spec.Handshake.Derivation = DerivationConcat
	}

	for i := range spec.Functions {
		fn := &spec.Functions[i]
		if fn.Target == "" {
			fn.Target = TargetLocal
		}
		if fn.Timeout == 0 {
			fn.Timeout = Duration(DefaultFunctionTimeout)
		}
	}
	for i := range spec.Routes {
		if spec.Routes[i].Method == "" {
			spec.Routes[i].Method = DefaultRouteMethod
		}
	}

	if spec.Observability.Metrics.Listen == "" {
		spec.Observability.Metrics.Listen = DefaultMetricsListen
	}
	if spec.Observability.Metrics.Path == "" {
		spec.Observability.Metrics.Path = DefaultMetricsPath
	}
	if spec.Observability.Tracing.ServiceName == "" {
		spec.Observability.Tracing.ServiceName = DefaultServiceName
	}
}
