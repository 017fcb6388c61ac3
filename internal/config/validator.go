package config

import (
	"errors"
	"fmt"
	"net"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vyrodovalexey/edgegate/internal/util"
)

// minDerivationKeyLength mirrors the secret package requirement so that
// the operator learns about a short key before anything is built.
const minDerivationKeyLength = 32

// ValidationErrors is a collection of provisioning errors found in one pass.
type ValidationErrors []*util.ProvisioningError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e ValidationErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, err := range e {
		errs[i] = err
	}
	return errs
}

// Validator validates edgegate configuration.
type Validator struct {
	structs *validator.Validate
	errors  ValidationErrors
}

// NewValidator creates a new configuration validator. Field paths in
// reported errors use the YAML names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{structs: v}
}

// ValidateConfig validates a configuration.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration and returns every problem found.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	if cfg == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateStruct(cfg)
	v.validateListeners(&cfg.Spec)
	v.validateFirewall(&cfg.Spec.Firewall)
	v.validateHandshake(&cfg.Spec.Handshake)
	v.validateFunctions(cfg.Spec.Functions)
	v.validateRoutes(&cfg.Spec)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, util.NewProvisioningError(path, message))
}

// validateStruct runs the struct tag rules.
func (v *Validator) validateStruct(cfg *Config) {
	err := v.structs.Struct(cfg)
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.errors = append(v.errors, util.NewProvisioningErrorWithCause("", "invalid configuration", err))
		return
	}

	for _, fe := range fieldErrs {
		path := strings.TrimPrefix(fe.Namespace(), "Config.")
		msg := fmt.Sprintf("failed %q validation", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed %q validation (%s)", fe.Tag(), fe.Param())
		}
		v.addError(path, msg)
	}
}

func (v *Validator) validateListeners(spec *Spec) {
	listeners := []struct {
		path string
		addr string
		used bool
	}{
		{path: "spec.edge.listen", addr: spec.Edge.Listen, used: true},
		{path: "spec.origin.listen", addr: spec.Origin.Listen, used: true},
		{path: "spec.observability.metrics.listen", addr: spec.Observability.Metrics.Listen,
			used: spec.Observability.Metrics.Enabled},
	}

	seen := make(map[string]string, len(listeners))
	for _, l := range listeners {
		if !l.used {
			continue
		}
		_, port, err := net.SplitHostPort(l.addr)
		if err != nil {
			v.addError(l.path, fmt.Sprintf("invalid listen address %q", l.addr))
			continue
		}
		if other, dup := seen[port]; dup {
			v.addError(l.path, fmt.Sprintf("port %s already used by %s", port, other))
			continue
		}
		seen[port] = l.path
	}

	if spec.Edge.OriginURL != "" {
		if err := util.ValidateURL(spec.Edge.OriginURL); err != nil {
			v.addError("spec.edge.originURL", err.Error())
		}
	}
}

// validateFirewall rejects an empty allow-list. An allow-all default is
// never assumed.
func (v *Validator) validateFirewall(fw *FirewallConfig) {
	if len(fw.AllowList) == 0 && fw.AllowListFile == "" {
		v.addError("spec.firewall", "allowList or allowListFile is required")
	}
}

func (v *Validator) validateHandshake(hs *HandshakeConfig) {
	if err := util.ValidateSecretHeaderName(hs.HeaderName); err != nil {
		v.addError("spec.handshake.headerName", err.Error())
	}

	if hs.Derivation == DerivationHKDF && len(hs.DerivationKey) < minDerivationKeyLength {
		v.addError("spec.handshake.derivationKey",
			fmt.Sprintf("hkdf derivation requires a key of at least %d bytes", minDerivationKeyLength))
	}
}

func (v *Validator) validateFunctions(functions []FunctionConfig) {
	names := make(map[string]bool, len(functions))

	for i, fn := range functions {
		path := fmt.Sprintf("spec.functions[%d]", i)

		if fn.Name != "" {
			if names[fn.Name] {
				v.addError(path+".name", fmt.Sprintf("duplicate function name: %s", fn.Name))
			}
			names[fn.Name] = true
		}

		if fn.Target == TargetLambda && fn.FunctionName == "" {
			v.addError(path+".functionName", "functionName is required for lambda targets")
		}

		if fn.Timeout < 0 {
			v.addError(path+".timeout", "timeout must not be negative")
		}
	}
}

// validateRoutes checks that every route binds exactly one authorizer and
// one integration that exist with the matching roles.
func (v *Validator) validateRoutes(spec *Spec) {
	keys := make(map[string]bool, len(spec.Routes))

	for i, route := range spec.Routes {
		path := fmt.Sprintf("spec.routes[%d]", i)

		if keys[route.Key()] {
			v.addError(path, fmt.Sprintf("duplicate route: %s", route.Key()))
		}
		keys[route.Key()] = true

		v.validateBinding(spec, path+".authorizer", route.Authorizer, RoleAuthorizer)
		v.validateBinding(spec, path+".integration", route.Integration, RoleIntegration)
	}
}

func (v *Validator) validateBinding(spec *Spec, path, name, role string) {
	if name == "" {
		return
	}
	fn, ok := spec.Function(name)
	if !ok {
		v.addError(path, fmt.Sprintf("unknown function: %s", name))
		return
	}
	if fn.Role != role {
		v.addError(path, fmt.Sprintf("function %s has role %s, want %s", name, fn.Role, role))
	}
}
