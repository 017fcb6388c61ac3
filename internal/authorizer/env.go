package authorizer

import (
	"github.com/caarlos0/env/v11"

	"github.com/vyrodovalexey/edgegate/internal/util"
)

// Environment variable names of the authorizer function.
const (
	EnvSecret         = "secret"
	EnvIdentityHeader = "IDENTITY_HEADER"
	EnvPrincipal      = "PRINCIPAL"
	EnvRegion         = "REGION"
	EnvAccountID      = "ACCOUNT_ID"
)

// Config is the authorizer function configuration.
type Config struct {
	Secret     string `env:"secret,required,notEmpty"`
	HeaderName string `env:"IDENTITY_HEADER" envDefault:"X-Cfn-Header"`
	Principal  string `env:"PRINCIPAL" envDefault:"edge"`
	Region     string `env:"REGION"`
	AccountID  string `env:"ACCOUNT_ID"`
}

// LoadConfig reads the configuration from the process environment.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, util.NewProvisioningErrorWithCause("authorizer.env", "invalid environment", err)
	}
	return cfg, nil
}

// ConfigFromEnvironment reads the configuration from the given
// variables instead of the process environment.
func ConfigFromEnvironment(environ map[string]string) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: environ})
	if err != nil {
		return Config{}, util.NewProvisioningErrorWithCause("authorizer.env", "invalid environment", err)
	}
	return cfg, nil
}
