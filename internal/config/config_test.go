package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	assert.Equal(t, APIVersion, cfg.APIVersion)
	assert.Equal(t, Kind, cfg.Kind)
	assert.Equal(t, DefaultEdgeListen, cfg.Spec.Edge.Listen)
	assert.Equal(t, DefaultOriginListen, cfg.Spec.Origin.Listen)
	assert.Equal(t, DefaultStage, cfg.Spec.Origin.Stage)
	assert.Equal(t, DefaultHeaderName, cfg.Spec.Handshake.HeaderName)
	assert.Equal(t, DerivationConcat, cfg.Spec.Handshake.Derivation)
	assert.Empty(t, cfg.Spec.Firewall.AllowList)

	require.Len(t, cfg.Spec.Routes, 1)
	assert.Equal(t, "GET /hello", cfg.Spec.Routes[0].Key())
	assert.Equal(t, "cfAuth", cfg.Spec.Routes[0].Authorizer)
	assert.Equal(t, "hello", cfg.Spec.Routes[0].Integration)

	for _, fn := range cfg.Spec.Functions {
		assert.Equal(t, TargetLocal, fn.Target)
		assert.Equal(t, DefaultFunctionTimeout, fn.Timeout.Duration())
	}
}

func TestDefaultConfig_RequiresAllowList(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Spec.Deployment.APIID = "abc123"
	cfg.Spec.Deployment.Region = "us-east-1"

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spec.firewall")

	cfg.Spec.Firewall.AllowList = []string{"203.0.113.0/24"}
	assert.NoError(t, ValidateConfig(cfg))
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{Spec: Spec{
		Edge:      EdgeConfig{Listen: ":7000", OriginTimeout: Duration(time.Second)},
		Origin:    OriginConfig{Stage: "prod"},
		Handshake: HandshakeConfig{HeaderName: "X-Edge-Key", Derivation: DerivationHKDF},
		Functions: []FunctionConfig{{Name: "f", Target: TargetLambda, Timeout: Duration(2 * time.Second)}},
		Routes:    []RouteConfig{{Method: "POST", Path: "/x"}},
	}}

	ApplyDefaults(cfg)

	assert.Equal(t, ":7000", cfg.Spec.Edge.Listen)
	assert.Equal(t, time.Second, cfg.Spec.Edge.OriginTimeout.Duration())
	assert.Equal(t, "prod", cfg.Spec.Origin.Stage)
	assert.Equal(t, "X-Edge-Key", cfg.Spec.Handshake.HeaderName)
	assert.Equal(t, DerivationHKDF, cfg.Spec.Handshake.Derivation)
	assert.Equal(t, TargetLambda, cfg.Spec.Functions[0].Target)
	assert.Equal(t, 2*time.Second, cfg.Spec.Functions[0].Timeout.Duration())
	assert.Equal(t, "POST", cfg.Spec.Routes[0].Method)
}

func TestSpec_Function(t *testing.T) {
	t.Parallel()

	spec := DefaultConfig().Spec

	fn, ok := spec.Function("cfAuth")
	assert.True(t, ok)
	assert.Equal(t, RoleAuthorizer, fn.Role)

	_, ok = spec.Function("missing")
	assert.False(t, ok)
}

func TestDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "seconds", input: `"30s"`, want: 30 * time.Second},
		{name: "compound", input: `"1h30m"`, want: 90 * time.Minute},
		{name: "empty", input: `""`, want: 0},
		{name: "null", input: `null`, want: 0},
		{name: "invalid", input: `"soon"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var d Duration
			err := d.UnmarshalJSON([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration())
		})
	}
}

func TestDuration_OrDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Minute, Duration(0).OrDefault(time.Minute))
	assert.Equal(t, time.Second, Duration(time.Second).OrDefault(time.Minute))
}
