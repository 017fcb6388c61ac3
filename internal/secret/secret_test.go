package secret

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/edgegate/internal/util"
)

var testKey = []byte(strings.Repeat("k", MinKeyLength))

func TestDerive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		params    Params
		want      string
		wantField string
	}{
		{
			name:   "concat default mode",
			params: Params{APIID: "abc123", Region: "us-east-1"},
			want:   "abc123-us-east-1",
		},
		{
			name:   "concat explicit mode",
			params: Params{APIID: "abc123", Region: "eu-west-1", Mode: ModeConcat},
			want:   "abc123-eu-west-1",
		},
		{
			name:      "empty api id",
			params:    Params{Region: "us-east-1"},
			wantField: "secret.apiId",
		},
		{
			name:      "empty region",
			params:    Params{APIID: "abc123"},
			wantField: "secret.region",
		},
		{
			name:      "unknown mode",
			params:    Params{APIID: "abc123", Region: "us-east-1", Mode: "md5"},
			wantField: "secret.mode",
		},
		{
			name:      "short hkdf key",
			params:    Params{APIID: "abc123", Region: "us-east-1", Mode: ModeHKDF, Key: []byte("short")},
			wantField: "secret.key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Derive(tt.params)
			if tt.wantField != "" {
				require.Error(t, err)
				var perr *util.ProvisioningError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, tt.wantField, perr.Field)
				assert.True(t, got.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Value())
		})
	}
}

func TestDerive_HKDF(t *testing.T) {
	t.Parallel()

	p := Params{APIID: "abc123", Region: "us-east-1", Mode: ModeHKDF, Key: testKey}

	first, err := Derive(p)
	require.NoError(t, err)
	second, err := Derive(p)
	require.NoError(t, err)

	assert.Equal(t, first.Value(), second.Value())
	assert.Len(t, first.Value(), 43)
	assert.NotContains(t, first.Value(), "abc123")

	other, err := Derive(Params{APIID: "abc123", Region: "us-east-1", Mode: ModeHKDF,
		Key: []byte(strings.Repeat("j", MinKeyLength))})
	require.NoError(t, err)
	assert.NotEqual(t, first.Value(), other.Value())
}

func TestDerive_DistinctAPIsYieldDistinctSecrets(t *testing.T) {
	t.Parallel()

	for _, mode := range []string{ModeConcat, ModeHKDF} {
		t.Run(mode, func(t *testing.T) {
			t.Parallel()

			a, err := Derive(Params{APIID: "api1", Region: "us-east-1", Mode: mode, Key: testKey})
			require.NoError(t, err)
			b, err := Derive(Params{APIID: "api2", Region: "us-east-1", Mode: mode, Key: testKey})
			require.NoError(t, err)

			assert.NotEqual(t, a.Value(), b.Value())
			assert.False(t, a.Equal(b.Value()))
		})
	}
}

func TestSecret_Equal(t *testing.T) {
	t.Parallel()

	s, err := Derive(Params{APIID: "abc123", Region: "us-east-1"})
	require.NoError(t, err)

	assert.True(t, s.Equal("abc123-us-east-1"))
	assert.False(t, s.Equal("wrong"))
	assert.False(t, s.Equal(""))
	assert.False(t, s.Equal("abc123-us-east-1 "))
	assert.False(t, Secret{}.Equal(""))
}

func TestSecret_Redacted(t *testing.T) {
	t.Parallel()

	s, err := Derive(Params{APIID: "abc123", Region: "us-east-1"})
	require.NoError(t, err)

	for _, format := range []string{"%s", "%v", "%+v", "%#v"} {
		assert.NotContains(t, fmt.Sprintf(format, s), "abc123", format)
	}
}

func TestFromValue(t *testing.T) {
	t.Parallel()

	s := FromValue("abc123-us-east-1")
	assert.False(t, s.IsZero())
	assert.True(t, s.Equal("abc123-us-east-1"))
	assert.True(t, FromValue("").IsZero())
}
