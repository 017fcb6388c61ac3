// Package secret derives the shared secret the edge injects and the
// authorizer expects.
package secret

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/vyrodovalexey/edgegate/internal/util"
)

// Derivation modes.
const (
	// ModeConcat yields "<apiId>-<region>". Anyone who knows the API id and
	// region can reproduce it, so it only stops casual direct access to the
	// origin.
	ModeConcat = "concat"

	// ModeHKDF yields HKDF-SHA256 over a provisioning key with the API id
	// and region as info.
	ModeHKDF = "hkdf"
)

const (
	// MinKeyLength is the minimum provisioning key length for ModeHKDF.
	MinKeyLength = 32

	hkdfOutputLength = 32
)

// Params are the inputs of a derivation.
type Params struct {
	APIID  string
	Region string
	Mode   string
	Key    []byte
}

// Secret is the immutable shared secret. Its String form is redacted.
type Secret struct {
	value string
}

// Derive computes the shared secret for a deployment. The same params
// always produce the same secret.
func Derive(p Params) (Secret, error) {
	if p.APIID == "" {
		return Secret{}, util.NewProvisioningError("secret.apiId", "api id is required")
	}
	if p.Region == "" {
		return Secret{}, util.NewProvisioningError("secret.region", "region is required")
	}

	switch p.Mode {
	case "", ModeConcat:
		return Secret{value: p.APIID + "-" + p.Region}, nil
	case ModeHKDF:
		return deriveHKDF(p)
	default:
		return Secret{}, util.NewProvisioningError("secret.mode", fmt.Sprintf("unknown derivation mode %q", p.Mode))
	}
}

func deriveHKDF(p Params) (Secret, error) {
	if len(p.Key) < MinKeyLength {
		return Secret{}, util.NewProvisioningError("secret.key",
			fmt.Sprintf("key must be at least %d bytes", MinKeyLength))
	}

	info := []byte(p.APIID + "|" + p.Region)
	out := make([]byte, hkdfOutputLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, p.Key, nil, info), out); err != nil {
		return Secret{}, util.NewProvisioningErrorWithCause("secret.key", "hkdf derivation failed", err)
	}

	return Secret{value: base64.RawURLEncoding.EncodeToString(out)}, nil
}

// FromValue wraps a secret that was derived elsewhere and handed over,
// for example through a function environment variable.
func FromValue(v string) Secret {
	return Secret{value: v}
}

// Value returns the raw secret for placing it in a header or an
// environment variable.
func (s Secret) Value() string {
	return s.value
}

// IsZero reports whether the secret was never derived.
func (s Secret) IsZero() bool {
	return s.value == ""
}

// Equal compares candidate against the secret in constant time.
func (s Secret) Equal(candidate string) bool {
	if s.value == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.value), []byte(candidate)) == 1
}

// String implements fmt.Stringer without revealing the value.
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer without revealing the value.
func (s Secret) GoString() string {
	return "secret.Secret{[REDACTED]}"
}
