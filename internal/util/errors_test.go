package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProvisioningError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		field          string
		message        string
		cause          error
		expectedString string
	}{
		{
			name:           "with field",
			field:          "spec.firewall.allowList",
			message:        "at least one entry required",
			expectedString: "provisioning error at spec.firewall.allowList: at least one entry required",
		},
		{
			name:           "without field",
			message:        "missing api id",
			expectedString: "provisioning error: missing api id",
		},
		{
			name:           "with cause",
			field:          "spec.handshake.derivationKey",
			message:        "unusable key",
			cause:          errors.New("too short"),
			expectedString: "provisioning error at spec.handshake.derivationKey: unusable key: too short",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var err *ProvisioningError
			if tt.cause != nil {
				err = NewProvisioningErrorWithCause(tt.field, tt.message, tt.cause)
			} else {
				err = NewProvisioningError(tt.field, tt.message)
			}

			assert.Equal(t, tt.expectedString, err.Error())
			assert.Equal(t, tt.cause, err.Unwrap())
			assert.ErrorIs(t, err, ErrProvisioning)
			assert.True(t, IsProvisioningError(fmt.Errorf("wrapped: %w", err)))
		})
	}
}

func TestIsProvisioningError_Nil(t *testing.T) {
	t.Parallel()

	assert.False(t, IsProvisioningError(nil))
	assert.False(t, IsProvisioningError(errors.New("other")))
}

func TestBackendError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := NewBackendError("hello", 502, cause)

	assert.Equal(t, "backend hello error (status 502): connection reset", err.Error())
	assert.ErrorIs(t, err, ErrBackend)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrProvisioning)

	var target *BackendError
	assert.True(t, errors.As(fmt.Errorf("invoke: %w", err), &target))
	assert.Equal(t, "hello", target.Function)

	plain := NewBackendError("hello", 500, nil)
	assert.Equal(t, "backend hello error (status 500)", plain.Error())
}
