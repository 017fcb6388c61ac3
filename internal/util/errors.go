package util

import (
	"errors"
	"fmt"
)

// Error taxonomy sentinels.
var (
	// ErrFirewallRejected indicates that the source address is not in the allow-list.
	ErrFirewallRejected = errors.New("firewall rejected")

	// ErrHeaderMissingOrMismatched indicates that the edge secret header was absent or wrong.
	ErrHeaderMissingOrMismatched = errors.New("edge secret header missing or mismatched")

	// ErrBackend indicates that a backend (integration) function failed.
	ErrBackend = errors.New("backend error")

	// ErrProvisioning indicates missing or invalid setup-time configuration.
	ErrProvisioning = errors.New("provisioning error")

	// ErrTimeout indicates that a stage exceeded its deadline.
	ErrTimeout = errors.New("timeout")
)

// ProvisioningError represents a configuration problem detected at setup time.
// It is always fatal: no listener starts while one is outstanding.
type ProvisioningError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ProvisioningError) Error() string {
	msg := "provisioning error"
	if e.Field != "" {
		msg = fmt.Sprintf("provisioning error at %s", e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", msg, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", msg, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProvisioningError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ProvisioningError) Is(target error) bool {
	if target == ErrProvisioning {
		return true
	}
	_, ok := target.(*ProvisioningError)
	return ok
}

// NewProvisioningError creates a new ProvisioningError.
func NewProvisioningError(field, message string) *ProvisioningError {
	return &ProvisioningError{Field: field, Message: message}
}

// NewProvisioningErrorWithCause creates a new ProvisioningError with a cause.
func NewProvisioningErrorWithCause(field, message string, cause error) *ProvisioningError {
	return &ProvisioningError{Field: field, Message: message, Cause: cause}
}

// BackendError represents a failed backend function invocation.
type BackendError struct {
	Function   string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("backend %s error (status %d): %v", e.Function, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("backend %s error (status %d)", e.Function, e.StatusCode)
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *BackendError) Is(target error) bool {
	if target == ErrBackend {
		return true
	}
	_, ok := target.(*BackendError)
	return ok || errors.Is(e.Cause, target)
}

// NewBackendError creates a new BackendError.
func NewBackendError(function string, statusCode int, cause error) *BackendError {
	return &BackendError{Function: function, StatusCode: statusCode, Cause: cause}
}

// IsProvisioningError reports whether err belongs to the provisioning category.
func IsProvisioningError(err error) bool {
	return err != nil && errors.Is(err, ErrProvisioning)
}
