// Package util provides shared helpers for the edge gateway.
//
// # Error Conventions
//
// Errors follow one pattern across all packages:
//
//   - Sentinel errors (errors.New) for the stable categories of the
//     error taxonomy, checked with errors.Is(): ErrFirewallRejected,
//     ErrHeaderMissingOrMismatched, ErrBackend, ErrProvisioning.
//   - Structured error types that carry context (ProvisioningError,
//     BackendError). Each implements Error(), Unwrap() and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping.
//
// # Denials
//
// Both gates (the edge firewall and the origin authorizer) answer with
// the same response written by WriteDenied, so a caller cannot tell a
// rejected address from a rejected secret.
//
// # Request Stages
//
// Stage names the steps a request passes through on its way from the
// edge to the backend function. They are used as log fields and metric
// labels.
package util
