package authorizer

import (
	"github.com/aws/aws-lambda-go/events"
)

// Reason explains a denial.
type Reason string

// Denial reasons.
const (
	ReasonMissingHeader Reason = "missing_header"
	ReasonMismatch      Reason = "mismatch"
	ReasonNotConfigured Reason = "not_configured"
)

// Context keys of the simple response.
const (
	ContextKeyPrincipal = "principal"
	ContextKeyReason    = "reason"
)

// Decision is the outcome of one authorization. Construct it with Allow
// or Deny; the zero value denies.
type Decision struct {
	allowed   bool
	principal string
	reason    Reason
}

// Allow returns an allowing decision for principal.
func Allow(principal string) Decision {
	return Decision{allowed: true, principal: principal}
}

// Deny returns a denying decision.
func Deny(reason Reason) Decision {
	return Decision{reason: reason}
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool { return d.allowed }

// Principal returns the principal of an allowing decision.
func (d Decision) Principal() string { return d.principal }

// Reason returns the reason of a denying decision.
func (d Decision) Reason() Reason { return d.reason }

// String returns "allow" or "deny:<reason>".
func (d Decision) String() string {
	if d.allowed {
		return "allow"
	}
	return "deny:" + string(d.reason)
}

// SimpleResponse converts the decision into the HTTP API simple response
// format.
func (d Decision) SimpleResponse() events.APIGatewayV2CustomAuthorizerSimpleResponse {
	if d.allowed {
		return events.APIGatewayV2CustomAuthorizerSimpleResponse{
			IsAuthorized: true,
			Context:      map[string]interface{}{ContextKeyPrincipal: d.principal},
		}
	}
	return events.APIGatewayV2CustomAuthorizerSimpleResponse{
		IsAuthorized: false,
		Context:      map[string]interface{}{ContextKeyReason: string(d.reason)},
	}
}

// DecisionFromSimpleResponse converts a simple response, possibly
// produced by a remote function, back into a Decision.
func DecisionFromSimpleResponse(resp events.APIGatewayV2CustomAuthorizerSimpleResponse) Decision {
	if resp.IsAuthorized {
		principal, _ := resp.Context[ContextKeyPrincipal].(string)
		return Allow(principal)
	}
	reason, _ := resp.Context[ContextKeyReason].(string)
	return Deny(Reason(reason))
}
