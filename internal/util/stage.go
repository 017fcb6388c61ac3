package util

// Stage is a step of the per-request state machine:
//
//	Arrived -> FirewallChecked -> HeaderInjected -> AuthorizerEvaluated
//	        -> BackendInvoked -> ResponseReturned
//
// A request terminates either at ResponseReturned or with a denial at
// the firewall or the authorizer.
type Stage string

// Request stages.
const (
	StageArrived             Stage = "arrived"
	StageFirewallChecked     Stage = "firewall_checked"
	StageHeaderInjected      Stage = "header_injected"
	StageAuthorizerEvaluated Stage = "authorizer_evaluated"
	StageBackendInvoked      Stage = "backend_invoked"
	StageResponseReturned    Stage = "response_returned"
)

// String returns the stage name.
func (s Stage) String() string {
	return string(s)
}
