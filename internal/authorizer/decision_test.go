package authorizer

import (
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
)

func TestDecision(t *testing.T) {
	t.Parallel()

	allow := Allow("edge")
	assert.True(t, allow.Allowed())
	assert.Equal(t, "edge", allow.Principal())
	assert.Equal(t, "allow", allow.String())

	deny := Deny(ReasonMismatch)
	assert.False(t, deny.Allowed())
	assert.Equal(t, ReasonMismatch, deny.Reason())
	assert.Equal(t, "deny:mismatch", deny.String())

	assert.False(t, Decision{}.Allowed())
}

func TestDecision_SimpleResponseRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		decision Decision
	}{
		{name: "allow", decision: Allow("edge")},
		{name: "deny missing", decision: Deny(ReasonMissingHeader)},
		{name: "deny mismatch", decision: Deny(ReasonMismatch)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.decision, DecisionFromSimpleResponse(tt.decision.SimpleResponse()))
		})
	}
}

func TestDecisionFromSimpleResponse_ForeignContext(t *testing.T) {
	t.Parallel()

	d := DecisionFromSimpleResponse(events.APIGatewayV2CustomAuthorizerSimpleResponse{
		IsAuthorized: true,
		Context:      map[string]interface{}{"auth": "token"},
	})
	assert.True(t, d.Allowed())
	assert.Empty(t, d.Principal())

	d = DecisionFromSimpleResponse(events.APIGatewayV2CustomAuthorizerSimpleResponse{})
	assert.False(t, d.Allowed())
}
