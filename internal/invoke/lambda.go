package invoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// LambdaClient is the subset of the Lambda API client used here.
type LambdaClient interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// lambdaErrorPayload is the body the Lambda runtime returns for an
// unhandled function error.
type lambdaErrorPayload struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorType    string `json:"errorType"`
}

// Lambda invokes a deployed Lambda function synchronously.
type Lambda[Req, Resp any] struct {
	settings
	client       LambdaClient
	functionName string
}

// NewLambda creates a remote invoker for functionName (a name or ARN).
func NewLambda[Req, Resp any](
	client LambdaClient,
	name string,
	role Role,
	functionName string,
	opts ...Option,
) *Lambda[Req, Resp] {
	return &Lambda[Req, Resp]{
		settings:     newSettings(name, role, opts),
		client:       client,
		functionName: functionName,
	}
}

// Identifier returns the remote function name or ARN.
func (l *Lambda[Req, Resp]) Identifier() string {
	return l.functionName
}

// Invoke sends req as the event payload and decodes the response.
func (l *Lambda[Req, Resp]) Invoke(ctx context.Context, req Req) (resp Resp, err error) {
	start := time.Now()
	ctx, span := l.begin(ctx, TargetLambda)
	defer func() { l.end(ctx, span, start, err) }()

	var zero Resp

	payload, err := json.Marshal(req)
	if err != nil {
		return zero, fmt.Errorf("failed to encode event for %s: %w", l.name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	out, err := l.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(l.functionName),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, ErrInvocationTimeout
		}
		return zero, &FunctionError{Function: l.name, Type: "Invoke", Message: err.Error(), Cause: err}
	}

	if out.FunctionError != nil {
		var p lambdaErrorPayload
		_ = json.Unmarshal(out.Payload, &p)
		if p.ErrorMessage == "" {
			p.ErrorMessage = aws.ToString(out.FunctionError)
		}
		if p.ErrorType == "" {
			p.ErrorType = aws.ToString(out.FunctionError)
		}
		return zero, &FunctionError{Function: l.name, Type: p.ErrorType, Message: p.ErrorMessage}
	}

	if err := json.Unmarshal(out.Payload, &resp); err != nil {
		return zero, &FunctionError{
			Function: l.name,
			Type:     "Runtime.InvalidResponse",
			Message:  err.Error(),
			Cause:    err,
		}
	}

	return resp, nil
}
