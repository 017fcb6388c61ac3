package invoke

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Local runs a handler in-process.
type Local[Req, Resp any] struct {
	settings
	handler Handler[Req, Resp]
}

// NewLocal creates an in-process invoker for handler.
func NewLocal[Req, Resp any](name string, role Role, handler Handler[Req, Resp], opts ...Option) *Local[Req, Resp] {
	return &Local[Req, Resp]{
		settings: newSettings(name, role, opts),
		handler:  handler,
	}
}

// Identifier returns "local:<name>".
func (l *Local[Req, Resp]) Identifier() string {
	return "local:" + l.name
}

type result[Resp any] struct {
	resp Resp
	err  error
}

// Invoke runs the handler under the invocation deadline. A handler that
// ignores its context is abandoned once the deadline passes; its late
// result is discarded.
func (l *Local[Req, Resp]) Invoke(ctx context.Context, req Req) (resp Resp, err error) {
	start := time.Now()
	ctx, span := l.begin(ctx, TargetLocal)
	defer func() { l.end(ctx, span, start, err) }()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	done := make(chan result[Resp], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result[Resp]{err: &FunctionError{
					Function: l.name,
					Type:     "Runtime.Panic",
					Message:  fmt.Sprint(r),
				}}
			}
		}()
		r, e := l.handler(ctx, req)
		done <- result[Resp]{resp: r, err: e}
	}()

	var zero Resp
	select {
	case res := <-done:
		if res.err == nil {
			return res.resp, nil
		}
		if errors.Is(res.err, context.DeadlineExceeded) {
			return zero, ErrInvocationTimeout
		}
		var fnErr *FunctionError
		if errors.As(res.err, &fnErr) {
			return zero, fnErr
		}
		return zero, &FunctionError{Function: l.name, Message: res.err.Error(), Cause: res.err}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, ErrInvocationTimeout
		}
		return zero, ctx.Err()
	}
}
