package edge

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

// ErrOriginTimeout indicates that the origin did not answer in time.
var ErrOriginTimeout = errors.New("origin timed out")

// isTimeout reports whether a proxy error is a deadline rather than an
// unreachable origin.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrOriginTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// errorHandler maps proxy failures: timeouts become 504, everything else
// 502.
func (e *Edge) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	status, body := http.StatusBadGateway, util.BadGatewayBody
	if isTimeout(err) {
		status, body = http.StatusGatewayTimeout, util.GatewayTimeoutBody
	}

	e.logger.WithContext(r.Context()).Error("origin request failed",
		observability.String("path", r.URL.Path),
		observability.String("method", r.Method),
		observability.Int("status", status),
		observability.Error(err),
	)

	util.WriteJSONError(w, status, body)
}
