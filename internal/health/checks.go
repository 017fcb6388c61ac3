package health

import (
	"context"
	"fmt"
	"net"
	"time"
)

// DefaultCheckTimeout bounds a single dependency probe.
const DefaultCheckTimeout = 2 * time.Second

// TCPCheck reports whether address accepts TCP connections. The edge
// registers one for its origin: an edge that cannot reach the origin is
// not ready.
func TCPCheck(address string, timeout time.Duration) CheckFunc {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}

	return func() Check {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			return Check{Status: StatusUnhealthy, Message: fmt.Sprintf("failed to connect: %v", err)}
		}
		_ = conn.Close()

		return Check{Status: StatusHealthy}
	}
}

// StaticCheck always returns check. It marks components whose state is
// fixed once built.
func StaticCheck(check Check) CheckFunc {
	return func() Check {
		return check
	}
}
