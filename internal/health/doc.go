// Package health serves the health, readiness and liveness endpoints of
// the metrics listener.
//
// Readiness aggregates registered checks. An unhealthy check or a
// draining process answers 503 so load balancers stop sending traffic
// before the edge and origin listeners shut down.
package health
