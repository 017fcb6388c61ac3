// Package middleware provides the HTTP middleware shared by the edge and
// origin listeners.
//
//   - Recovery: panic recovery with stack trace logging
//   - RequestID: request identifier propagation and generation
//   - Logging: structured request logging
//   - ClientIPExtractor: trusted-proxy aware client address resolution
//
// Middleware functions follow the standard Go pattern and compose with
// Chain:
//
//	handler := middleware.Chain(next,
//	    middleware.Recovery(logger),
//	    middleware.RequestID(),
//	    middleware.Logging(logger, "edge"),
//	)
package middleware
