package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/edgegate/internal/observability"
)

// maxRequestIDLength bounds client-supplied request IDs.
const maxRequestIDLength = 128

// RequestID returns a middleware that adds a request ID to each request.
// An incoming X-Request-ID is kept when it is reasonably sized; otherwise
// a new UUID is generated.
func RequestID() Middleware {
	return RequestIDWithGenerator(func() string { return uuid.New().String() })
}

// RequestIDWithGenerator returns a middleware that uses a custom ID generator.
func RequestIDWithGenerator(generator func() string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderXRequestID)
			if requestID == "" || len(requestID) > maxRequestIDLength {
				requestID = generator()
				r.Header.Set(HeaderXRequestID, requestID)
			}

			r = r.WithContext(observability.ContextWithRequestID(r.Context(), requestID))
			w.Header().Set(HeaderXRequestID, requestID)

			next.ServeHTTP(w, r)
		})
	}
}
