package util

import (
	"io"
	"net/http"
)

// Canonical error bodies. The denial body is shared by the firewall and
// the authorizer gate.
const (
	DeniedBody             = `{"message":"Forbidden"}`
	NotFoundBody           = `{"message":"Not Found"}`
	InternalServerBody     = `{"message":"Internal Server Error"}`
	BadGatewayBody         = `{"message":"Bad Gateway"}`
	GatewayTimeoutBody     = `{"message":"Gateway Timeout"}`
	RequestTooLargeBody    = `{"message":"Request Entity Too Large"}`
	contentTypeJSON        = "application/json"
	headerContentType      = "Content-Type"
	headerXContentTypeOpts = "X-Content-Type-Options"
)

// WriteJSONError writes a JSON error body with the given status.
func WriteJSONError(w http.ResponseWriter, status int, body string) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.Header().Set(headerXContentTypeOpts, "nosniff")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// WriteDenied writes the generic access-denied response. It carries no
// hint about which gate rejected the request.
func WriteDenied(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusForbidden, DeniedBody)
}

// StatusCapturingResponseWriter wraps http.ResponseWriter to track status code and size.
type StatusCapturingResponseWriter struct {
	http.ResponseWriter
	StatusCode    int
	Size          int
	HeaderWritten bool
}

// NewStatusCapturingResponseWriter creates a new StatusCapturingResponseWriter
// wrapping the provided http.ResponseWriter with a default status of 200 OK.
func NewStatusCapturingResponseWriter(w http.ResponseWriter) *StatusCapturingResponseWriter {
	return &StatusCapturingResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

// WriteHeader captures the status code and writes it to the underlying ResponseWriter.
func (w *StatusCapturingResponseWriter) WriteHeader(code int) {
	if w.HeaderWritten {
		return
	}
	w.StatusCode = code
	w.HeaderWritten = true
	w.ResponseWriter.WriteHeader(code)
}

// Write writes data to the underlying ResponseWriter and marks header as written.
func (w *StatusCapturingResponseWriter) Write(b []byte) (int, error) {
	if !w.HeaderWritten {
		w.HeaderWritten = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.Size += n
	return n, err
}

// Flush implements http.Flusher interface for streaming support.
func (w *StatusCapturingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Compile-time interface assertion.
var _ http.Flusher = (*StatusCapturingResponseWriter)(nil)
