package util

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// headerNameRegex validates HTTP header names according to RFC 7230.
var headerNameRegex = regexp.MustCompile(`^[!#$%&'*+\-.^_` + "`" + `|~0-9A-Za-z]+$`)

// reservedHeaders may be set or rewritten by clients or intermediaries and
// therefore cannot carry the edge secret.
var reservedHeaders = map[string]struct{}{
	"Authorization":       {},
	"Connection":          {},
	"Content-Length":      {},
	"Content-Type":        {},
	"Cookie":              {},
	"Forwarded":           {},
	"Host":                {},
	"Keep-Alive":          {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"User-Agent":          {},
	"Via":                 {},
	"X-Real-Ip":           {},
	"X-Request-Id":        {},
}

// ValidateURL validates a URL string.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got: %q", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must have a host")
	}

	return nil
}

// ValidateHeaderName validates an HTTP header name.
func ValidateHeaderName(name string) error {
	if name == "" {
		return fmt.Errorf("header name cannot be empty")
	}

	if !headerNameRegex.MatchString(name) {
		return fmt.Errorf("invalid header name: %s", name)
	}

	return nil
}

// ValidateSecretHeaderName validates the name of the edge-to-origin secret
// header. Besides being a valid token it must not be a standard or
// forwarding header.
func ValidateSecretHeaderName(name string) error {
	if err := ValidateHeaderName(name); err != nil {
		return err
	}

	canonical := http.CanonicalHeaderKey(name)
	if _, ok := reservedHeaders[canonical]; ok {
		return fmt.Errorf("header %s is a standard header and cannot carry the edge secret", canonical)
	}
	if strings.HasPrefix(canonical, "X-Forwarded-") || strings.HasPrefix(canonical, "X-Amz-") {
		return fmt.Errorf("header %s is a forwarding header and cannot carry the edge secret", canonical)
	}

	return nil
}
