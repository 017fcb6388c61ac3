package origin

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

// decodeResponse validates an integration response before anything is
// written, so a malformed response can still become a 502.
func decodeResponse(resp events.APIGatewayV2HTTPResponse) ([]byte, error) {
	if !resp.IsBase64Encoded {
		return []byte(resp.Body), nil
	}
	body, err := base64.StdEncoding.DecodeString(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 response body: %w", err)
	}
	return body, nil
}

// writeResponse writes an integration response unchanged. A zero status
// code means 200.
func writeResponse(w http.ResponseWriter, resp events.APIGatewayV2HTTPResponse, body []byte) {
	h := w.Header()
	for k, v := range resp.Headers {
		h.Set(k, v)
	}
	for k, values := range resp.MultiValueHeaders {
		for _, v := range values {
			h.Add(k, v)
		}
	}
	for _, c := range resp.Cookies {
		h.Add(headerSetCookie, c)
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	w.WriteHeader(status)
	_, _ = w.Write(body)
}
