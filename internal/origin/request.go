package origin

import (
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
)

const (
	payloadVersion   = "2.0"
	authorizerType   = "REQUEST"
	requestTimeFmt   = "02/Jan/2006:15:04:05 -0700"
	headerCookie     = "Cookie"
	headerSetCookie  = "Set-Cookie"
	headerAPIGWReqID = "Apigw-Requestid"
)

// buildEvent maps an HTTP request to the HTTP API v2 event. Header names
// are lower-cased and repeated values joined with commas; cookies move
// to their own field. Bodies that are not valid UTF-8 are base64 encoded.
func (o *Origin) buildEvent(
	r *http.Request,
	route *Route,
	body []byte,
	requestID string,
	now time.Time,
) events.APIGatewayV2HTTPRequest {
	headers := make(map[string]string, len(r.Header)+1)
	for name, values := range r.Header {
		if strings.EqualFold(name, headerCookie) {
			continue
		}
		headers[strings.ToLower(name)] = strings.Join(values, ",")
	}
	if r.Host != "" {
		headers["host"] = r.Host
	}

	var query map[string]string
	if values := r.URL.Query(); len(values) > 0 {
		query = make(map[string]string, len(values))
		for k, v := range values {
			query[k] = strings.Join(v, ",")
		}
	}

	domain := o.cfg.DomainName
	if domain == "" {
		domain = hostOnly(r.Host)
	}

	event := events.APIGatewayV2HTTPRequest{
		Version:               payloadVersion,
		RouteKey:              route.Key(),
		RawPath:               r.URL.EscapedPath(),
		RawQueryString:        r.URL.RawQuery,
		Cookies:               cookiesOf(r),
		Headers:               headers,
		QueryStringParameters: query,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			RouteKey:     route.Key(),
			AccountID:    o.cfg.AccountID,
			Stage:        o.cfg.Stage,
			RequestID:    requestID,
			APIID:        o.cfg.APIID,
			DomainName:   domain,
			DomainPrefix: strings.SplitN(domain, ".", 2)[0],
			Time:         now.UTC().Format(requestTimeFmt),
			TimeEpoch:    now.UnixMilli(),
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:    r.Method,
				Path:      r.URL.Path,
				Protocol:  r.Proto,
				SourceIP:  hostOnly(r.RemoteAddr),
				UserAgent: r.UserAgent(),
			},
		},
	}

	if len(body) > 0 {
		if utf8.Valid(body) {
			event.Body = string(body)
		} else {
			event.Body = base64.StdEncoding.EncodeToString(body)
			event.IsBase64Encoded = true
		}
	}

	return event
}

// authorizerEvent derives the authorizer payload from the integration
// event.
func (o *Origin) authorizerEvent(
	event events.APIGatewayV2HTTPRequest,
	identity string,
) events.APIGatewayV2CustomAuthorizerV2Request {
	return events.APIGatewayV2CustomAuthorizerV2Request{
		Version:               payloadVersion,
		Type:                  authorizerType,
		RouteArn:              o.routeArn(event.RequestContext.HTTP.Method, event.RequestContext.HTTP.Path),
		IdentitySource:        []string{identity},
		RouteKey:              event.RouteKey,
		RawPath:               event.RawPath,
		RawQueryString:        event.RawQueryString,
		Cookies:               event.Cookies,
		Headers:               event.Headers,
		QueryStringParameters: event.QueryStringParameters,
		RequestContext:        event.RequestContext,
	}
}

// routeArn returns the execute-api ARN of a method and path.
func (o *Origin) routeArn(method, path string) string {
	return fmt.Sprintf("arn:aws:execute-api:%s:%s:%s/%s/%s%s",
		o.cfg.Region, o.cfg.AccountID, o.cfg.APIID, o.cfg.Stage, method, path)
}

// identityOf returns the identity source value, or "" when the header
// is absent or blank.
func (o *Origin) identityOf(r *http.Request) string {
	values := r.Header.Values(o.cfg.HeaderName)
	joined := strings.TrimSpace(strings.Join(values, ","))
	if strings.Trim(joined, ", ") == "" {
		return ""
	}
	return joined
}

func cookiesOf(r *http.Request) []string {
	var cookies []string
	for _, line := range r.Header.Values(headerCookie) {
		for _, c := range strings.Split(line, ";") {
			if c = strings.TrimSpace(c); c != "" {
				cookies = append(cookies, c)
			}
		}
	}
	return cookies
}

func hostOnly(hostport string) string {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport
	}
	return host
}
