package origin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/edgegate/internal/authorizer"
	"github.com/vyrodovalexey/edgegate/internal/hello"
	"github.com/vyrodovalexey/edgegate/internal/invoke"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

const (
	testSecret = "abc123-us-east-1"
	testHeader = "X-Cfn-Header"
)

type testOrigin struct {
	origin          *Origin
	authorizerCalls *atomic.Int32
	backendCalls    *atomic.Int32
	lastEvent       *atomic.Value
}

func newTestOrigin(
	t *testing.T,
	authHandler invoke.AuthorizerHandler,
	backend invoke.IntegrationHandler,
	timeout time.Duration,
	opts ...Option,
) *testOrigin {
	t.Helper()

	to := &testOrigin{
		authorizerCalls: &atomic.Int32{},
		backendCalls:    &atomic.Int32{},
		lastEvent:       &atomic.Value{},
	}

	if authHandler == nil {
		a, err := authorizer.New(authorizer.Config{Secret: testSecret, HeaderName: testHeader, Principal: "edge"})
		require.NoError(t, err)
		authHandler = a.Handle
	}
	if backend == nil {
		backend = hello.New(hello.Config{Region: "us-east-1", Message: "hi"}, nil).Handle
	}

	countedAuth := func(ctx context.Context, req events.APIGatewayV2CustomAuthorizerV2Request,
	) (events.APIGatewayV2CustomAuthorizerSimpleResponse, error) {
		to.authorizerCalls.Add(1)
		return authHandler(ctx, req)
	}
	countedBackend := func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		to.backendCalls.Add(1)
		to.lastEvent.Store(req)
		return backend(ctx, req)
	}

	routes, err := NewRouteTable([]Route{{
		Method:      http.MethodGet,
		Path:        "/hello",
		Authorizer:  invoke.NewLocal("cfAuth", invoke.RoleAuthorizer, invoke.AuthorizerHandler(countedAuth), invoke.WithTimeout(timeout)),
		Integration: invoke.NewLocal("hello", invoke.RoleIntegration, invoke.IntegrationHandler(countedBackend), invoke.WithTimeout(timeout)),
	}})
	require.NoError(t, err)

	o, err := New(Config{
		APIID:        "abc123",
		Region:       "us-east-1",
		AccountID:    "123456789012",
		Stage:        "$default",
		HeaderName:   testHeader,
		MaxBodyBytes: 1024,
	}, routes, opts...)
	require.NoError(t, err)

	to.origin = o
	return to
}

func doRequest(h http.Handler, method, target string, header http.Header, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func secretHeader(v string) http.Header {
	h := http.Header{}
	h.Set(testHeader, v)
	return h
}

func TestOrigin_Handshake(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		header         http.Header
		wantStatus     int
		wantAuthCalls  int32
		wantBackCalls  int32
		wantDeniedBody bool
	}{
		{
			name:          "correct secret",
			header:        secretHeader(testSecret),
			wantStatus:    http.StatusOK,
			wantAuthCalls: 1,
			wantBackCalls: 1,
		},
		{
			name:           "wrong secret",
			header:         secretHeader("wrong"),
			wantStatus:     http.StatusForbidden,
			wantAuthCalls:  1,
			wantDeniedBody: true,
		},
		{
			name:           "missing header skips authorizer",
			header:         http.Header{},
			wantStatus:     http.StatusForbidden,
			wantDeniedBody: true,
		},
		{
			name:           "blank header skips authorizer",
			header:         secretHeader("  "),
			wantStatus:     http.StatusForbidden,
			wantDeniedBody: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			to := newTestOrigin(t, nil, nil, time.Second)
			rec := doRequest(to.origin.Handler(), http.MethodGet, "/hello", tt.header, nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAuthCalls, to.authorizerCalls.Load())
			assert.Equal(t, tt.wantBackCalls, to.backendCalls.Load())
			if tt.wantDeniedBody {
				assert.Equal(t, util.DeniedBody, rec.Body.String())
			}
		})
	}
}

func TestOrigin_AllowedResponse(t *testing.T) {
	t.Parallel()

	to := newTestOrigin(t, nil, nil, time.Second)
	rec := doRequest(to.origin.Handler(), http.MethodGet, "/hello", secretHeader(testSecret), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body hello.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "hi", body.Message)
	assert.Equal(t, "/hello", body.Path)
	assert.Equal(t, http.MethodGet, body.Method)
	assert.Equal(t, "edge", body.Principal)
	assert.NotEmpty(t, body.RequestID)
	assert.Equal(t, body.RequestID, rec.Header().Get(headerAPIGWReqID))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestOrigin_NotFound(t *testing.T) {
	t.Parallel()

	to := newTestOrigin(t, nil, nil, time.Second)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/other"},
		{http.MethodPost, "/hello"},
		{http.MethodGet, "/hello/"},
	} {
		rec := doRequest(to.origin.Handler(), tc.method, tc.path, secretHeader(testSecret), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, tc.method+" "+tc.path)
		assert.JSONEq(t, util.NotFoundBody, rec.Body.String())
	}
	assert.Zero(t, to.authorizerCalls.Load())
}

func TestOrigin_InvocationFailures(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	hang := func(context.Context) { <-block }

	tests := []struct {
		name       string
		auth       invoke.AuthorizerHandler
		backend    invoke.IntegrationHandler
		wantStatus int
		wantBody   string
	}{
		{
			name: "authorizer timeout",
			auth: func(ctx context.Context, _ events.APIGatewayV2CustomAuthorizerV2Request,
			) (events.APIGatewayV2CustomAuthorizerSimpleResponse, error) {
				hang(ctx)
				return events.APIGatewayV2CustomAuthorizerSimpleResponse{IsAuthorized: true}, nil
			},
			wantStatus: http.StatusGatewayTimeout,
			wantBody:   util.GatewayTimeoutBody,
		},
		{
			name: "authorizer error",
			auth: func(context.Context, events.APIGatewayV2CustomAuthorizerV2Request,
			) (events.APIGatewayV2CustomAuthorizerSimpleResponse, error) {
				return events.APIGatewayV2CustomAuthorizerSimpleResponse{}, errors.New("boom")
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   util.InternalServerBody,
		},
		{
			name: "integration timeout",
			backend: func(ctx context.Context, _ events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
				hang(ctx)
				return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK}, nil
			},
			wantStatus: http.StatusGatewayTimeout,
			wantBody:   util.GatewayTimeoutBody,
		},
		{
			name: "integration error",
			backend: func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
				return events.APIGatewayV2HTTPResponse{}, errors.New("boom")
			},
			wantStatus: http.StatusBadGateway,
			wantBody:   util.BadGatewayBody,
		},
		{
			name: "integration panic",
			backend: func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
				panic("kaboom")
			},
			wantStatus: http.StatusBadGateway,
			wantBody:   util.BadGatewayBody,
		},
		{
			name: "integration invalid base64",
			backend: func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
				return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "***", IsBase64Encoded: true}, nil
			},
			wantStatus: http.StatusBadGateway,
			wantBody:   util.BadGatewayBody,
		},
		{
			name: "integration 5xx passes through",
			backend: func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
				return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusServiceUnavailable, Body: "down"}, nil
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			to := newTestOrigin(t, tt.auth, tt.backend, 50*time.Millisecond)
			rec := doRequest(to.origin.Handler(), http.MethodGet, "/hello", secretHeader(testSecret), nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
			if tt.auth != nil {
				assert.Zero(t, to.backendCalls.Load())
			}
		})
	}
}

func TestOrigin_ResponseMapping(t *testing.T) {
	t.Parallel()

	to := newTestOrigin(t, nil,
		func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
			return events.APIGatewayV2HTTPResponse{
				Headers:           map[string]string{"X-Custom": "one"},
				MultiValueHeaders: map[string][]string{"X-Multi": {"a", "b"}},
				Cookies:           []string{"a=1", "b=2; Path=/"},
				Body:              "aGVsbG8=",
				IsBase64Encoded:   true,
			}, nil
		}, time.Second)

	rec := doRequest(to.origin.Handler(), http.MethodGet, "/hello", secretHeader(testSecret), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.Equal(t, "one", rec.Header().Get("X-Custom"))
	assert.Equal(t, []string{"a", "b"}, rec.Header().Values("X-Multi"))
	assert.Equal(t, []string{"a=1", "b=2; Path=/"}, rec.Header().Values("Set-Cookie"))
}

func TestOrigin_EventMapping(t *testing.T) {
	t.Parallel()

	to := newTestOrigin(t, nil, nil, time.Second,
		WithClock(func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }))

	header := secretHeader(testSecret)
	header.Add("X-Multi", "a")
	header.Add("X-Multi", "b")
	header.Add("Cookie", "a=1; b=2")

	rec := doRequest(to.origin.Handler(), http.MethodGet, "/hello?x=1&x=2&y=3", header, []byte{0xff, 0xfe})
	require.Equal(t, http.StatusOK, rec.Code)

	event, ok := to.lastEvent.Load().(events.APIGatewayV2HTTPRequest)
	require.True(t, ok)

	assert.Equal(t, "2.0", event.Version)
	assert.Equal(t, "GET /hello", event.RouteKey)
	assert.Equal(t, "/hello", event.RawPath)
	assert.Equal(t, "x=1&x=2&y=3", event.RawQueryString)
	assert.Equal(t, map[string]string{"x": "1,2", "y": "3"}, event.QueryStringParameters)
	assert.Equal(t, "a,b", event.Headers["x-multi"])
	assert.Equal(t, testSecret, event.Headers["x-cfn-header"])
	assert.NotContains(t, event.Headers, "cookie")
	assert.Equal(t, []string{"a=1", "b=2"}, event.Cookies)
	assert.True(t, event.IsBase64Encoded)
	assert.Equal(t, "//4=", event.Body)

	rc := event.RequestContext
	assert.Equal(t, "abc123", rc.APIID)
	assert.Equal(t, "123456789012", rc.AccountID)
	assert.Equal(t, "$default", rc.Stage)
	assert.Equal(t, "01/Mar/2024:12:00:00 +0000", rc.Time)
	assert.Equal(t, int64(1709294400000), rc.TimeEpoch)
	assert.Equal(t, http.MethodGet, rc.HTTP.Method)
	assert.Equal(t, "/hello", rc.HTTP.Path)
	assert.Equal(t, "192.0.2.1", rc.HTTP.SourceIP)
	require.NotNil(t, rc.Authorizer)
	assert.Equal(t, "edge", rc.Authorizer.Lambda["principal"])
}

func TestOrigin_BodyTooLarge(t *testing.T) {
	t.Parallel()

	to := newTestOrigin(t, nil, nil, time.Second)
	rec := doRequest(to.origin.Handler(), http.MethodGet, "/hello", secretHeader(testSecret),
		[]byte(strings.Repeat("x", 2048)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, to.authorizerCalls.Load())
}

func TestOrigin_MissingHeaderDeniedBeforeBodyRead(t *testing.T) {
	t.Parallel()

	to := newTestOrigin(t, nil, nil, time.Second)

	body := &countingReader{r: strings.NewReader(strings.Repeat("x", 2048))}
	req := httptest.NewRequest(http.MethodGet, "/hello", body)
	rec := httptest.NewRecorder()
	to.origin.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, util.DeniedBody, rec.Body.String())
	assert.Zero(t, body.n)
	assert.Zero(t, to.authorizerCalls.Load())
	assert.Zero(t, to.backendCalls.Load())
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func TestOrigin_RouteArn(t *testing.T) {
	t.Parallel()

	to := newTestOrigin(t, nil, nil, time.Second)
	routes := to.origin.Routes().Routes()
	require.Len(t, routes, 1)

	assert.Equal(t, "arn:aws:execute-api:us-east-1:123456789012:abc123/$default/GET/hello",
		to.origin.RouteArn(routes[0]))
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	routes := newTestOrigin(t, nil, nil, time.Second).origin.Routes()

	tests := []struct {
		name   string
		cfg    Config
		routes *RouteTable
	}{
		{name: "no api id", cfg: Config{Region: "r", HeaderName: testHeader}, routes: routes},
		{name: "no region", cfg: Config{APIID: "a", HeaderName: testHeader}, routes: routes},
		{name: "no routes", cfg: Config{APIID: "a", Region: "r", HeaderName: testHeader}},
		{name: "bad header", cfg: Config{APIID: "a", Region: "r", HeaderName: "Via"}, routes: routes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.cfg, tt.routes)
			require.Error(t, err)
			assert.True(t, util.IsProvisioningError(err))
		})
	}
}
