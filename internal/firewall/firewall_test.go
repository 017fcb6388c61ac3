package firewall

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

func newTestFirewall(t *testing.T, values []string, opts ...Option) *Firewall {
	t.Helper()

	list, err := ParseAllowList(values)
	require.NoError(t, err)
	fw, err := New(list, opts...)
	require.NoError(t, err)
	return fw
}

func TestNew_RequiresAllowList(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.Error(t, err)
	assert.True(t, util.IsProvisioningError(err))

	_, err = New(&AllowList{})
	assert.True(t, util.IsProvisioningError(err))
}

func TestNew_WarnsOnAllowAll(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	newTestFirewall(t, []string{"0.0.0.0/0"}, WithLogger(observability.NewLoggerFromZap(zap.New(core))))

	assert.Equal(t, 1, logs.FilterMessage("allow-list entry admits every address of its family").Len())
}

func TestFirewall_Evaluate(t *testing.T) {
	t.Parallel()

	fw := newTestFirewall(t, []string{"203.0.113.0/24"})

	assert.Equal(t, VerdictPass, fw.Evaluate(netip.MustParseAddr("203.0.113.10")))
	assert.Equal(t, VerdictReject, fw.Evaluate(netip.MustParseAddr("198.51.100.9")))
	assert.Equal(t, VerdictReject, fw.Evaluate(netip.Addr{}))
	assert.Equal(t, VerdictPass, fw.EvaluateString("203.0.113.200"))
	assert.Equal(t, VerdictReject, fw.EvaluateString("garbage"))
	assert.Equal(t, 1, fw.AllowList().Len())
}

func TestFirewall_Middleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		proxies    []string
		remoteAddr string
		xff        string
		wantStatus int
		wantCalled bool
	}{
		{name: "allowed", remoteAddr: "203.0.113.10:5000", wantStatus: http.StatusOK, wantCalled: true},
		{name: "rejected", remoteAddr: "198.51.100.9:5000", wantStatus: http.StatusForbidden},
		{name: "unparsable remote addr", remoteAddr: "nowhere", wantStatus: http.StatusForbidden},
		{
			name:       "spoofed XFF without trusted proxy",
			remoteAddr: "198.51.100.9:5000",
			xff:        "203.0.113.10",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "XFF through trusted proxy",
			proxies:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:5000",
			xff:        "203.0.113.10",
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			metrics := observability.NewMetrics("")
			fw := newTestFirewall(t, []string{"203.0.113.0/24"},
				WithTrustedProxies(tt.proxies), WithMetrics(metrics))

			called := false
			var clientIP string
			h := fw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				clientIP = util.ClientIPFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/hello", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			if tt.wantCalled {
				assert.Equal(t, "203.0.113.10", clientIP)
			} else {
				assert.Equal(t, util.DeniedBody, rec.Body.String())
			}
		})
	}
}
