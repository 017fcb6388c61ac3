package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewClientIPExtractor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		proxies     []string
		wantPrefixs int
	}{
		{name: "nil proxies", proxies: nil, wantPrefixs: 0},
		{name: "empty proxies", proxies: []string{}, wantPrefixs: 0},
		{name: "single CIDR", proxies: []string{"10.0.0.0/8"}, wantPrefixs: 1},
		{name: "multiple CIDRs", proxies: []string{"10.0.0.0/8", "172.16.0.0/12"}, wantPrefixs: 2},
		{name: "single IP", proxies: []string{"192.168.1.1"}, wantPrefixs: 1},
		{name: "invalid entries skipped", proxies: []string{"not-an-ip", "10.0.0.0/8"}, wantPrefixs: 1},
		{name: "IPv6 CIDR", proxies: []string{"2001:db8::/32"}, wantPrefixs: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := NewClientIPExtractor(tt.proxies)
			assert.Len(t, e.trusted, tt.wantPrefixs)
		})
	}
}

func TestClientIPExtractor_Extract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		proxies    []string
		remoteAddr string
		xff        []string
		want       string
		wantOK     bool
	}{
		{
			name:       "no trusted proxies uses remote addr",
			remoteAddr: "203.0.113.5:4321",
			want:       "203.0.113.5",
			wantOK:     true,
		},
		{
			name:       "no trusted proxies ignores spoofed XFF",
			remoteAddr: "198.51.100.9:4321",
			xff:        []string{"203.0.113.5"},
			want:       "198.51.100.9",
			wantOK:     true,
		},
		{
			name:       "untrusted peer ignores XFF",
			proxies:    []string{"10.0.0.0/8"},
			remoteAddr: "198.51.100.9:1234",
			xff:        []string{"203.0.113.5"},
			want:       "198.51.100.9",
			wantOK:     true,
		},
		{
			name:       "trusted peer uses rightmost untrusted hop",
			proxies:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.1:1234",
			xff:        []string{"1.2.3.4, 203.0.113.5, 10.0.0.2"},
			want:       "203.0.113.5",
			wantOK:     true,
		},
		{
			name:       "trusted peer with multiple XFF headers",
			proxies:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.1:1234",
			xff:        []string{"1.2.3.4", "203.0.113.7"},
			want:       "203.0.113.7",
			wantOK:     true,
		},
		{
			name:       "trusted peer without XFF",
			proxies:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.1:1234",
			want:       "10.0.0.1",
			wantOK:     true,
		},
		{
			name:       "all hops trusted returns leftmost",
			proxies:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.1:1234",
			xff:        []string{"10.0.0.3, 10.0.0.2"},
			want:       "10.0.0.3",
			wantOK:     true,
		},
		{
			name:       "garbage hop falls back to last trusted",
			proxies:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.1:1234",
			xff:        []string{"garbage, 10.0.0.2"},
			want:       "10.0.0.2",
			wantOK:     true,
		},
		{
			name:       "IPv6 remote addr",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
			wantOK:     true,
		},
		{
			name:       "IPv4-mapped IPv6 is unmapped",
			remoteAddr: "[::ffff:203.0.113.5]:443",
			want:       "203.0.113.5",
			wantOK:     true,
		},
		{
			name:       "remote addr without port",
			remoteAddr: "203.0.113.5",
			want:       "203.0.113.5",
			wantOK:     true,
		},
		{
			name:       "unparsable remote addr",
			remoteAddr: "bogus",
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewClientIPExtractor(tt.proxies)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for _, v := range tt.xff {
				req.Header.Add(HeaderXForwardedFor, v)
			}

			got, ok := e.Extract(req)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}
