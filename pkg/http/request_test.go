package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/folio/pkg/http"
	"github.com/stretchr/testify/assert"
)

var internalProxies = &pkghttp.IPConfig{
	TrustedProxies: []string{"10.0.0.0/8", "172.16.0.0/12", "127.0.0.1/32"},
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        []string
		xRealIP    string
		config     *pkghttp.IPConfig
		expected   string
	}{
		{
			name:       "direct client ignores forwarding headers",
			remoteAddr: "203.0.113.10:54321",
			xff:        []string{"1.2.3.4, 5.6.7.8"},
			xRealIP:    "192.168.1.1",
			config:     internalProxies,
			expected:   "203.0.113.10",
		},
		{
			name:       "trusted proxy forwards client",
			remoteAddr: "10.0.0.1:8080",
			xff:        []string{"203.0.113.42"},
			config:     internalProxies,
			expected:   "203.0.113.42",
		},
		{
			name:       "rightmost untrusted hop wins over client-supplied prefix",
			remoteAddr: "10.0.0.1:8080",
			xff:        []string{"1.1.1.1, 203.0.113.42, 10.0.0.7"},
			config:     internalProxies,
			expected:   "203.0.113.42",
		},
		{
			name:       "repeated headers are joined",
			remoteAddr: "10.0.0.1:8080",
			xff:        []string{"1.1.1.1", "203.0.113.42"},
			config:     internalProxies,
			expected:   "203.0.113.42",
		},
		{
			name:       "malformed hop stops the walk",
			remoteAddr: "10.0.0.1:8080",
			xff:        []string{"203.0.113.42, garbage"},
			config:     internalProxies,
			expected:   "10.0.0.1",
		},
		{
			name:       "X-Real-IP used when X-Forwarded-For absent",
			remoteAddr: "10.0.0.1:8080",
			xRealIP:    "203.0.113.50",
			config:     internalProxies,
			expected:   "203.0.113.50",
		},
		{
			name:       "ipv6 through trusted proxy",
			remoteAddr: "[::1]:8080",
			xff:        []string{"2001:db8::1"},
			config:     &pkghttp.IPConfig{TrustedProxies: []string{"::1/128"}},
			expected:   "2001:db8::1",
		},
		{
			name:       "ipv4-mapped address is unmapped",
			remoteAddr: "[::ffff:203.0.113.10]:443",
			expected:   "203.0.113.10",
		},
		{
			name:       "nil config trusts nobody",
			remoteAddr: "203.0.113.10:54321",
			xff:        []string{"1.2.3.4"},
			expected:   "203.0.113.10",
		},
		{
			name:       "invalid CIDR ranges are skipped",
			remoteAddr: "203.0.113.10:54321",
			xff:        []string{"1.2.3.4"},
			config:     &pkghttp.IPConfig{TrustedProxies: []string{"invalid-cidr", "300.0.0.0/8"}},
			expected:   "203.0.113.10",
		},
		{
			name:       "remote without port",
			remoteAddr: "203.0.113.10",
			expected:   "203.0.113.10",
		},
		{
			name:       "localhost header spoof from outside",
			remoteAddr: "203.0.113.10:54321",
			xff:        []string{"127.0.0.1"},
			config:     internalProxies,
			expected:   "203.0.113.10",
		},
		{
			name:       "empty remote is unknown",
			remoteAddr: "",
			expected:   pkghttp.UnknownIP,
		},
		{
			name:       "unparseable remote is unknown",
			remoteAddr: "not-an-ip:80",
			expected:   pkghttp.UnknownIP,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for _, v := range tt.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}

			assert.Equal(t, tt.expected, pkghttp.ExtractClientIP(req, tt.config))
		})
	}
}
