package common

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name string
		xff  string
		hops int
		want string
	}{
		{"no proxy ignores header", "1.1.1.1", 0, "10.0.0.9"},
		{"one hop takes right-most", "6.6.6.6, 203.0.113.7", 1, "203.0.113.7"},
		{"forged prefix ignored", "1.1.1.1, 2.2.2.2, 203.0.113.7", 1, "203.0.113.7"},
		{"two hops", "203.0.113.7, 10.1.1.1", 2, "203.0.113.7"},
		{"short header falls back to peer", "203.0.113.7", 2, "10.0.0.9"},
		{"no header", "", 1, "10.0.0.9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = "10.0.0.9:4321"
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			require.Equal(t, tc.want, ClientIP(req, tc.hops))
		})
	}
}
