package common

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the caller address as seen by the outermost of trustedHops
// reverse proxies. Each trusted proxy appends one X-Forwarded-For entry, so the
// entry trustedHops from the right is the first one a client cannot forge.
// With trustedHops <= 0, or when fewer entries are present, the TCP peer is used.
func ClientIP(r *http.Request, trustedHops int) string {
	if r == nil {
		return ""
	}
	if trustedHops > 0 {
		if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
			parts := strings.Split(xff, ",")
			if len(parts) >= trustedHops {
				if candidate := strings.TrimSpace(parts[len(parts)-trustedHops]); candidate != "" {
					return candidate
				}
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
