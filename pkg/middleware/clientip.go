package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the caller's IP. When trustForwardedFor is set, the first
// valid address in X-Forwarded-For wins; otherwise only RemoteAddr is used.
func ClientIP(r *http.Request, trustForwardedFor bool) string {
	if trustForwardedFor {
		if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
			for _, part := range strings.Split(xf, ",") {
				ip := strings.TrimSpace(part)
				if ip == "" {
					continue
				}
				if net.ParseIP(ip) != nil {
					return ip
				}
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		if net.ParseIP(host) != nil {
			return host
		}
	} else if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}

	return r.RemoteAddr
}
