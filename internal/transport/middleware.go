// middleware.go — loopback-only CORS/Host validation, adapted from the
// teacher's cmd/dev-console/server_middleware.go corsMiddleware/isAllowedHost
// to this module's single trust model (no browser-extension TOFU pairing —
// SPEC_FULL's Non-goals exclude multi-tenant auth, loopback binding is the
// only boundary this transport needs).
package transport

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// isAllowedHost rejects anything but localhost/127.0.0.1/::1, with or
// without a port, guarding against DNS-rebinding attacks.
func isAllowedHost(host string) bool {
	if host == "" {
		return true
	}
	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}
	hostname = strings.TrimPrefix(hostname, "[")
	hostname = strings.TrimSuffix(hostname, "]")
	return hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1"
}

func isAllowedOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	hostname := u.Hostname()
	return hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1"
}

func loopbackOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !isAllowedHost(r.Host) {
			http.Error(w, `{"error":"forbidden: invalid host"}`, http.StatusForbidden)
			return
		}
		origin := r.Header.Get("Origin")
		if origin != "" && !isAllowedOrigin(origin) {
			http.Error(w, `{"error":"forbidden: invalid origin"}`, http.StatusForbidden)
			return
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}
