package ratelimit

import (
	"net"
	"net/http"
	"strings"

	"github.com/mihaimyh/premiumgate/pkg/premium"
)

// Middleware rejects requests over the limit with 429. Limiter errors let the
// request through and are logged. trustedProxyHops is the number of reverse
// proxies in front of the service; see ClientIP.
func Middleware(limiter Limiter, trustedProxyHops int, logger premium.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = &premium.NoopLogger{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r, trustedProxyHops)
			allowed, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request",
					premium.Field{Key: "client_ip", Value: ip},
					premium.Field{Key: "error", Value: err},
				)
				allowed = true
			}
			if !allowed {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the address the limiter keys on.
//
// With trustedProxyHops == 0 X-Forwarded-For is ignored and the host part of
// RemoteAddr is used. Otherwise the entry appended by the outermost trusted
// proxy is used: the trustedProxyHops-th X-Forwarded-For entry counted from
// the right. Entries left of it are client-supplied and never consulted.
func ClientIP(r *http.Request, trustedProxyHops int) string {
	if trustedProxyHops > 0 {
		var hops []string
		for _, header := range r.Header.Values("X-Forwarded-For") {
			for _, hop := range strings.Split(header, ",") {
				hops = append(hops, strings.TrimSpace(hop))
			}
		}
		if len(hops) >= trustedProxyHops {
			if ip := hops[len(hops)-trustedProxyHops]; ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
