// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *RequestInfo.
//
/*
Context
--------
This handler sits first in the chain so the access log and handlers can
read the same request id.  For every request it:

  1. Reuses a sane inbound X-Request-Id or mints a UUID, and echoes it on
     the response.
  2. Extracts the left-most client IP from X-Forwarded-For or X-Real-IP,
     falling back to `r.RemoteAddr`.
  3. Parses the User-Agent header.
  4. Performs a GeoLite2 lookup when a database is configured.

Notes
-----
  • All lookups are read-only, so the middleware is safe under
    concurrency.
  • Forwarded headers are trusted.  The server is meant to sit on a
    provisioning network, not the open internet.
*/
package requestinfo

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-Id"

const maxInboundID = 128

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich returns middleware that attaches *RequestInfo.  geo may be nil.
func Enrich(geo *GeoLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			info := &RequestInfo{
				ID:        requestID(r),
				IP:        ip,
				UA:        parseUA(r.UserAgent()),
				Geo:       geo.Lookup(ip),
				Timestamp: time.Now().UTC(),
			}

			w.Header().Set(HeaderRequestID, info.ID)
			next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), info)))
		})
	}
}

func requestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(HeaderRequestID)); id != "" && len(id) <= maxInboundID {
		return id
	}
	return uuid.NewString()
}

/*──────────────────────────── client IP helper ─────────────────────────────*/

// clientIP extracts the left-most address from X-Forwarded-For or
// X-Real-IP, falling back to r.RemoteAddr ("ip:port").
func clientIP(r *http.Request) net.IP {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip
			}
		}
	}
	if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
		if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(r.RemoteAddr)
}
