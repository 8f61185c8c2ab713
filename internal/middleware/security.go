// internal/middleware/security.go
//
// Security-header middleware.
//
// Injects headers suited to a service that returns provisioning documents
// (plain text and JSON, never HTML):
//
//   • Cache-Control             –  no-store, documents carry credentials
//   • Content-Security-Policy   –  nothing may load or frame the response
//   • X-Frame-Options           –  click-jacking defence
//   • X-Content-Type-Options    –  MIME-sniffing defence
//   • Referrer-Policy           –  no referrer at all
//
// Notes
// -----
// • Headers are set *before* next.ServeHTTP because a handler that has
//   written its body can no longer change them.  Handlers may still
//   overwrite any of them.
// • No HSTS.  The server speaks plain HTTP on a provisioning network.

package middleware

import "net/http"

// Security sets security headers for every response.
func Security(next http.Handler) http.Handler {
	const (
		cache = "no-store"
		csp   = "default-src 'none'; frame-ancestors 'none'"
		xfo   = "DENY"
		nosn  = "nosniff"
		refer = "no-referrer"
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", cache)
		h.Set("Content-Security-Policy", csp)
		h.Set("X-Frame-Options", xfo)
		h.Set("X-Content-Type-Options", nosn)
		h.Set("Referrer-Policy", refer)

		next.ServeHTTP(w, r)
	})
}
