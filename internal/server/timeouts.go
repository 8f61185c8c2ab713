// internal/server/timeouts.go
//
// HTTP server helper with explicit timeouts.
//
//   • ReadHeaderTimeout – abort slow-loris headers (5 s)
//   • ReadTimeout       – cap request read time (10 s)
//   • WriteTimeout      – cap total response time (15 s)
//   • IdleTimeout       – close keep-alives on idle clients (60 s)
//
// Rendering is in-memory, so any request that hits these limits is a
// misbehaving client, not a slow document.

package server

import (
	"net"
	"net/http"
	"strconv"
	"time"
)

// New constructs an *http.Server for addr with the defaults above.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Addr joins host and port, bracketing IPv6 literals.
func Addr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
