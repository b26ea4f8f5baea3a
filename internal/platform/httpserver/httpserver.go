// Package httpserver constructs the admin API's http.Server.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server for the given address. Per-request deadlines are
// owned by the router's timeout middleware; only the header read is bounded
// here so a stalled client cannot hold a connection open indefinitely.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
