package httpserver

import (
	"net/http"
	"time"
)

// New builds the registry's HTTP server. Per-request deadlines live in the
// router's timeout middleware; the server only guards against slow headers
// and idle keep-alive connections.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
