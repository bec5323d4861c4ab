package http

import (
	"context"
	"net"
	"net/http"
	"time"
)

// NewServer returns a server whose request contexts are cancelled as soon as
// Shutdown starts, so open cart event streams end and their connections can
// drain.
func NewServer(addr string, handler http.Handler) *http.Server {
	base, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	srv.RegisterOnShutdown(cancel)
	return srv
}
