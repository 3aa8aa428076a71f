// Package http expone el arranque del servidor.
package http

import (
	"net/http"
	"time"
)

// Start levanta el servidor HTTP y bloquea hasta que termine.
func Start(addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
