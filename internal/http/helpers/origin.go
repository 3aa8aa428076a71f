package helpers

import (
	"net/http"
	"strings"
)

// Origin reconstruye el origin del request entrante (scheme://host),
// respetando los headers de proxy. Se usa como issuer del token emitido.
func Origin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return scheme + "://" + host
}
