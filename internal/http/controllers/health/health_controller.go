// Package health contiene los controllers de health/readiness.
package health

import (
	"net/http"

	"github.com/dropDatabas3/littlejohn/internal/cache"
	httperrors "github.com/dropDatabas3/littlejohn/internal/http/errors"
	"github.com/dropDatabas3/littlejohn/internal/observability/logger"
)

// Controller maneja /healthz y /readyz
type Controller struct {
	cache cache.Client
}

// NewController crea un controller de health.
func NewController(c cache.Client) *Controller {
	return &Controller{cache: c}
}

// Healthz: liveness simple.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readyz: readiness con ping al sustrato de cache.
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := c.cache.Ping(r.Context()); err != nil {
		logger.From(r.Context()).Warn("cache not ready", logger.Err(err))
		httperrors.WriteError(w, &httperrors.AppError{
			Code:       "NOT_READY",
			Message:    "El sustrato de cache no responde.",
			HTTPStatus: http.StatusServiceUnavailable,
			Err:        err,
		})
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
