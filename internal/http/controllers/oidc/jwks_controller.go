// Package oidc contiene los controllers para endpoints de discovery.
package oidc

import (
	"errors"
	"net/http"

	httperrors "github.com/dropDatabas3/littlejohn/internal/http/errors"
	svc "github.com/dropDatabas3/littlejohn/internal/http/services/oidc"
	"github.com/dropDatabas3/littlejohn/internal/keys"
	"github.com/dropDatabas3/littlejohn/internal/observability/logger"
)

// JWKSController maneja /.well-known/jwks.json
type JWKSController struct {
	service svc.JWKSService
}

// NewJWKSController crea un nuevo controller JWKS.
func NewJWKSController(service svc.JWKSService) *JWKSController {
	return &JWKSController{service: service}
}

// Get responde el JWKS actual, o 404 si nunca se cacheó una clave pública.
func (c *JWKSController) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("JWKSController.Get"))

	w.Header().Set("Cache-Control", "no-store")

	data, err := c.service.GetJWKS(ctx)
	if err != nil {
		if errors.Is(err, keys.ErrKeyUnavailable) {
			httperrors.WriteError(w, httperrors.ErrKeyUnavailable)
			return
		}
		log.Error("failed to get JWKS", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
