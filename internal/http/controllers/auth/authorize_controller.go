// Package auth contiene los controllers del flujo de autorización.
package auth

import (
	"errors"
	"net/http"

	dto "github.com/dropDatabas3/littlejohn/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/littlejohn/internal/http/errors"
	svc "github.com/dropDatabas3/littlejohn/internal/http/services/auth"
	"github.com/dropDatabas3/littlejohn/internal/observability/logger"
)

// AuthorizeController maneja GET /authorize
type AuthorizeController struct {
	service svc.AuthorizeService
}

// NewAuthorizeController crea un nuevo controller de authorize.
func NewAuthorizeController(service svc.AuthorizeService) *AuthorizeController {
	return &AuthorizeController{service: service}
}

// Redirect responde con un 302 al authorize endpoint del provider.
func (c *AuthorizeController) Redirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthorizeController.Redirect"))

	q := r.URL.Query()
	req := dto.AuthorizeRequest{
		ClientID:      q.Get("client_id"),
		State:         q.Get("state"),
		CodeChallenge: q.Get("code_challenge"),
		RedirectURI:   q.Get("redirect_uri"),
	}

	location, err := c.service.AuthorizeURL(ctx, req)
	if err != nil {
		log.Debug("authorize rejected", logger.Err(err))
		httperrors.WriteError(w, mapAuthorizeError(err))
		return
	}

	http.Redirect(w, r, location, http.StatusFound)
}

func mapAuthorizeError(err error) *httperrors.AppError {
	switch {
	case errors.Is(err, svc.ErrMissingParam):
		return httperrors.ErrMissingFields.WithDetail("client_id, state, code_challenge y redirect_uri son requeridos")
	case errors.Is(err, svc.ErrClientMismatch):
		return httperrors.ErrBadRequest.WithDetail("unknown client_id")
	default:
		return httperrors.ErrInternalServerError.WithCause(err)
	}
}
