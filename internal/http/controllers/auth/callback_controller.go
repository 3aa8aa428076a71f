package auth

import (
	"errors"
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/littlejohn/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/littlejohn/internal/http/errors"
	"github.com/dropDatabas3/littlejohn/internal/http/helpers"
	svc "github.com/dropDatabas3/littlejohn/internal/http/services/auth"
	"github.com/dropDatabas3/littlejohn/internal/observability/logger"
)

// CallbackController maneja POST /callback
type CallbackController struct {
	service svc.IssueService
}

// NewCallbackController crea un nuevo controller de callback.
func NewCallbackController(service svc.IssueService) *CallbackController {
	return &CallbackController{service: service}
}

// Callback intercambia el authorization code y responde {id_token}.
// verified=false en el perfil upstream produce 403, nunca un token.
func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CallbackController.Callback"))

	req, ok := parseCallbackBody(w, r)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("body inválido"))
		return
	}

	idToken, err := c.service.Issue(ctx, helpers.Origin(r), req)
	if err != nil {
		log.Debug("issuance failed", logger.Err(err))
		httperrors.WriteError(w, mapIssueError(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.CallbackResponse{IDToken: idToken})
}

// parseCallbackBody acepta form-encoded (el contrato) y JSON (tolerancia).
func parseCallbackBody(w http.ResponseWriter, r *http.Request) (dto.CallbackRequest, bool) {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if strings.Contains(ct, "application/json") {
		var req dto.CallbackRequest
		if !helpers.ReadJSON(r, w, &req) {
			return dto.CallbackRequest{}, false
		}
		return req, true
	}

	if err := r.ParseForm(); err != nil {
		return dto.CallbackRequest{}, false
	}
	return dto.CallbackRequest{
		Code:         r.PostFormValue("code"),
		CodeVerifier: r.PostFormValue("code_verifier"),
		RedirectURI:  r.PostFormValue("redirect_uri"),
		GrantType:    r.PostFormValue("grant_type"),
	}, true
}

func mapIssueError(err error) *httperrors.AppError {
	switch {
	case errors.Is(err, svc.ErrMissingParam):
		return httperrors.ErrMissingFields.WithDetail("code es requerido")
	case errors.Is(err, svc.ErrUnverifiedIdentity):
		return httperrors.ErrAccountNotVerified
	case errors.Is(err, svc.ErrUpstream):
		return httperrors.ErrUpstreamRejected.WithCause(err)
	default:
		return httperrors.ErrInternalServerError.WithCause(err)
	}
}
