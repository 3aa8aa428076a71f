// Package auth contiene los services del flujo de autorización e issuance.
package auth

import (
	"context"
	"fmt"
	"strings"

	dto "github.com/dropDatabas3/littlejohn/internal/http/dto/auth"
	"github.com/dropDatabas3/littlejohn/internal/observability/logger"
	"github.com/dropDatabas3/littlejohn/internal/provider/discord"
)

// Service errors
var (
	ErrMissingParam   = fmt.Errorf("missing required parameter")
	ErrClientMismatch = fmt.Errorf("client_id does not match configured client")
)

// AuthorizeService construye la URL de redirect al authorize del provider.
type AuthorizeService interface {
	AuthorizeURL(ctx context.Context, req dto.AuthorizeRequest) (string, error)
}

type authorizeService struct {
	provider *discord.Client
	clientID string
}

// NewAuthorizeService crea un AuthorizeService.
func NewAuthorizeService(provider *discord.Client, clientID string) AuthorizeService {
	return &authorizeService{provider: provider, clientID: clientID}
}

// AuthorizeURL valida los parámetros y arma el redirect con scope fijo,
// response_type=code y code_challenge_method=S256.
func (s *authorizeService) AuthorizeURL(ctx context.Context, req dto.AuthorizeRequest) (string, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.authorize"),
		logger.Op("AuthorizeURL"),
	)

	clientID := strings.TrimSpace(req.ClientID)
	state := strings.TrimSpace(req.State)
	challenge := strings.TrimSpace(req.CodeChallenge)
	redirectURI := strings.TrimSpace(req.RedirectURI)

	if clientID == "" || state == "" || challenge == "" || redirectURI == "" {
		return "", ErrMissingParam
	}
	if !strings.EqualFold(clientID, s.clientID) {
		log.Debug("client_id mismatch", logger.String("got", clientID))
		return "", ErrClientMismatch
	}

	return s.provider.AuthorizeURL(state, challenge, redirectURI), nil
}
