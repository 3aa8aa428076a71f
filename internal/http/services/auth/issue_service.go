package auth

import (
	"context"
	"fmt"
	"strings"

	dto "github.com/dropDatabas3/littlejohn/internal/http/dto/auth"
	"github.com/dropDatabas3/littlejohn/internal/keys"
	"github.com/dropDatabas3/littlejohn/internal/metrics"
	"github.com/dropDatabas3/littlejohn/internal/observability/logger"
	"github.com/dropDatabas3/littlejohn/internal/provider/discord"
	"github.com/dropDatabas3/littlejohn/internal/token"
)

// Service errors
var (
	// ErrUpstream envuelve cualquier respuesta no exitosa del provider.
	// Terminal para el request: sin retry ni backoff.
	ErrUpstream = fmt.Errorf("upstream rejected")

	// ErrUnverifiedIdentity: el perfil llegó con verified=false.
	ErrUnverifiedIdentity = fmt.Errorf("identity email not verified")
)

// IssueService orquesta el callback: exchange → profile → memberships →
// clave de firma → token firmado. Las tres llamadas upstream son
// estrictamente secuenciales.
type IssueService interface {
	Issue(ctx context.Context, origin string, req dto.CallbackRequest) (string, error)
}

// IssueDeps contiene las dependencias del service.
type IssueDeps struct {
	Provider *discord.Client
	Keys     *keys.Manager
	Minter   *token.Minter
	// Audience es el client id configurado, va en el claim aud.
	Audience string
}

type issueService struct {
	provider *discord.Client
	keys     *keys.Manager
	minter   *token.Minter
	audience string
}

// NewIssueService crea un IssueService.
func NewIssueService(deps IssueDeps) IssueService {
	return &issueService{
		provider: deps.Provider,
		keys:     deps.Keys,
		minter:   deps.Minter,
		audience: deps.Audience,
	}
}

// Issue emite un id_token para el authorization code recibido.
// origin es el origin del request entrante y se convierte en el issuer.
func (s *issueService) Issue(ctx context.Context, origin string, req dto.CallbackRequest) (string, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.issue"),
		logger.Op("Issue"),
	)

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return "", ErrMissingParam
	}

	// 1. Authorization code → access token del provider.
	tok, err := s.provider.ExchangeCode(ctx, code, req.CodeVerifier, req.RedirectURI, req.GrantType)
	if err != nil {
		log.Warn("token exchange failed", logger.Provider("discord"), logger.Err(err))
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	// 2. Perfil verificado.
	user, err := s.provider.FetchUser(ctx, tok.AccessToken)
	if err != nil {
		log.Warn("profile fetch failed", logger.Provider("discord"), logger.Err(err))
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if !user.Verified {
		log.Info("rejected unverified identity", logger.Subject(user.ID))
		return "", ErrUnverifiedIdentity
	}

	// 3. Memberships: no-éxito degrada omitiendo el claim, nunca falla el
	// request. Solo un error de transporte sigue siendo terminal.
	guilds, guildsOK, err := s.provider.FetchGuilds(ctx, tok.AccessToken)
	if err != nil {
		log.Warn("guild fetch failed", logger.Provider("discord"), logger.Err(err))
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	var guildIDs []string
	if guildsOK {
		guildIDs = make([]string, 0, len(guilds))
		for _, g := range guilds {
			guildIDs = append(guildIDs, g.ID)
		}
	}

	// 4. Clave de firma (cacheada o regenerada bajo single-flight).
	key, err := s.keys.Acquire(ctx)
	if err != nil {
		log.Error("failed to acquire signing key", logger.Err(err))
		return "", err
	}

	// 5. Firma. Sin retry: un fallo acá es fatal para el request.
	signed, _, err := s.minter.Mint(token.MintInput{
		Issuer:   origin,
		Audience: s.audience,
		Subject:  user.ID,
		Email:    user.Email,
		Guilds:   guildIDs,
		GuildsOK: guildsOK,
	}, key)
	if err != nil {
		log.Error("failed to sign token", logger.KID(key.KID), logger.Err(err))
		return "", err
	}

	metrics.TokensIssued.Inc()
	log.Info("issued identity token",
		logger.Subject(user.ID),
		logger.Audience(s.audience),
		logger.Issuer(origin),
		logger.KID(key.KID),
	)
	return signed, nil
}
