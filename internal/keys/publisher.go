package keys

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"

	"github.com/dropDatabas3/littlejohn/internal/cache"
	"github.com/dropDatabas3/littlejohn/internal/metrics"
	"github.com/dropDatabas3/littlejohn/internal/observability/logger"
)

// ErrKeyUnavailable indica que nunca se cacheó (o ya expiró) la pubkey.
// En el boundary HTTP se traduce a 404.
var ErrKeyUnavailable = errors.New("keys: no public signing key cached")

// Publisher expone la mitad pública cacheada como documento de discovery.
type Publisher struct {
	cache cache.Client
}

// NewPublisher crea un Publisher sobre el mismo sustrato que usa el Manager.
func NewPublisher(c cache.Client) *Publisher {
	return &Publisher{cache: c}
}

// ----- JWKS (serialización) -----

type jwk struct {
	Kty string `json:"kty"` // "RSA"
	Kid string `json:"kid"`
	Alg string `json:"alg"` // "RS256"
	Use string `json:"use"` // "sig"
	N   string `json:"n"`   // base64url(modulus)
	E   string `json:"e"`   // base64url(exponent)
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// Publish arma el JWKS con exactamente un descriptor: el de la clave pública
// actualmente cacheada. Retorna ErrKeyUnavailable si la entrada no existe.
func (p *Publisher) Publish(ctx context.Context) (json.RawMessage, error) {
	raw, err := p.cache.Get(ctx, publicCacheKey)
	if err != nil {
		if cache.IsNotFound(err) {
			metrics.JWKSUnavailable.Inc()
			return nil, ErrKeyUnavailable
		}
		return nil, err
	}

	kid, pub, err := decodePublic(raw)
	if err != nil {
		logger.From(ctx).Warn("cached public key unreadable",
			logger.Layer("keys"),
			logger.Op("Publish"),
			logger.Err(err),
		)
		return nil, ErrKeyUnavailable
	}

	doc := jwks{
		Keys: []jwk{{
			Kty: "RSA",
			Kid: kid,
			Alg: Alg,
			Use: "sig",
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	b, _ := json.Marshal(doc)
	return b, nil
}
