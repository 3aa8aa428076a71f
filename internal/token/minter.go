// Package token arma y firma el token de identidad auto-emitido.
package token

import (
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/littlejohn/internal/keys"
)

// MintInput son los claims verificados que viajan en el token.
type MintInput struct {
	// Issuer es el origin del request entrante.
	Issuer string
	// Audience es el client id configurado.
	Audience string
	// Subject es el id verificado del usuario upstream.
	Subject string
	// Email siempre va como custom claim.
	Email string
	// Guilds va SOLO si GuildsOK: ausente (no vacío) cuando el fetch de
	// membership no respondió éxito. Con éxito y lista vacía, el claim va
	// presente y vacío.
	Guilds   []string
	GuildsOK bool
}

// Minter firma tokens de identidad con la clave provista por el Manager.
type Minter struct {
	ttl time.Duration
}

// NewMinter crea un Minter con el TTL fijo de los tokens emitidos.
func NewMinter(ttl time.Duration) *Minter {
	return &Minter{ttl: ttl}
}

// Mint construye y firma el token. El header lleva alg y el MISMO kid que
// publica el Publisher para esa clave. No hay retry: un fallo de firma es
// fatal para el request.
func (m *Minter) Mint(in MintInput, key *keys.KeyMaterial) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(m.ttl)

	claims := jwtv5.MapClaims{
		"iss":   in.Issuer,
		"aud":   in.Audience,
		"sub":   in.Subject,
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"exp":   exp.Unix(),
		"email": in.Email,
	}
	if in.GuildsOK {
		guilds := in.Guilds
		if guilds == nil {
			guilds = []string{}
		}
		claims["guilds"] = guilds
	}

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	tk.Header["kid"] = key.KID
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(key.Private)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token: sign: %w", err)
	}
	return signed, exp, nil
}
