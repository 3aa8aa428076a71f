// Package oidc contiene los services para endpoints de discovery.
package oidc

import (
	"context"
	"encoding/json"

	"github.com/dropDatabas3/littlejohn/internal/keys"
	"github.com/dropDatabas3/littlejohn/internal/observability/logger"
)

// JWKSService define las operaciones para obtener el JWKS.
type JWKSService interface {
	GetJWKS(ctx context.Context) (json.RawMessage, error)
}

type jwksService struct {
	publisher *keys.Publisher
}

// NewJWKSService crea un nuevo servicio JWKS.
func NewJWKSService(publisher *keys.Publisher) JWKSService {
	return &jwksService{publisher: publisher}
}

// GetJWKS retorna el documento con el descriptor de la clave pública actual.
// Propaga keys.ErrKeyUnavailable cuando no hay clave cacheada.
func (s *jwksService) GetJWKS(ctx context.Context) (json.RawMessage, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("oidc.jwks"),
		logger.Op("GetJWKS"),
	)

	data, err := s.publisher.Publish(ctx)
	if err != nil {
		log.Debug("jwks unavailable", logger.Err(err))
		return nil, err
	}
	return data, nil
}
