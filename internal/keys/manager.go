package keys

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/littlejohn/internal/cache"
	"github.com/dropDatabas3/littlejohn/internal/metrics"
	"github.com/dropDatabas3/littlejohn/internal/observability/logger"
)

// Manager es el dueño del par de firma: lo levanta de cache o lo regenera.
//
// La generación está protegida por single-flight: N requests concurrentes
// sobre el mismo miss esperan UNA generación compartida en vez de generar
// N pares que se pisan entre sí.
type Manager struct {
	cache cache.Client
	ttl   time.Duration
	sf    singleflight.Group
}

// NewManager crea un Manager. ttl aplica a ambas mitades por igual.
func NewManager(c cache.Client, ttl time.Duration) *Manager {
	return &Manager{cache: c, ttl: ttl}
}

// Acquire devuelve la clave privada usable para firmar.
//
//  1. Busca la entrada privada en cache; si está, la deserializa y retorna.
//  2. En miss (o entrada corrupta) genera un par nuevo bajo single-flight,
//     escribe ambas mitades con el mismo TTL y ESPERA esas escrituras antes
//     de retornar: un token emitido siempre tiene su pubkey visible para
//     discovery apenas la respuesta sale del server.
func (m *Manager) Acquire(ctx context.Context) (*KeyMaterial, error) {
	log := logger.From(ctx).With(
		logger.Layer("keys"),
		logger.Op("Acquire"),
	)

	raw, err := m.cache.Get(ctx, privateCacheKey)
	if err == nil {
		km, derr := decodePrivate(raw)
		if derr == nil {
			metrics.KeyCacheHits.Inc()
			return km, nil
		}
		// Entrada ilegible: se trata igual que un miss y se regenera.
		log.Warn("cached signing key unreadable, regenerating", logger.Err(derr))
	} else if !cache.IsNotFound(err) {
		return nil, err
	}

	v, err, shared := m.sf.Do(privateCacheKey, func() (any, error) {
		return m.generateAndStore(ctx)
	})
	if err != nil {
		return nil, err
	}
	km := v.(*KeyMaterial)
	if shared {
		log.Debug("signing key generation shared with concurrent caller", logger.KID(km.KID))
	}
	return km, nil
}

// generateAndStore genera el par y persiste ambas mitades como una unidad:
// mismo TTL, escrituras esperadas, pública primero. Si una escritura falla,
// la adquisición falla completa (consistencia sobre disponibilidad).
func (m *Manager) generateAndStore(ctx context.Context) (*KeyMaterial, error) {
	log := logger.From(ctx).With(
		logger.Layer("keys"),
		logger.Op("generateAndStore"),
	)

	km, err := generate()
	if err != nil {
		return nil, err
	}

	pubEntry, err := km.encodePublic()
	if err != nil {
		return nil, err
	}
	privEntry, err := km.encodePrivate()
	if err != nil {
		return nil, err
	}

	if err := m.cache.Set(ctx, publicCacheKey, pubEntry, m.ttl); err != nil {
		return nil, err
	}
	if err := m.cache.Set(ctx, privateCacheKey, privEntry, m.ttl); err != nil {
		return nil, err
	}

	metrics.KeyPairsGenerated.Inc()
	log.Info("generated signing key pair",
		logger.KID(km.KID),
		logger.String("alg", km.Alg),
		logger.Duration(m.ttl),
	)
	return km, nil
}
