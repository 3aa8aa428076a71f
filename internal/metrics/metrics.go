package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for the issuance and key lifecycle paths. Defined in a
// standalone package to avoid import cycles between keys and HTTP packages.

var (
	TokensIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "littlejohn_tokens_issued_total",
		Help: "Tokens de identidad emitidos",
	})

	KeyPairsGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "littlejohn_keypairs_generated_total",
		Help: "Pares de claves de firma generados (cache miss)",
	})

	KeyCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "littlejohn_key_cache_hits_total",
		Help: "Lecturas de la clave privada servidas desde cache",
	})

	JWKSUnavailable = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "littlejohn_jwks_unavailable_total",
		Help: "Requests de discovery sin clave pública en cache",
	})

	UpstreamLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "littlejohn_upstream_latency_ms",
		Help:    "Latencia de llamadas al identity provider en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"call"})
)

// Register registers all metrics on the given registry (or default if nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		TokensIssued,
		KeyPairsGenerated,
		KeyCacheHits,
		JWKSUnavailable,
		UpstreamLatency,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
