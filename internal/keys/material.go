// Package keys implementa el ciclo de vida de la clave de firma: generación
// perezosa, persistencia en cache con TTL y publicación de la mitad pública.
package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"

	"github.com/google/uuid"
)

// Alg es el algoritmo de firma de todos los tokens emitidos.
const Alg = "RS256"

const rsaBits = 2048

// Cache keys fijas para cada mitad del par. El kid versionado viaja ADENTRO
// de la entrada: rotar nunca pisa un kid en vuelo bajo el mismo nombre.
const (
	privateCacheKey = "signing:private"
	publicCacheKey  = "signing:public"
)

// KeyMaterial es el par de firma activo. La mitad privada nunca sale del
// boundary de este paquete salvo como entrada de cache.
type KeyMaterial struct {
	KID     string
	Alg     string
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// cacheEntry es el sobre JSON persistido en cache para cada mitad.
type cacheEntry struct {
	KID string `json:"kid"`
	Alg string `json:"alg"`
	PEM string `json:"key"`
}

// generate crea un par RSA-2048 nuevo con un kid versionado.
func generate() (*KeyMaterial, error) {
	priv, err := rsa.GenerateKey(rand.Reader, rsaBits)
	if err != nil {
		return nil, fmt.Errorf("keys: generate rsa: %w", err)
	}
	return &KeyMaterial{
		KID:     "sig-" + uuid.NewString(),
		Alg:     Alg,
		Private: priv,
		Public:  &priv.PublicKey,
	}, nil
}

// encodePrivate serializa la mitad privada (PKCS#8 PEM dentro del sobre JSON).
func (k *KeyMaterial) encodePrivate() (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(k.Private)
	if err != nil {
		return "", fmt.Errorf("keys: marshal private: %w", err)
	}
	block := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	b, err := json.Marshal(cacheEntry{KID: k.KID, Alg: k.Alg, PEM: string(block)})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// encodePublic serializa la mitad pública (PKIX PEM dentro del sobre JSON).
func (k *KeyMaterial) encodePublic() (string, error) {
	der, err := x509.MarshalPKIXPublicKey(k.Public)
	if err != nil {
		return "", fmt.Errorf("keys: marshal public: %w", err)
	}
	block := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	b, err := json.Marshal(cacheEntry{KID: k.KID, Alg: k.Alg, PEM: string(block)})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodePrivate reconstruye KeyMaterial desde una entrada de cache.
// No valida nada más allá de que la deserialización funcione.
func decodePrivate(raw string) (*KeyMaterial, error) {
	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("keys: decode private entry: %w", err)
	}
	block, _ := pem.Decode([]byte(entry.PEM))
	if block == nil {
		return nil, fmt.Errorf("keys: private entry has no PEM block")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("keys: parse private: %w", err)
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("keys: private entry is not RSA")
	}
	return &KeyMaterial{
		KID:     entry.KID,
		Alg:     entry.Alg,
		Private: priv,
		Public:  &priv.PublicKey,
	}, nil
}

// decodePublic reconstruye el kid y la pubkey desde una entrada de cache.
func decodePublic(raw string) (string, *rsa.PublicKey, error) {
	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return "", nil, fmt.Errorf("keys: decode public entry: %w", err)
	}
	block, _ := pem.Decode([]byte(entry.PEM))
	if block == nil {
		return "", nil, fmt.Errorf("keys: public entry has no PEM block")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return "", nil, fmt.Errorf("keys: parse public: %w", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return "", nil, fmt.Errorf("keys: public entry is not RSA")
	}
	return entry.KID, pub, nil
}
