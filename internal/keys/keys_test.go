package keys_test

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/littlejohn/internal/cache"
	"github.com/dropDatabas3/littlejohn/internal/keys"
	"github.com/dropDatabas3/littlejohn/internal/token"
)

func TestAcquireGeneratesOnMiss(t *testing.T) {
	c := cache.NewMemory("t")
	m := keys.NewManager(c, time.Hour)

	km, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !strings.HasPrefix(km.KID, "sig-") {
		t.Fatalf("kid %q lacks version prefix", km.KID)
	}
	if km.Alg != "RS256" {
		t.Fatalf("alg = %q, want RS256", km.Alg)
	}
	if km.Private == nil || km.Public == nil {
		t.Fatal("key material incomplete")
	}

	// The public half must be visible to discovery immediately.
	doc, err := keys.NewPublisher(c).Publish(context.Background())
	if err != nil {
		t.Fatalf("publish after acquire: %v", err)
	}
	var jwks struct {
		Keys []struct {
			Kid string `json:"kid"`
		} `json:"keys"`
	}
	if err := json.Unmarshal(doc, &jwks); err != nil {
		t.Fatalf("unmarshal jwks: %v", err)
	}
	if len(jwks.Keys) != 1 || jwks.Keys[0].Kid != km.KID {
		t.Fatalf("jwks kid mismatch: %+v vs %s", jwks.Keys, km.KID)
	}
}

func TestAcquireHitReturnsSameKey(t *testing.T) {
	c := cache.NewMemory("")
	m := keys.NewManager(c, time.Hour)

	first, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	second, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if first.KID != second.KID {
		t.Fatalf("cache hit returned a different kid: %s vs %s", first.KID, second.KID)
	}
	if first.Private.N.Cmp(second.Private.N) != 0 {
		t.Fatal("cache hit returned different key material")
	}
}

// gatedCache blocks writes until a given number of read misses happened, so
// every concurrent caller is guaranteed to be inside Acquire before the
// first generation finishes.
type gatedCache struct {
	mu         sync.Mutex
	cond       *sync.Cond
	data       map[string]string
	misses     int
	needMisses int
	setCount   map[string]int
}

func newGatedCache(needMisses int) *gatedCache {
	g := &gatedCache{
		data:       map[string]string{},
		needMisses: needMisses,
		setCount:   map[string]int{},
	}
	g.cond = sync.NewCond(&g.mu)
	return g
}

func (g *gatedCache) Get(ctx context.Context, key string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if v, ok := g.data[key]; ok {
		return v, nil
	}
	g.misses++
	g.cond.Broadcast()
	return "", cache.ErrNotFound
}

func (g *gatedCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	g.mu.Lock()
	for g.misses < g.needMisses {
		g.cond.Wait()
	}
	first := len(g.setCount) == 0
	g.mu.Unlock()

	// Hold the first write briefly so the last caller that missed has time
	// to join the in-flight generation.
	if first {
		time.Sleep(100 * time.Millisecond)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.data[key] = value
	g.setCount[key]++
	return nil
}

func (g *gatedCache) Delete(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.data, key)
	return nil
}

func (g *gatedCache) Ping(ctx context.Context) error { return nil }
func (g *gatedCache) Close() error                   { return nil }

func TestAcquireConcurrentMissSharesOneGeneration(t *testing.T) {
	const callers = 8
	g := newGatedCache(callers)
	m := keys.NewManager(g, time.Hour)

	var wg sync.WaitGroup
	kids := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			km, err := m.Acquire(context.Background())
			if err != nil {
				errs[i] = err
				return
			}
			kids[i] = km.KID
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	for i := 1; i < callers; i++ {
		if kids[i] != kids[0] {
			t.Fatalf("caller %d got kid %s, caller 0 got %s", i, kids[i], kids[0])
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if n := g.setCount["signing:public"]; n != 1 {
		t.Fatalf("public half written %d times, want 1", n)
	}
	if n := g.setCount["signing:private"]; n != 1 {
		t.Fatalf("private half written %d times, want 1", n)
	}
}

func TestAcquireRegeneratesAfterExpiry(t *testing.T) {
	c := cache.NewMemory("")
	m := keys.NewManager(c, 30*time.Millisecond)

	first, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	second, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}
	if first.KID == second.KID {
		t.Fatal("expected a fresh kid after the cached pair expired")
	}
}

func TestAcquireRegeneratesUnreadableEntry(t *testing.T) {
	c := cache.NewMemory("")
	if err := c.Set(context.Background(), "signing:private", "not-json", time.Hour); err != nil {
		t.Fatalf("seed: %v", err)
	}

	m := keys.NewManager(c, time.Hour)
	km, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire over corrupt entry: %v", err)
	}
	if km.KID == "" {
		t.Fatal("expected a regenerated key")
	}
}

type failingSetCache struct {
	cache.Client
}

func (f *failingSetCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.New("substrate down")
}

func TestAcquireFailsWhenWriteFails(t *testing.T) {
	c := &failingSetCache{Client: cache.NewMemory("")}
	m := keys.NewManager(c, time.Hour)

	if _, err := m.Acquire(context.Background()); err == nil {
		t.Fatal("expected acquire to fail when the cache write fails")
	}
}

func TestPublishUnavailableWithoutKey(t *testing.T) {
	p := keys.NewPublisher(cache.NewMemory(""))

	_, err := p.Publish(context.Background())
	if !errors.Is(err, keys.ErrKeyUnavailable) {
		t.Fatalf("err = %v, want ErrKeyUnavailable", err)
	}
}

// TestSignVerifyAgainstPublishedJWKS is the full offline-verification loop:
// a token minted with the acquired key must verify with the public key
// reconstructed from the published discovery document, under the same kid.
func TestSignVerifyAgainstPublishedJWKS(t *testing.T) {
	c := cache.NewMemory("")
	m := keys.NewManager(c, time.Hour)

	km, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	signed, _, err := token.NewMinter(time.Hour).Mint(token.MintInput{
		Issuer:   "https://bridge.example",
		Audience: "client-123",
		Subject:  "user-1",
		Email:    "u@example.com",
		GuildsOK: true,
		Guilds:   []string{"g1"},
	}, km)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	doc, err := keys.NewPublisher(c).Publish(context.Background())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	var jwks struct {
		Keys []struct {
			Kid string `json:"kid"`
			Alg string `json:"alg"`
			Use string `json:"use"`
			Kty string `json:"kty"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.Unmarshal(doc, &jwks); err != nil {
		t.Fatalf("unmarshal jwks: %v", err)
	}
	if len(jwks.Keys) != 1 {
		t.Fatalf("jwks has %d keys, want 1", len(jwks.Keys))
	}
	k := jwks.Keys[0]
	if k.Kty != "RSA" || k.Alg != "RS256" || k.Use != "sig" {
		t.Fatalf("unexpected descriptor: %+v", k)
	}

	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		t.Fatalf("decode n: %v", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		t.Fatalf("decode e: %v", err)
	}
	pub := &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(new(big.Int).SetBytes(eb).Int64()),
	}

	parsed, err := jwtv5.Parse(signed, func(tk *jwtv5.Token) (any, error) {
		if kid, _ := tk.Header["kid"].(string); kid != k.Kid {
			t.Fatalf("token kid %v != jwks kid %s", tk.Header["kid"], k.Kid)
		}
		return pub, nil
	}, jwtv5.WithValidMethods([]string{"RS256"}))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !parsed.Valid {
		t.Fatal("token did not verify against published JWKS")
	}
}
