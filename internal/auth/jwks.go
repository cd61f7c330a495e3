package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"
)

// jwk is one entry of a JSON Web Key Set.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

// keySet caches the RS256 signing keys published at a JWKS URL. Unknown key
// IDs trigger a refetch at most once per refresh interval.
type keySet struct {
	url     string
	refresh time.Duration
	client  *http.Client

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	lastFetch time.Time
}

const defaultJWKSRefresh = 5 * time.Minute

func newKeySet(url string, refresh time.Duration) *keySet {
	if refresh <= 0 {
		refresh = defaultJWKSRefresh
	}
	return &keySet{
		url:     url,
		refresh: refresh,
		client:  &http.Client{Timeout: 10 * time.Second},
		keys:    make(map[string]*rsa.PublicKey),
	}
}

// key returns the signing key for kid, refetching the set when kid is unknown
// or the cache is older than the refresh interval.
func (s *keySet) key(kid string) (*rsa.PublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[kid]
	stale := time.Since(s.lastFetch) >= s.refresh
	if ok && !stale {
		return key, nil
	}
	if stale {
		if err := s.fetchLocked(); err != nil {
			if ok {
				return key, nil
			}
			return nil, fmt.Errorf("failed to refresh JWKS: %w", err)
		}
		if key, ok = s.keys[kid]; ok {
			return key, nil
		}
	}
	return nil, fmt.Errorf("key not found: %s", kid)
}

func (s *keySet) fetch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchLocked()
}

func (s *keySet) fetchLocked() error {
	s.lastFetch = time.Now()

	resp, err := s.client.Get(s.url)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS fetch failed with status: %d", resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("failed to parse JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") || (k.Alg != "" && k.Alg != "RS256") {
			continue
		}
		pub, err := k.rsaPublicKey()
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	s.keys = keys
	return nil
}

func (k jwk) rsaPublicKey() (*rsa.PublicKey, error) {
	n, err := base64URLDecode(k.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	e, err := base64URLDecode(k.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}
	if len(n) == 0 || len(e) == 0 || len(e) > 4 {
		return nil, fmt.Errorf("malformed RSA key %q", k.Kid)
	}

	var exp int
	for _, b := range e {
		exp = exp<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: exp}, nil
}

func base64URLDecode(data string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
}
