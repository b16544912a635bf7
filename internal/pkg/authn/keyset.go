package authn

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var ErrUnknownKey = errors.New("authn: signing key not found in key set")

const (
	// MinRefreshInterval bounds how often an unknown kid may trigger a JWKS fetch.
	MinRefreshInterval = time.Minute

	// FetchTimeout bounds a single JWKS fetch.
	FetchTimeout = 10 * time.Second
)

type keyMap map[string]*rsa.PublicKey

// KeySet caches the RSA keys of a JWKS document. Lookups of known keys never
// block; a miss refetches the document at most once per MinRefreshInterval.
type KeySet struct {
	URL    string
	Client *http.Client

	keys atomic.Pointer[keyMap]

	mu          sync.Mutex
	lastFetched time.Time
}

func NewKeySet(url string) *KeySet {
	return &KeySet{
		URL:    url,
		Client: &http.Client{Timeout: FetchTimeout},
	}
}

func (s *KeySet) lookup(kid string) (*rsa.PublicKey, bool) {
	m := s.keys.Load()
	if m == nil {
		return nil, false
	}
	key, ok := (*m)[kid]
	return key, ok
}

// Key returns the public key identified by kid.
func (s *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := s.lookup(kid); ok {
		return key, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// another caller may have refreshed while we waited
	if key, ok := s.lookup(kid); ok {
		return key, nil
	}
	if !s.lastFetched.IsZero() && time.Since(s.lastFetched) < MinRefreshInterval {
		return nil, ErrUnknownKey
	}

	// the refreshed set serves every caller, so one request giving up must not abort it
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FetchTimeout)
	defer cancel()

	keys, err := s.fetch(fetchCtx)
	if err != nil {
		return nil, err
	}
	s.lastFetched = time.Now()
	s.keys.Store(&keys)

	log.Debug().
		Str("evt.name", "authn.jwks.refreshed").
		Int("keys", len(keys)).
		Msg("refreshed signing keys")

	if key, ok := keys[kid]; ok {
		return key, nil
	}
	return nil, ErrUnknownKey
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

func (s *KeySet) fetch(ctx context.Context) (keyMap, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create jwks request")
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch jwks")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("failed to fetch jwks: unexpected status %d", resp.StatusCode)
	}

	var doc jwks
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode jwks")
	}

	keys := make(keyMap, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		key, err := rsaKey(k)
		if err != nil {
			log.Warn().
				Str("evt.name", "authn.jwks.bad_key").
				Str("kid", k.Kid).
				Err(err).
				Msg("skipping malformed signing key")
			continue
		}
		keys[k.Kid] = key
	}
	return keys, nil
}

func rsaKey(k jwk) (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, errors.Wrap(err, "invalid modulus")
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, errors.Wrap(err, "invalid exponent")
	}
	exp := new(big.Int).SetBytes(e)
	if !exp.IsInt64() || exp.Int64() < 2 {
		return nil, errors.New("exponent out of range")
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(exp.Int64()),
	}, nil
}
