// Package authntest runs an in-process JWKS endpoint and signs ID tokens
// accepted by the Verifier it hands out.
package authntest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"acidlab.dev/backend/internal/pkg/authn"
)

const (
	Issuer   = "https://cognito-idp.test.amazonaws.com/acid-test"
	Audience = "acid-test-client"
	KeyID    = "acid-test-key"
)

type Issuers struct {
	t      testing.TB
	key    *rsa.PrivateKey
	server *httptest.Server

	// Fetches counts how often the JWKS document was served.
	Fetches atomic.Int32
}

func New(t testing.TB) *Issuers {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	is := &Issuers{t: t, key: key}
	is.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		is.Fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kid": KeyID,
				"kty": "RSA",
				"alg": "RS256",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(is.server.Close)

	return is
}

func (is *Issuers) Verifier() *authn.Verifier {
	return &authn.Verifier{
		Keys:     authn.NewKeySet(is.server.URL),
		Issuer:   Issuer,
		Audience: Audience,
	}
}

// Claims returns valid ID token claims for user.
func (is *Issuers) Claims(user uuid.UUID) *authn.Claims {
	now := time.Now()
	return &authn.Claims{
		TokenUse: "id",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   user.String(),
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

// Sign signs claims with the served key under kid.
func (is *Issuers) Sign(claims jwt.Claims, kid string) string {
	is.t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(is.key)
	require.NoError(is.t, err)
	return signed
}

// Token returns a valid bearer token for user.
func (is *Issuers) Token(user uuid.UUID) string {
	return is.Sign(is.Claims(user), KeyID)
}
