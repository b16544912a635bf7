package authn

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"acidlab.dev/backend/internal/app/appconfig"
)

// Claims are the Cognito ID token claims the backend relies on.
type Claims struct {
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

type Verifier struct {
	Keys     *KeySet
	Issuer   string
	Audience string
}

func NewVerifier(conf *appconfig.Config) *Verifier {
	issuer := conf.CognitoIssuer()
	return &Verifier{
		Keys:     NewKeySet(issuer + "/.well-known/jwks.json"),
		Issuer:   issuer,
		Audience: conf.CognitoUserPoolClientID,
	}
}

// Verify checks an RS256 ID token and returns the user id carried in its subject.
func (v *Verifier) Verify(ctx context.Context, token string) (uuid.UUID, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("token has no kid header")
			}
			return v.Keys.Key(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.Issuer),
		jwt.WithAudience(v.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "invalid token")
	}

	if claims.TokenUse != "id" {
		return uuid.Nil, errors.Errorf("invalid token: token_use is %q", claims.TokenUse)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "invalid token: subject is not a uuid")
	}
	return id, nil
}
