// Package oauth implements the Shopify app install flow: signed state
// tokens, access-token sessions, and the begin/callback service.
package oauth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pixelbridge/pixelbridge-backend/pkg/errors"
)

// stateClaims binds a state token to the shop that started the flow.
type stateClaims struct {
	Shop string `json:"shop"`
	jwt.RegisteredClaims
}

// StateSigner issues and verifies the short-lived state tokens carried
// through the OAuth redirect. The token pins the shop, so a callback
// cannot complete the flow for a different shop than the one that
// started it.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewStateSigner(secret string, ttl time.Duration) *StateSigner {
	return &StateSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a state token for shop.
func (s *StateSigner) Issue(shop string) (string, error) {
	now := s.now()
	claims := stateClaims{
		Shop: shop,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, err, "sign state token")
	}
	return token, nil
}

// Verify checks a state token and returns the shop it was issued for.
func (s *StateSigner) Verify(token, expectedShop string) error {
	claims := &stateClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New(errors.CodeUnauthorized, "unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return errors.New(errors.CodeUnauthorized, "invalid state token")
	}
	if claims.Shop != expectedShop {
		return errors.New(errors.CodeUnauthorized, "state token issued for a different shop")
	}
	return nil
}
