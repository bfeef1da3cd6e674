// internal/pkg/jwt/generator.go
package jwt

import (
	"crypto/rsa"
	"fmt"
	"time"

	xerrors "jwt-service/internal/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// MinTTL is the shortest token lifetime. Timestamps are whole seconds, so a
// shorter lifetime can truncate exp to a second that has already passed.
const MinTTL = time.Second

type Generator struct {
	priv   *rsa.PrivateKey
	issuer string
	Ttl    time.Duration
	clock  Clock
}

func NewGenerator(priv *rsa.PrivateKey, issuer string, ttl time.Duration, clock Clock) *Generator {
	if clock == nil {
		clock = SystemClock
	}
	if ttl < MinTTL {
		ttl = MinTTL
	}
	return &Generator{
		priv:   priv,
		issuer: issuer,
		Ttl:    ttl,
		clock:  clock,
	}
}

// Issue signs a token carrying claims, subject, the configured issuer, an
// issued-at of now and an expiration of now + Ttl. The result is the compact
// RS256 serialization: three base64url segments joined by dots.
func (g *Generator) Issue(claims *Claims, subject string) (string, error) {
	if g.priv == nil {
		return "", xerrors.ErrKeysNotLoaded
	}

	now := g.clock.Now()
	tc := &TokenClaims{
		Custom: claims,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    g.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.Ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, tc)
	signed, err := tok.SignedString(g.priv)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
