// internal/pkg/jwt/verifier.go
package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	xerrors "jwt-service/internal/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type Verifier struct {
	pub    *rsa.PublicKey
	clock  Clock
	logger *zap.Logger
}

func NewVerifier(pub *rsa.PublicKey, clock Clock, logger *zap.Logger) *Verifier {
	if clock == nil {
		clock = SystemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		pub:    pub,
		clock:  clock,
		logger: logger,
	}
}

// Verify checks the RS256 signature and expiration of a token and returns its
// claims. Tokens without an exp claim are rejected.
//
// Expired, forged and malformed tokens all fail with ErrInvalidToken; the
// underlying reason is only logged.
func (v *Verifier) Verify(tokenString string) (*TokenClaims, error) {
	if v.pub == nil {
		return nil, xerrors.ErrKeysNotLoaded
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.pub, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.clock.Now),
	)
	if err != nil {
		v.logger.Debug("token rejected",
			zap.String("reason", rejectReason(err)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", xerrors.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, xerrors.ErrInvalidToken
	}

	return claims, nil
}

// ExtractSubject returns the subject of a verified token.
func (v *Verifier) ExtractSubject(tokenString string) (string, error) {
	claims, err := v.Verify(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExtractExpiration returns the expiration of a verified token.
func (v *Verifier) ExtractExpiration(tokenString string) (time.Time, error) {
	claims, err := v.Verify(tokenString)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt.Time, nil
}

// IsValid reports whether the token verifies, has not expired and was issued
// to exactly expectedSubject. Verify already enforces exp against the clock,
// so no second expiry check is made here.
func (v *Verifier) IsValid(tokenString, expectedSubject string) bool {
	subject, err := v.ExtractSubject(tokenString)
	if err != nil {
		return false
	}
	if subject != expectedSubject {
		v.logger.Debug("token subject mismatch",
			zap.String("expected", expectedSubject),
			zap.String("actual", subject),
		)
		return false
	}
	return true
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "missing_claim"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "bad_signature"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "unverifiable"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	default:
		return "invalid"
	}
}
