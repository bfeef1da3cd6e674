// internal/service/auth/auth.go
package auth

import (
	"context"
	"fmt"

	"jwt-service/internal/domain/auth"
	xerrors "jwt-service/internal/pkg/errors"
	"jwt-service/internal/pkg/jwt"

	"go.uber.org/zap"
)

// LoginLimiter throttles login attempts. *session.RateLimiter implements it.
type LoginLimiter interface {
	CheckLoginAttempt(ctx context.Context, ip, username string) (bool, int64, error)
	ResetLoginAttempts(ctx context.Context, ip, username string) error
}

type AuthService struct {
	jwtManager  *jwt.Manager
	credentials CredentialVerifier
	rateLimiter LoginLimiter
	logger      *zap.Logger
}

// NewAuthService wires the token service to a credential check. rateLimiter
// may be nil, in which case logins are not throttled.
func NewAuthService(
	jwtManager *jwt.Manager,
	credentials CredentialVerifier,
	rateLimiter LoginLimiter,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		jwtManager:  jwtManager,
		credentials: credentials,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

// ========== Login ==========

// Login checks the caller's credentials and issues a bearer token whose
// subject is the authenticated identity.
func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error) {
	if s.rateLimiter != nil {
		allowed, _, err := s.rateLimiter.CheckLoginAttempt(ctx, req.IPAddress, req.Username)
		if err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}
		if !allowed {
			return nil, xerrors.ErrRateLimited
		}
	}

	subject, err := s.credentials.Verify(ctx, req.Username, req.Password)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}

	claims := jwt.NewClaims().Set("client_id", jwt.StringClaim(subject))
	token, err := s.jwtManager.Issue(claims, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	expiresAt, err := s.jwtManager.ExtractExpiration(token)
	if err != nil {
		return nil, fmt.Errorf("failed to read token expiration: %w", err)
	}

	if s.rateLimiter != nil {
		if err := s.rateLimiter.ResetLoginAttempts(ctx, req.IPAddress, req.Username); err != nil {
			s.logger.Warn("failed to reset login attempts",
				zap.String("username", req.Username),
				zap.Error(err),
			)
		}
	}

	return &auth.LoginResponse{
		Token:     token,
		Type:      "Bearer",
		ExpiresIn: int64(s.jwtManager.Generator.Ttl.Seconds()),
		ExpiresAt: expiresAt,
	}, nil
}

// ========== Validation ==========

// ValidateToken verifies a bearer token and describes it.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*auth.TokenInfo, error) {
	claims, err := s.jwtManager.ExtractClaims(token)
	if err != nil {
		return nil, err
	}

	info := &auth.TokenInfo{
		Subject:   claims.Subject,
		Issuer:    claims.Issuer,
		ExpiresAt: claims.ExpiresAt.Time,
		Claims:    claims.Custom.Map(),
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	return info, nil
}

// IsValidFor reports whether token is a live token issued to subject.
func (s *AuthService) IsValidFor(token, subject string) bool {
	return s.jwtManager.IsValid(token, subject)
}
