// internal/middleware/auth_middleware.go
package middleware

import (
	"strings"

	"jwt-service/internal/pkg/response"
	"jwt-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthMiddleware struct {
	authService *auth.AuthService
	logger      *zap.Logger
}

func NewAuthMiddleware(authService *auth.AuthService, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{
		authService: authService,
		logger:      logger,
	}
}

// Auth is the base authentication middleware that validates bearer tokens
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "missing authorization token")
			return
		}

		info, err := m.authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			m.logger.Debug("bearer token rejected",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			// expired and forged tokens get the same answer
			response.Unauthorized(c, "invalid or expired token")
			return
		}

		c.Set("subject", info.Subject)
		c.Set("token_expires_at", info.ExpiresAt)
		c.Set("token_issuer", info.Issuer)
		c.Set("claims", info.Claims)

		c.Next()
	}
}

// extractToken extracts Bearer token from Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Fields(authHeader)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}
