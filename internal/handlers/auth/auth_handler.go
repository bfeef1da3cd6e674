// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"

	"jwt-service/internal/domain/auth"
	"jwt-service/internal/middleware"
	xerrors "jwt-service/internal/pkg/errors"
	"jwt-service/internal/pkg/response"
	authUsecase "jwt-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *authUsecase.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// ========== Login ==========

// Login exchanges credentials for a bearer token
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	loginResp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("login failed",
			zap.String("username", req.Username),
			zap.String("ip", req.IPAddress),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		switch {
		case xerrors.Is(err, xerrors.ErrRateLimited):
			response.Error(c, http.StatusTooManyRequests, "too many login attempts, try again later", nil)
		case xerrors.Is(err, xerrors.ErrUnauthorized):
			response.Unauthorized(c, "invalid username or password")
		default:
			response.Error(c, http.StatusInternalServerError, "login failed", nil)
		}
		return
	}

	h.logger.Info("token issued",
		zap.String("username", req.Username),
		zap.Time("expires_at", loginResp.ExpiresAt),
	)

	response.Success(c, http.StatusOK, "login successful", loginResp)
}

// ========== Token checks ==========

type validateRequest struct {
	Token   string `json:"token" binding:"required"`
	Subject string `json:"subject" binding:"required"`
}

// Validate reports whether a token is live and was issued to subject
func (h *AuthHandler) Validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	valid := h.authService.IsValidFor(req.Token, req.Subject)
	response.Success(c, http.StatusOK, "token checked", gin.H{"valid": valid})
}

// Me describes the caller's own token (requires auth)
func (h *AuthHandler) Me(c *gin.Context) {
	subject := middleware.MustGetSubject(c)
	expiresAt, _ := c.Get("token_expires_at")

	response.Success(c, http.StatusOK, "token details", gin.H{
		"subject":    subject,
		"expires_at": expiresAt,
		"issuer":     c.GetString("token_issuer"),
		"claims":     middleware.GetClaims(c),
	})
}
