// internal/app/router.go
package app

import (
	authHandler "jwt-service/internal/handlers/auth"
	"jwt-service/internal/handlers/demo"
	"jwt-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	AuthHandler    *authHandler.AuthHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	r.Use(
		middleware.RequestIDMiddleware(),
		middleware.LoggingMiddleware(logger),
		middleware.RecoveryMiddleware(logger),
	)

	api := r.Group("/api")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/login", h.AuthHandler.Login)
		authPublic.POST("/validate", h.AuthHandler.Validate)
	}

	// ==================== Authenticated Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.GET("/me", h.AuthHandler.Me)
	}

	r.GET("/hello", h.AuthMiddleware.Auth(), demo.Hello)
}
