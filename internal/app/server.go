// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"jwt-service/internal/config"
	"jwt-service/internal/db"
	authHandler "jwt-service/internal/handlers/auth"
	"jwt-service/internal/middleware"
	"jwt-service/internal/pkg/jwt"
	"jwt-service/internal/pkg/session"
	authUsecase "jwt-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg        config.AppConfig
	engine     *gin.Engine
	logger     *zap.Logger
	httpServer *http.Server
	redis      *redis.Client
}

func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{cfg: cfg, engine: gin.New(), logger: logger}
}

// Init loads key material and wires services and routes. Errors are fatal:
// the server must not serve token operations without keys.
func (s *Server) Init() error {
	// ----- JWT Manager -----
	jwtManager, err := jwt.LoadAndBuild(s.cfg.JWT, jwt.SystemClock, s.logger)
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}

	// ----- Redis (optional, login throttling) -----
	var rateLimiter authUsecase.LoginLimiter
	if s.cfg.RedisEnabled() {
		redisClient, err := db.NewRedisClient(db.RedisConfig{
			Addresses: []string{s.cfg.RedisAddr},
			Password:  s.cfg.RedisPass,
			PoolSize:  10,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		s.redis = redisClient
		rateLimiter = session.NewRateLimiter(redisClient, s.cfg.LoginMaxAttempts, s.cfg.LoginWindow)
		s.logger.Info("redis connected", zap.String("addr", s.cfg.RedisAddr))
	} else {
		s.logger.Warn("REDIS_ADDR not set, login attempts are not throttled")
	}

	// ----- Services -----
	credentials := authUsecase.NewStaticCredentialVerifier(s.cfg.DemoUsername, s.cfg.DemoPassword)
	authService := authUsecase.NewAuthService(jwtManager, credentials, rateLimiter, s.logger)

	// ----- Router -----
	SetupRouter(s.engine, s.logger, &Handlers{
		AuthHandler:    authHandler.NewAuthHandler(authService, s.logger),
		AuthMiddleware: middleware.NewAuthMiddleware(authService, s.logger),
	})

	s.httpServer = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("server not initialized")
	}
	s.logger.Info("server listening", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	return errors.Join(errs...)
}
