package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"jwt-service/internal/pkg/jwt"
)

type AppConfig struct {
	// Server
	HTTPAddr  string
	RedisAddr string
	RedisPass string

	// JWT
	JWT jwt.Config

	// Demo credential check for /api/auth/login
	DemoUsername string
	DemoPassword string

	LoginMaxAttempts int64
	LoginWindow      time.Duration
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
		RedisAddr: getEnv("REDIS_ADDR", ""),
		RedisPass: getEnv("REDIS_PASS", ""),

		JWT: jwt.Config{
			PrivPath: getEnv("JWT_PRIVATE_KEY_PATH", "./secrets/jwt_private.key"),
			PubPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./secrets/jwt_public.key"),
			Issuer:   getEnv("JWT_TOKEN_ISSUER", "jwt-service"),
			TTL:      getEnvMillis("JWT_TOKEN_EXPIRATION_MILLIS", time.Hour),
		},

		DemoUsername: getEnv("AUTH_DEMO_USERNAME", "admin"),
		DemoPassword: getEnv("AUTH_DEMO_PASSWORD", "admin"),

		LoginMaxAttempts: getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginWindow:      getEnvMillis("LOGIN_WINDOW_MILLIS", 15*time.Minute),
	}
}

// RedisEnabled reports whether a Redis address was configured.
func (c AppConfig) RedisEnabled() bool {
	return strings.TrimSpace(c.RedisAddr) != ""
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvMillis reads an integer number of milliseconds.
func getEnvMillis(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return fallback
}
