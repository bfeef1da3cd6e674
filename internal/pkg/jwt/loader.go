// internal/pkg/jwt/loader.go
package jwt

import (
	"time"

	xerrors "jwt-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type Config struct {
	PrivPath string
	PubPath  string
	Issuer   string
	TTL      time.Duration
}

// Manager is the token service: it signs with the private half of the key
// pair and verifies with the public half. It holds the pair by reference and
// never persists it.
type Manager struct {
	Keys      *KeyPair
	Generator *Generator
	Verifier  *Verifier
}

// LoadAndBuild provisions or loads the key pair and wires the generator and
// verifier. Any error here means the service has no usable keys and must not
// start.
func LoadAndBuild(cfg Config, clock Clock, logger *zap.Logger) (*Manager, error) {
	provider := NewKeyProvider(cfg.PrivPath, cfg.PubPath, logger)
	keys, err := provider.Initialize()
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to initialize rsa keys")
	}
	return NewManager(keys, cfg.Issuer, cfg.TTL, clock, logger), nil
}

func NewManager(keys *KeyPair, issuer string, ttl time.Duration, clock Clock, logger *zap.Logger) *Manager {
	return &Manager{
		Keys:      keys,
		Generator: NewGenerator(keys.PrivateKey(), issuer, ttl, clock),
		Verifier:  NewVerifier(keys.PublicKey(), clock, logger),
	}
}

func (m *Manager) Issue(claims *Claims, subject string) (string, error) {
	return m.Generator.Issue(claims, subject)
}

func (m *Manager) ExtractSubject(token string) (string, error) {
	return m.Verifier.ExtractSubject(token)
}

func (m *Manager) ExtractExpiration(token string) (time.Time, error) {
	return m.Verifier.ExtractExpiration(token)
}

func (m *Manager) ExtractClaims(token string) (*TokenClaims, error) {
	return m.Verifier.Verify(token)
}

func (m *Manager) IsValid(token, expectedSubject string) bool {
	return m.Verifier.IsValid(token, expectedSubject)
}
