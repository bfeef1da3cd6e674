package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	xerrors "jwt-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// RSAKeyBits is the modulus size used when a fresh key pair is generated.
const RSAKeyBits = 2048

// KeyPair is a matched RSA private/public key. It is never mutated after
// Initialize returns it.
type KeyPair struct {
	priv *rsa.PrivateKey
	pub  *rsa.PublicKey
}

func (k *KeyPair) PrivateKey() *rsa.PrivateKey { return k.priv }
func (k *KeyPair) PublicKey() *rsa.PublicKey   { return k.pub }

// KeyProvider owns the key pair persisted at two file paths. The private key
// is stored as base64(PKCS#8 DER) and the public key as base64(X.509
// SubjectPublicKeyInfo DER), one blob per file.
type KeyProvider struct {
	privPath string
	pubPath  string
	logger   *zap.Logger

	once sync.Once
	keys atomic.Pointer[KeyPair]
	err  error
}

func NewKeyProvider(privPath, pubPath string, logger *zap.Logger) *KeyProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeyProvider{
		privPath: privPath,
		pubPath:  pubPath,
		logger:   logger,
	}
}

// Initialize provisions the key pair on first use and loads it from disk.
// If either file is missing a new pair is generated and both files are
// (over)written. The keys are always read back from disk, so the pair in
// memory is the one that round-trips through the stored encoding.
//
// Only the first call does any work; later and concurrent callers get the
// same result.
func (p *KeyProvider) Initialize() (*KeyPair, error) {
	p.once.Do(func() {
		keys, err := p.initialize()
		if err != nil {
			p.err = err
			return
		}
		p.keys.Store(keys)
	})
	if p.err != nil {
		return nil, p.err
	}
	return p.keys.Load(), nil
}

func (p *KeyProvider) initialize() (*KeyPair, error) {
	if !p.keysPresent() {
		p.logger.Info("rsa key pair not found, generating",
			zap.String("private_key_path", p.privPath),
			zap.String("public_key_path", p.pubPath),
		)
		if err := p.generateKeyPair(); err != nil {
			return nil, err
		}
	}

	keys, err := p.loadKeys()
	if err != nil {
		return nil, err
	}

	p.logger.Info("rsa key pair loaded",
		zap.String("private_key_path", p.privPath),
		zap.String("public_key_path", p.pubPath),
		zap.Int("bits", keys.pub.N.BitLen()),
	)
	return keys, nil
}

// PrivateKey returns the loaded private key.
func (p *KeyProvider) PrivateKey() (*rsa.PrivateKey, error) {
	keys := p.keys.Load()
	if keys == nil {
		return nil, xerrors.ErrKeysNotLoaded
	}
	return keys.priv, nil
}

// PublicKey returns the loaded public key.
func (p *KeyProvider) PublicKey() (*rsa.PublicKey, error) {
	keys := p.keys.Load()
	if keys == nil {
		return nil, xerrors.ErrKeysNotLoaded
	}
	return keys.pub, nil
}

func (p *KeyProvider) keysPresent() bool {
	return fileExists(p.privPath) && fileExists(p.pubPath)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (p *KeyProvider) generateKeyPair() error {
	priv, err := rsa.GenerateKey(rand.Reader, RSAKeyBits)
	if err != nil {
		return fmt.Errorf("%w: generate rsa key: %w", xerrors.ErrKeyProvisioning, err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return fmt.Errorf("%w: encode private key: %w", xerrors.ErrKeyProvisioning, err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: encode public key: %w", xerrors.ErrKeyProvisioning, err)
	}

	if err := writeKeyFile(p.privPath, privDER, 0o600); err != nil {
		return err
	}
	return writeKeyFile(p.pubPath, pubDER, 0o644)
}

func writeKeyFile(path string, der []byte, perm os.FileMode) error {
	content := base64.StdEncoding.EncodeToString(der)
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("%w: write %s: %w", xerrors.ErrKeyProvisioning, path, err)
	}
	return nil
}

func (p *KeyProvider) loadKeys() (*KeyPair, error) {
	priv, err := LoadRSAPrivateKey(p.privPath)
	if err != nil {
		return nil, err
	}
	pub, err := LoadRSAPublicKey(p.pubPath)
	if err != nil {
		return nil, err
	}
	return &KeyPair{priv: priv, pub: pub}, nil
}

// LoadRSAPrivateKey reads a base64(PKCS#8 DER) RSA private key.
func LoadRSAPrivateKey(path string) (*rsa.PrivateKey, error) {
	der, err := readKeyFile(path)
	if err != nil {
		return nil, err
	}

	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parse PKCS8 private key %s: %w", xerrors.ErrKeyDecoding, path, err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an RSA private key", xerrors.ErrKeyDecoding, path)
	}
	return rsaKey, nil
}

// LoadRSAPublicKey reads a base64(X.509 DER) RSA public key.
func LoadRSAPublicKey(path string) (*rsa.PublicKey, error) {
	der, err := readKeyFile(path)
	if err != nil {
		return nil, err
	}

	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parse PKIX public key %s: %w", xerrors.ErrKeyDecoding, path, err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an RSA public key", xerrors.ErrKeyDecoding, path)
	}
	return rsaKey, nil
}

func readKeyFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", xerrors.ErrKeyProvisioning, path, err)
	}

	der, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(b)))
	if err != nil {
		return nil, fmt.Errorf("%w: base64 decode %s: %w", xerrors.ErrKeyDecoding, path, err)
	}
	return der, nil
}
