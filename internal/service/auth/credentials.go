package auth

import (
	"context"
	"crypto/subtle"

	xerrors "jwt-service/internal/pkg/errors"
)

// CredentialVerifier checks a username/password pair and returns the subject
// the issued token should carry.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (string, error)
}

// StaticCredentialVerifier accepts a single configured username/password.
// It stands in for a real user store.
type StaticCredentialVerifier struct {
	username string
	password string
}

func NewStaticCredentialVerifier(username, password string) *StaticCredentialVerifier {
	return &StaticCredentialVerifier{username: username, password: password}
}

func (v *StaticCredentialVerifier) Verify(_ context.Context, username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(v.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(v.password)) == 1
	if !userOK || !passOK || v.username == "" {
		return "", xerrors.ErrUnauthorized
	}
	return username, nil
}
