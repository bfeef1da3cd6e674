package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrUnauthorized = errors.New("unauthorized access")
	ErrRateLimited  = errors.New("too many requests")
)

// Key material and token errors.
//
// ErrKeyProvisioning and ErrKeyDecoding are fatal at startup. ErrInvalidToken
// is the normal outcome of verifying untrusted input and covers bad
// signatures, malformed tokens and expired tokens alike.
var (
	ErrKeyProvisioning = errors.New("key provisioning failed")
	ErrKeyDecoding     = errors.New("key decoding failed")
	ErrKeysNotLoaded   = errors.New("key pair not loaded")
	ErrInvalidToken    = errors.New("invalid token")
)

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
