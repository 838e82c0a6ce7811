package auth

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("request is not authorized")
	ErrMissingSecret      = errors.New("signing secret is not configured")
	ErrRevoked            = errors.New("token revoked")
)

// invalidCredentials is the only way Login builds a credential failure, so
// "unknown email" and "wrong password" cannot drift apart.
func invalidCredentials() error {
	return ErrInvalidCredentials
}
