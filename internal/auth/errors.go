package auth

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrEmailTaken         = errors.New("email already exists")
	ErrAccountNotFound    = errors.New("user not found")
	ErrAlreadyVerified    = errors.New("account is already verified")
	ErrInvalidCode        = errors.New("invalid otp")
	ErrExpiredCode        = errors.New("otp has expired")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is not active")
	ErrMissingCode        = errors.New("authorization code is missing")
	ErrExternalAuth       = errors.New("external authentication failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("access denied, admins only")
	ErrRateLimited        = errors.New("rate limit exceeded")
)

// ValidationError reports malformed input, keyed by request field name.
// Err, when set, is the sentinel behind the failure (e.g. ErrEmailTaken).
type ValidationError struct {
	Fields map[string]string
	Err    error
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldError builds a single-field ValidationError wrapping err.
func fieldError(field string, err error) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: err.Error()}, Err: err}
}
