package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account locked")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrTokenExpired       = errors.New("session token expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrInternal           = errors.New("internal error")
)

// ValidationError lists the offending fields. It unwraps to ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

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
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// LoginFailure is returned for rejected credentials. Err is either
// ErrInvalidCredentials or ErrAccountLocked.
type LoginFailure struct {
	Err               error
	AttemptsRemaining int
}

func (e *LoginFailure) Error() string {
	return e.Err.Error()
}

func (e *LoginFailure) Unwrap() error {
	return e.Err
}
