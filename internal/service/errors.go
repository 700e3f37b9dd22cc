package service

import (
	"errors"
	"fmt"
)

// ValidationError reports a rejected input field. Handlers map it to 400.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

var (
	// ErrEmptyOrder is returned for a purchase without lines.
	ErrEmptyOrder = &ValidationError{Field: "items", Msg: "order must contain at least one item"}
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefresh is returned for unknown, revoked or expired refresh tokens.
	ErrInvalidRefresh = errors.New("invalid refresh token")
	// ErrInvalidTransition is returned when a purchase status would move backwards.
	ErrInvalidTransition = errors.New("invalid status transition")
)
