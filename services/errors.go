package services

import "errors"

// Every error these services return either wraps one of these sentinels, in
// which case its message is safe to show to clients, or is an internal
// failure.
var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidID          = errors.New("invalid id")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("not authorized")
	ErrNotFound           = errors.New("not found")
	ErrNoPostsForTopic    = errors.New("no blogs found with topic")
	ErrDuplicateEmail     = errors.New("email already registered")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string { return e.Field + " " + e.Reason }

func (e *FieldError) Unwrap() error { return ErrValidation }

func invalidField(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}
