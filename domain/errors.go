package domain

import (
	"errors"
	"fmt"
)

// Failure classes. Infrastructure errors from the store or identity layer
// are wrapped with ErrAuthoritative, third-party failures with ErrAdvisory.
var (
	ErrAuthoritative = errors.New("authoritative source failure")
	ErrAdvisory      = errors.New("advisory source failure")
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
)

const (
	ReasonDuplicateEmail     = "duplicate-email"
	ReasonInvalidCredentials = "invalid-credentials"
	ReasonForbidden          = "forbidden"
	ReasonSelfRepost         = "self-repost"
	ReasonSelfFollow         = "self-follow"
	ReasonInvalidInput       = "invalid-input"
)

// ValidationError is a rejected operation with a machine readable reason.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	if target == ErrValidation {
		return true
	}
	t, ok := target.(*ValidationError)
	return ok && t.Reason == e.Reason && t.Message == e.Message
}

func NewValidationError(reason, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrUserExists         = &ValidationError{Reason: ReasonDuplicateEmail, Message: "User already exists"}
	ErrInvalidCredentials = &ValidationError{Reason: ReasonInvalidCredentials, Message: "Invalid credentials"}
	ErrForbidden          = &ValidationError{Reason: ReasonForbidden, Message: "Not allowed to modify this post"}
	ErrSelfRepost         = &ValidationError{Reason: ReasonSelfRepost, Message: "You cannot repost your own post."}
	ErrSelfFollow         = &ValidationError{Reason: ReasonSelfFollow, Message: "You cannot follow yourself."}
)

// Authoritative marks err as a failure of the authoritative source.
func Authoritative(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrAuthoritative) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrAuthoritative, err)
}

// Reason returns the validation reason carried by err, if any.
func Reason(err error) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Reason
	}
	return ""
}
