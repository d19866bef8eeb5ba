package app

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for transport mapping.
type Kind string

const (
	KindValidation   Kind = "BAD_REQUEST"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindRateLimited  Kind = "TOO_MANY_REQUESTS"
	KindUpstream     Kind = "BAD_GATEWAY"
	KindInternal     Kind = "INTERNAL_SERVER_ERROR"
)

// Error is a failure whose Message is safe to show to callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by kind and message so errors.Is works on copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == e.Message
}

func newError(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

// wrap attaches an internal cause to a sentinel without changing its message.
func wrap(sentinel *Error, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Message: sentinel.Message, Err: cause}
}

var (
	ErrEmailTaken         = newError(KindConflict, "User with this email already exists")
	ErrInvalidCredentials = newError(KindUnauthorized, "Invalid email or password")
	ErrInvalidToken       = newError(KindUnauthorized, "Invalid or expired token")
	ErrAuthRequired       = newError(KindUnauthorized, "Authentication required")
	ErrForbidden          = newError(KindForbidden, "You do not have access to this resource")
	ErrChatNotFound       = newError(KindNotFound, "Chat not found")
	ErrMessageNotFound    = newError(KindNotFound, "Message not found")
	ErrEmptyContent       = newError(KindValidation, "Message content is required")
	ErrInvalidStatus      = newError(KindValidation, "Status must be one of: sent, delivered, read, error")
	ErrAssistantStatus    = newError(KindValidation, "Assistant messages do not carry a status")
	ErrAIResponse         = newError(KindUpstream, "Failed to get AI response")
	ErrNoFile             = newError(KindValidation, "No file provided")
	ErrNotPDF             = newError(KindValidation, "Only PDF files are allowed")
	ErrParseFailed        = newError(KindInternal, "Failed to parse PDF")
	ErrInternal           = newError(KindInternal, "Internal server error")
)

// UserNotFound is the error for a missing user id.
func UserNotFound(id string) *Error {
	return newError(KindNotFound, fmt.Sprintf("User with ID %s not found", id))
}

func validation(msg string) *Error { return newError(KindValidation, msg) }

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// PublicMessage returns the caller-facing text for err.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ErrInternal.Message
}
