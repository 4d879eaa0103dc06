package services

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure so handlers can map it to a status code.
type Kind int

const (
	KindInvalidOperation Kind = iota + 1
	KindNotFound
	KindForbidden
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindInvalidOperation:
		return "invalid_operation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	}
	return "unknown"
}

// AppError carries a client-facing message. Err, when set, is the underlying
// cause and is never shown to clients.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func InvalidOperation(msg string) *AppError { return &AppError{Kind: KindInvalidOperation, Message: msg} }
func NotFound(msg string) *AppError         { return &AppError{Kind: KindNotFound, Message: msg} }
func Forbidden(msg string) *AppError        { return &AppError{Kind: KindForbidden, Message: msg} }
func Conflict(msg string) *AppError         { return &AppError{Kind: KindConflict, Message: msg} }

// KindOf returns the Kind of the first *AppError in err's chain, or 0.
func KindOf(err error) Kind {
	var e *AppError
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// ErrSessionAlreadySaved is returned when a sessionId has been ingested before.
var ErrSessionAlreadySaved = errors.New("game session already saved")
