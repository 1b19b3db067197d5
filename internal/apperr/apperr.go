// Package apperr defines the closed set of error kinds the service layer is
// allowed to raise. The HTTP boundary translates each kind to a fixed status
// code; anything that is not an *Error is treated as internal.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind int

const (
	KindBadRequest Kind = iota
	KindUnauthorized
	KindAccessDenied
	KindNotFound
	KindInternal
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes two errors of the same kind match under errors.Is, regardless of
// message. Lets callers test for a kind without holding a shared instance.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func (e *Error) Status() int {
	switch e.Kind {
	case KindBadRequest:
		return fiber.StatusBadRequest
	case KindUnauthorized:
		return fiber.StatusUnauthorized
	case KindAccessDenied:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func BadRequest(msg string) *Error   { return &Error{Kind: KindBadRequest, Msg: msg} }
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Msg: msg} }
func AccessDenied(msg string) *Error { return &Error{Kind: KindAccessDenied, Msg: msg} }
func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Msg: msg} }

// Internal wraps a low-level cause. The cause is logged server-side; only msg
// is ever rendered to the client.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Msg: msg, Err: cause}
}

// KindOf reports the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
