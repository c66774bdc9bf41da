// Package apperr carries user-facing failures from services to the HTTP layer.
// Messages are shown to the end user as-is.
package apperr

import (
	"errors"
	"net/http"
)

type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(status int, msg string) *Error { return &Error{Status: status, Message: msg} }

func BadRequest(msg string) *Error { return New(http.StatusBadRequest, msg) }
func Forbidden(msg string) *Error  { return New(http.StatusForbidden, msg) }
func NotFound(msg string) *Error   { return New(http.StatusNotFound, msg) }
func Conflict(msg string) *Error   { return New(http.StatusConflict, msg) }

var Unauthenticated = New(http.StatusUnauthorized, "Não autenticado")

// As reports whether err carries a user-facing *Error.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
