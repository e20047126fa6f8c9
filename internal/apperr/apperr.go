// Package apperr define el error de aplicación que los servicios devuelven y
// la capa HTTP serializa tal cual. Un error que no sea *apperr.Error se
// responde como internal_error sin filtrar detalle.
package apperr

import (
	"errors"
	"net/http"
)

type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"error_description,omitempty"`

	// Err es la causa interna. No se serializa.
	Err error `json:"-"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Code + ": " + e.Message
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// WithErr devuelve una copia con la causa interna adjunta.
func (e *Error) WithErr(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func Validation(code, message string) *Error {
	return New(http.StatusBadRequest, code, message)
}

func Unauthorized(code, message string) *Error {
	return New(http.StatusUnauthorized, code, message)
}

func Forbidden(code, message string) *Error {
	return New(http.StatusForbidden, code, message)
}

func NotFound(code, message string) *Error {
	return New(http.StatusNotFound, code, message)
}

func Conflict(code, message string) *Error {
	return New(http.StatusConflict, code, message)
}

// Gone marca estados terminales (token usado o vencido, invitación expirada).
func Gone(code, message string) *Error {
	return New(http.StatusGone, code, message)
}

func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: "internal_error", Err: err}
}

// From extrae el *Error de una cadena de errores, o envuelve como interno.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}
