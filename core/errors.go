package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError is raised before any request leaves the process.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	if len(err.Fields) > 0 {
		return err.Fields[0].Field + ": " + err.Fields[0].Error
	}
	return "validation failed"
}

// TransportError covers network failures, undecodable bodies and non-2xx responses that carry no conflicts.
type TransportError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func NewTransportError(op string, status int, msg string, err error) error {
	return &TransportError{Op: op, Status: status, Message: msg, Err: err}
}

func (err TransportError) Error() string {
	msg := err.Message
	if msg == "" && err.Err != nil {
		msg = err.Err.Error()
	}
	if err.Status != 0 {
		return fmt.Sprintf("%s: %d %s", err.Op, err.Status, msg)
	}
	return fmt.Sprintf("%s: %s", err.Op, msg)
}

func (err TransportError) Unwrap() error { return err.Err }

// AuthError signals expired or invalid credentials. Only the session owner reacts to it.
type AuthError struct {
	Message string
}

func NewAuthError(msg string) error {
	return &AuthError{Message: msg}
}

func (err AuthError) Error() string {
	if err.Message == "" {
		return "not authenticated"
	}
	return err.Message
}

func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

func IsTransport(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}

func IsAuth(err error) bool {
	var aErr *AuthError
	return errors.As(err, &aErr)
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
