package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies failures by who can correct them and how they surface.
type Kind string

const (
	KindValidation Kind = "validation"
	KindIO         Kind = "io"
	KindSubprocess Kind = "subprocess"
	KindParse      Kind = "parse"
	KindNetwork    Kind = "network"
	KindResponse   Kind = "response"
)

// Error is a classified error. Message is what the user sees.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil && e.Kind != KindSubprocess {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Validation(format string, args ...interface{}) error {
	return newError(KindValidation, nil, format, args...)
}

func IO(err error, format string, args ...interface{}) error {
	return newError(KindIO, err, format, args...)
}

// Subprocess carries the captured process output verbatim as its message.
func Subprocess(output string, err error) error {
	return &Error{Kind: KindSubprocess, Message: output, Err: err}
}

func Parse(err error, format string, args ...interface{}) error {
	return newError(KindParse, err, format, args...)
}

func Network(err error, format string, args ...interface{}) error {
	return newError(KindNetwork, err, format, args...)
}

func Response(format string, args ...interface{}) error {
	return newError(KindResponse, nil, format, args...)
}

// KindOf returns the kind of the first classified error in the chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error onto the status the API responds with.
func HTTPStatus(err error) int {
	if KindOf(err) == KindValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
