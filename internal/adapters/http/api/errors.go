package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrUnavailable  = errors.New("service unavailable")
)

// opError attaches the failing operation and an error kind to an error.
type opError struct {
	op   string
	kind error
	err  error
}

func (e *opError) Error() string {
	switch {
	case e.err == nil:
		return fmt.Sprintf("%s: %v", e.op, e.kind)
	case e.kind == nil:
		return fmt.Sprintf("%s: %v", e.op, e.err)
	}
	return fmt.Sprintf("%s: %v: %v", e.op, e.kind, e.err)
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *opError) Unwrap() []error {
	var out []error
	if e.kind != nil {
		out = append(out, e.kind)
	}
	if e.err != nil {
		out = append(out, e.err)
	}
	return out
}

// Wrap names the operation that failed with err.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, err: err}
}

// NewKind reports a failure of kind in op without a further cause.
func NewKind(op string, kind error) error {
	return &opError{op: op, kind: kind}
}

// WrapKind reports err as a failure of kind in op.
func WrapKind(op string, kind, err error) error {
	return &opError{op: op, kind: kind, err: err}
}
