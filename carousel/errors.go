package carousel

import (
	"context"
	"errors"

	errorslib "github.com/goliatone/go-errors"
)

// ErrorKind defines export pipeline error kinds.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindBusy          ErrorKind = "busy"
	KindResourceLoad  ErrorKind = "resource_load"
	KindTargetMissing ErrorKind = "target_missing"
	KindCanvas        ErrorKind = "canvas"
	KindEncoding      ErrorKind = "encoding"
	KindNotFound      ErrorKind = "not_found"
	KindTimeout       ErrorKind = "timeout"
	KindCanceled      ErrorKind = "canceled"
	KindInternal      ErrorKind = "internal"
	KindNotImpl       ErrorKind = "not_implemented"
)

// ExportError wraps errors with a kind.
type ExportError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *ExportError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// NewError creates a new export error.
func NewError(kind ErrorKind, msg string, err error) *ExportError {
	return &ExportError{Kind: kind, Msg: msg, Err: err}
}

// ErrBusy is returned when an export is requested while another one runs.
var ErrBusy = NewError(KindBusy, "export already in progress", nil)

// AsGoError maps an error into a go-errors error. The source error stays
// reachable through Unwrap.
func AsGoError(err error) *errorslib.Error {
	if err == nil {
		return nil
	}

	var ge *errorslib.Error
	if errors.As(err, &ge) {
		return ge
	}

	kind := KindFromError(err)
	msg := err.Error()

	var exportErr *ExportError
	if errors.As(err, &exportErr) && exportErr.Msg != "" {
		msg = exportErr.Msg
	}

	switch kind {
	case KindValidation:
		return errorslib.Wrap(err, errorslib.CategoryValidation, msg).WithTextCode("validation")
	case KindNotFound:
		return errorslib.Wrap(err, errorslib.CategoryNotFound, msg).WithTextCode("not_found")
	case KindTargetMissing:
		return errorslib.Wrap(err, errorslib.CategoryNotFound, msg).WithTextCode("target_missing")
	case KindBusy:
		return errorslib.Wrap(err, errorslib.CategoryConflict, msg).WithTextCode("busy")
	case KindResourceLoad:
		return errorslib.Wrap(err, errorslib.CategoryExternal, msg).WithTextCode("resource_load")
	case KindTimeout:
		return errorslib.Wrap(err, errorslib.CategoryOperation, msg).WithTextCode("timeout")
	case KindCanceled:
		return errorslib.Wrap(err, errorslib.CategoryOperation, msg).WithTextCode("canceled")
	case KindNotImpl:
		return errorslib.Wrap(err, errorslib.CategoryOperation, msg).WithTextCode("not_implemented")
	case KindCanvas:
		return errorslib.Wrap(err, errorslib.CategoryInternal, msg).WithTextCode("canvas")
	case KindEncoding:
		return errorslib.Wrap(err, errorslib.CategoryInternal, msg).WithTextCode("encoding")
	default:
		return errorslib.Wrap(err, errorslib.CategoryInternal, msg).WithTextCode("internal")
	}
}

// KindFromError maps an error to its export error kind.
func KindFromError(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var exportErr *ExportError
	if errors.As(err, &exportErr) {
		return exportErr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	var ge *errorslib.Error
	if errors.As(err, &ge) {
		switch ge.Category {
		case errorslib.CategoryValidation, errorslib.CategoryBadInput:
			return KindValidation
		case errorslib.CategoryNotFound:
			return KindNotFound
		case errorslib.CategoryConflict:
			return KindBusy
		case errorslib.CategoryExternal:
			return KindResourceLoad
		}
	}

	return KindInternal
}
