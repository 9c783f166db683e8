// Package apperr classifies failures so transports can report them without
// inspecting error strings.
package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误分类，对应调用方需要区分的几类失败。
type Kind string

const (
	KindUnknown       Kind = ""
	KindValidation    Kind = "validation"
	KindCapability    Kind = "capability"
	KindStorage       Kind = "storage"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
)

// Error wraps an underlying cause with its kind and the failing operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	default:
		return string(e.Kind) + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, &Error{Kind: k}) match on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// New builds an Error. A nil err yields nil so callers can wrap unconditionally.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validation(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Err: errors.New(msg)}
}

func Capability(op string, err error) error { return New(KindCapability, op, err) }

func Storage(op string, err error) error { return New(KindStorage, op, err) }

func Authorization(op, msg string) error {
	return &Error{Kind: KindAuthorization, Op: op, Err: errors.New(msg)}
}

func NotFound(op string, err error) error { return New(KindNotFound, op, err) }

// KindOf reports the kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
