// Package apperr classifies engine/store errors so HTTP and webhook layers can
// map them to a response without re-deriving the cause from error text.
package apperr

import "errors"

type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindUnauthorized       Kind = "unauthorized"
	KindValidation         Kind = "validation"
	KindInsufficientFunds  Kind = "insufficient_balance"
	KindUpstream           Kind = "upstream"
	KindConflict           Kind = "conflict"
	KindInternal           Kind = "internal"
)

// Error wraps a plain error with a Kind so callers can classify it via
// errors.As without string-matching the message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func NotFound(msg string) error          { return New(KindNotFound, msg) }
func Unauthorized(msg string) error      { return New(KindUnauthorized, msg) }
func Validation(msg string) error        { return New(KindValidation, msg) }
func InsufficientFunds(msg string) error { return New(KindInsufficientFunds, msg) }
func Conflict(msg string) error          { return New(KindConflict, msg) }
func Upstream(msg string, err error) error {
	return Wrap(KindUpstream, msg, err)
}
func Internal(msg string, err error) error {
	return Wrap(KindInternal, msg, err)
}

// KindOf extracts the Kind of err, defaulting to KindInternal for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
