package clubs

import "errors"

// Error kinds returned by Service. Match them with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrBadRequest = errors.New("bad request")
)

// Error is a business-rule failure with a caller-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func notFound(msg string) error   { return &Error{Kind: ErrNotFound, Message: msg} }
func conflict(msg string) error   { return &Error{Kind: ErrConflict, Message: msg} }
func forbidden(msg string) error  { return &Error{Kind: ErrForbidden, Message: msg} }
func badRequest(msg string) error { return &Error{Kind: ErrBadRequest, Message: msg} }
