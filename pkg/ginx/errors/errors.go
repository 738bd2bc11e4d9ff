package errors

import "fmt"

type withCode struct {
	code  int
	msg   string
	cause error
}

// WithCode wraps a business code and a client-facing message into an error.
func WithCode(code int, format string, args ...any) error {
	return &withCode{
		code: code,
		msg:  fmt.Sprintf(format, args...),
	}
}

// WrapC attaches a business code and message to an underlying cause. The
// cause is kept for server-side logging only and never shown to clients.
func WrapC(err error, code int, format string, args ...any) error {
	return &withCode{
		code:  code,
		msg:   fmt.Sprintf(format, args...),
		cause: err,
	}
}

func (e *withCode) Error() string {
	return e.msg
}

func (e *withCode) Unwrap() error {
	return e.cause
}

// Code returns the business code carried by err, or 0 for uncoded errors.
func Code(err error) int {
	if wc, ok := err.(*withCode); ok {
		return wc.code
	}
	return 0
}
