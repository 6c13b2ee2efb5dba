// Package errors defines the error taxonomy shared by the benchmark drivers
// and maps each kind to a process exit code.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrIO             = errors.New("io error")
	ErrParse          = errors.New("parse error")
	ErrArgument       = errors.New("argument error")
	ErrIndex          = errors.New("index error")
	ErrQuery          = errors.New("query error")
	ErrDivisionByZero = errors.New("division by zero")
	ErrUnknownEngine  = errors.New("unknown engine")
)

const (
	ExitFailure        = 1
	ExitArgument       = 2
	ExitIO             = 3
	ExitParse          = 4
	ExitIndex          = 5
	ExitQuery          = 6
	ExitDivisionByZero = 7
)

// AppError pairs a sentinel kind with a message, an optional underlying
// cause and the exit code the process should terminate with.
type AppError struct {
	Err      error
	Cause    error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Err.Error(), e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

// Unwrap exposes both the sentinel and the cause so errors.Is matches either.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCodeFor(sentinel),
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCodeFor(sentinel),
	}
}

// Wrap classifies cause as sentinel while keeping it in the error chain.
func Wrap(sentinel error, cause error, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Cause:    cause,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCodeFor(sentinel),
	}
}

// ExitCode returns the process exit status for err. Nil maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}
	return exitCodeFor(err)
}

// Kind returns the short name of the error's category, used as a log and
// metrics label.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrArgument), errors.Is(err, ErrUnknownEngine):
		return "argument"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrIO):
		return "io"
	case errors.Is(err, ErrIndex):
		return "index"
	case errors.Is(err, ErrQuery):
		return "query"
	case errors.Is(err, ErrDivisionByZero):
		return "division_by_zero"
	default:
		return "internal"
	}
}

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, ErrArgument), errors.Is(err, ErrUnknownEngine):
		return ExitArgument
	case errors.Is(err, ErrParse):
		return ExitParse
	case errors.Is(err, ErrIO):
		return ExitIO
	case errors.Is(err, ErrIndex):
		return ExitIndex
	case errors.Is(err, ErrQuery):
		return ExitQuery
	case errors.Is(err, ErrDivisionByZero):
		return ExitDivisionByZero
	default:
		return ExitFailure
	}
}
