package generation

import (
	"errors"
	"fmt"

	"meal-planner/internal/pkg/common"
)

// Error is a classified generation failure. Kind is one of the predefined
// common errors so callers can match with errors.Is.
type Error struct {
	Kind       *common.CustomError
	StatusCode int
	Attempts   int
	Err        error
}

func (e *Error) Error() string {
	msg := e.Kind.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Attempts > 0 {
		msg = fmt.Sprintf("%s after %d attempt(s)", msg, e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsRetryable reports whether err is a transient backend failure. Only the
// outermost classification counts: an exhausted error is final even though it
// records the transient failure that preceded it.
func IsRetryable(err error) bool {
	var ge *Error
	if !errors.As(err, &ge) {
		return false
	}
	return ge.Kind.Is(common.ErrTransientGeneration)
}

// exhausted builds the terminal error from the last transient failure. The
// transient classification is dropped so errors.Is matches only the final kind.
func exhausted(attempts int, last error) *Error {
	e := &Error{Kind: common.ErrGenerationExhausted, Attempts: attempts, Err: last}
	var ge *Error
	if errors.As(last, &ge) {
		e.StatusCode = ge.StatusCode
		e.Err = ge.Err
	}
	return e
}

func transient(status, attempt int, body string) *Error {
	return &Error{
		Kind:       common.ErrTransientGeneration,
		StatusCode: status,
		Attempts:   attempt,
		Err:        fmt.Errorf("backend responded: %s", truncate(body, 200)),
	}
}

func fatal(status, attempt int, err error) *Error {
	return &Error{
		Kind:       common.ErrGenerationFailed,
		StatusCode: status,
		Attempts:   attempt,
		Err:        err,
	}
}

func malformed(shape string, err error) *Error {
	return &Error{
		Kind: common.ErrMalformedGeneration,
		Err:  fmt.Errorf("%s: %w", shape, err),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
