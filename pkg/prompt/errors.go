package prompt

import "errors"

var (
	// ErrAborted signals the user aborted input (Ctrl+C).
	ErrAborted = errors.New("prompt: aborted")
	// ErrInvalid is returned when a form is still invalid after the allowed
	// attempts.
	ErrInvalid = errors.New("prompt: form is invalid")
)
