package cli

import (
	"errors"
	"fmt"

	"imagectl/internal/docker"
	"imagectl/internal/images"
)

// usageError marks bad command line input.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{fmt.Errorf(format, args...)}
}

// ExitCode maps err to the process exit status: 0 on success, 2 for
// invalid input, 1 for everything else.
func ExitCode(err error) int {
	var ue *usageError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, docker.ErrInvalid), errors.Is(err, images.ErrUnknownImage), errors.As(err, &ue):
		return 2
	default:
		return 1
	}
}
