// Package fault holds the error taxonomy shared by the region adapter,
// the backend factory and the backends. Every failure surfaced by those
// packages wraps exactly one of these sentinels.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks an invalid or unknown configuration value.
	ErrConfiguration = errors.New("configuration error")
	// ErrPrecondition marks a call made in the wrong state or with malformed input.
	ErrPrecondition = errors.New("precondition error")
	// ErrBackend marks a failure reported by, or about, the backend instance.
	ErrBackend = errors.New("backend error")
	// ErrUnknownParameter is a configuration error for an unrecognised parameter name.
	ErrUnknownParameter = fmt.Errorf("%w: unknown parameter", ErrConfiguration)
)

func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func Precondition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

// Backend wraps err as a backend error. A nil err yields nil; an err that
// already carries ErrBackend is returned unchanged.
func Backend(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrBackend) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrBackend, err)
}
