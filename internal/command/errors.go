package command

import (
	"errors"
	"fmt"

	"github.com/dronelink/dronelinkd/internal/adapter"
)

var (
	// ErrUnhandled is returned for a command the engine does not execute.
	ErrUnhandled = errors.New("UNHANDLED: unhandled command type")

	// ErrNoFileProduced is the outcome when file verification runs out of attempts.
	ErrNoFileProduced = errors.New("NO_FILE: camera produced no file")

	// ErrSessionClosed is the outcome of a verification abandoned because its
	// session closed.
	ErrSessionClosed = fmt.Errorf("%w: session closed", adapter.ErrUnavailable)

	// ErrUnknownKind is returned when decoding an unregistered command type.
	ErrUnknownKind = errors.New("UNKNOWN_KIND")

	// ErrInvalidParameter indicates a command parameter is missing or out of range.
	ErrInvalidParameter = fmt.Errorf("%w: invalid parameter", adapter.ErrInvalidRange)
)

// Code returns the stable outcome code for err: "SUCCESS" for nil, the
// command-level codes for the engine's own sentinels, otherwise the
// normalized adapter code.
func Code(err error) string {
	switch {
	case err == nil:
		return "SUCCESS"
	case errors.Is(err, ErrUnhandled):
		return "UNHANDLED"
	case errors.Is(err, ErrNoFileProduced):
		return "NO_FILE"
	case errors.Is(err, ErrUnknownKind):
		return "UNKNOWN_KIND"
	}
	return adapter.Code(err)
}
