package termimage

import (
	"errors"
	"fmt"

	"github.com/blacktop/termimage/pkg/tty"
)

var (
	// ErrInvalidSize is returned for invalid render sizes, scales, padding or seek indexes
	ErrInvalidSize = errors.New("invalid size")
	// ErrInvalidFormat is returned when a format string does not parse
	ErrInvalidFormat = errors.New("invalid format spec")
	// ErrCapabilityUndetected marks a probe the terminal did not answer
	ErrCapabilityUndetected = errors.New("terminal capability not detected")
	// ErrDecode is returned when a frame cannot be produced from the source
	ErrDecode = errors.New("failed to decode frame")
	// ErrIteratorClosed is returned when using a closed frame iterator
	ErrIteratorClosed = errors.New("frame iterator is closed")
	// ErrUnsupportedStyle is returned for an unknown render style
	ErrUnsupportedStyle = errors.New("unsupported render style")

	// ErrTerminalIO is returned when writing to or reading from the terminal fails
	ErrTerminalIO = tty.ErrTerminalIO
	// ErrQueryTimeout is returned when a terminal query got no reply in time
	ErrQueryTimeout = tty.ErrQueryTimeout
)

// WrapInvalidSize returns an ErrInvalidSize with a formatted reason
func WrapInvalidSize(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSize, fmt.Sprintf(format, args...))
}

// WrapInvalidFormat returns an ErrInvalidFormat naming the offending spec
func WrapInvalidFormat(spec string, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidFormat, spec, reason)
}

// WrapDecode wraps a frame source failure
func WrapDecode(err error) error {
	if err == nil || errors.Is(err, ErrDecode) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDecode, err)
}

// WrapTerminalIO wraps a terminal write failure
func WrapTerminalIO(err error) error {
	if err == nil || errors.Is(err, ErrTerminalIO) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTerminalIO, err)
}
