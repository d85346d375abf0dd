/*
Package tty owns the terminal I/O channel.

Every byte written to the terminal and every query/response exchange goes
through a Gate so that concurrent renders never interleave mid-sequence and a
query's write+read pair is atomic with respect to other writers.
*/
package tty

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var (
	// ErrQueryTimeout is returned when no complete reply arrived in time
	ErrQueryTimeout = errors.New("terminal query timed out")
	// ErrTerminalIO wraps read/write/mode failures on the terminal
	ErrTerminalIO = errors.New("terminal i/o error")
)

// pollInterval bounds a single read wait so context cancellation is noticed
const pollInterval = 25 * time.Millisecond

// Winsize is the terminal window size in cells and, when reported, pixels
type Winsize struct {
	Cols        int
	Rows        int
	PixelWidth  int
	PixelHeight int
}

// CellSize returns the pixel size of one cell, or 0,0 when unknown
func (w Winsize) CellSize() (width, height int) {
	if w.Cols <= 0 || w.Rows <= 0 || w.PixelWidth <= 0 || w.PixelHeight <= 0 {
		return 0, 0
	}
	return w.PixelWidth / w.Cols, w.PixelHeight / w.Rows
}

// Device is the raw terminal a Gate drives.
type Device interface {
	io.Writer
	// ReadTimeout reads whatever input is available, waiting at most d.
	// It returns 0, nil when nothing arrived in time.
	ReadTimeout(p []byte, d time.Duration) (int, error)
	// MakeRaw switches input to raw, no-echo mode and returns the restore func.
	MakeRaw() (restore func() error, err error)
	IsTerminal() bool
	Size() (Winsize, error)
}

// Gate serializes all access to a Device.
type Gate struct {
	mu  sync.Mutex
	dev Device
}

// New wraps dev in a Gate
func New(dev Device) *Gate {
	return &Gate{dev: dev}
}

// Write sends p to the terminal while holding the output lock
func (g *Gate) Write(p []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, err := g.dev.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrTerminalIO, err)
	}
	return n, nil
}

// WriteString is Write for strings
func (g *Gate) WriteString(s string) (int, error) {
	return g.Write([]byte(s))
}

// Query writes request and reads the reply until done reports it complete.
//
// The terminal is switched to raw mode for the duration of the exchange and
// restored on every exit path. On timeout the partial reply is returned
// alongside ErrQueryTimeout.
func (g *Gate) Query(ctx context.Context, request []byte, done func([]byte) bool, timeout time.Duration) (reply []byte, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	restore, err := g.dev.MakeRaw()
	if err != nil {
		return nil, fmt.Errorf("%w: raw mode: %w", ErrTerminalIO, err)
	}
	defer func() {
		if rerr := restore(); rerr != nil && err == nil {
			err = fmt.Errorf("%w: restore mode: %w", ErrTerminalIO, rerr)
		}
	}()

	if _, err := g.dev.Write(request); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTerminalIO, err)
	}

	deadline := time.Now().Add(timeout)
	chunk := make([]byte, 256)
	for {
		if done(reply) {
			return reply, nil
		}
		if ctx.Err() != nil {
			return reply, fmt.Errorf("%w: %w", ErrQueryTimeout, ctx.Err())
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return reply, ErrQueryTimeout
		}
		n, rerr := g.dev.ReadTimeout(chunk, min(remaining, pollInterval))
		reply = append(reply, chunk[:n]...)
		if rerr != nil {
			if errors.Is(rerr, io.EOF) && done(reply) {
				return reply, nil
			}
			return reply, fmt.Errorf("%w: %w", ErrTerminalIO, rerr)
		}
	}
}

// IsTerminal reports whether the underlying device is an interactive terminal
func (g *Gate) IsTerminal() bool {
	return g.dev.IsTerminal()
}

// Size returns the current window size
func (g *Gate) Size() (Winsize, error) {
	ws, err := g.dev.Size()
	if err != nil {
		return Winsize{}, fmt.Errorf("%w: %w", ErrTerminalIO, err)
	}
	return ws, nil
}

// Close releases the device if it owns an open file
func (g *Gate) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.dev.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
