//go:build !unix

package tty

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// fileDevice reads through a single long-lived goroutine so bytes arriving
// after a timeout are kept for the next read instead of being lost.
type fileDevice struct {
	in      *os.File
	out     *os.File
	once    sync.Once
	ch      chan []byte
	pending []byte
}

// Open returns a device over stdin/stdout
func Open() (Device, error) {
	return &fileDevice{in: os.Stdin, out: os.Stdout}, nil
}

// NewFileDevice drives an explicit input/output pair
func NewFileDevice(in, out *os.File) Device {
	return &fileDevice{in: in, out: out}
}

func (d *fileDevice) Write(p []byte) (int, error) {
	return d.out.Write(p)
}

func (d *fileDevice) startReader() {
	d.ch = make(chan []byte, 16)
	go func() {
		defer close(d.ch)
		for {
			buf := make([]byte, 256)
			n, err := d.in.Read(buf)
			if n > 0 {
				d.ch <- buf[:n]
			}
			if err != nil {
				return
			}
		}
	}()
}

func (d *fileDevice) ReadTimeout(p []byte, timeout time.Duration) (int, error) {
	d.once.Do(d.startReader)

	if len(d.pending) > 0 {
		n := copy(p, d.pending)
		d.pending = d.pending[n:]
		return n, nil
	}

	select {
	case b, ok := <-d.ch:
		if !ok {
			return 0, io.EOF
		}
		n := copy(p, b)
		d.pending = b[n:]
		return n, nil
	case <-time.After(timeout):
		return 0, nil
	}
}

func (d *fileDevice) MakeRaw() (func() error, error) {
	fd := int(d.in.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() error { return term.Restore(fd, state) }, nil
}

func (d *fileDevice) IsTerminal() bool {
	fd := d.in.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (d *fileDevice) Size() (Winsize, error) {
	cols, rows, err := term.GetSize(int(d.out.Fd()))
	if err != nil {
		return Winsize{}, err
	}
	return Winsize{Cols: cols, Rows: rows}, nil
}
