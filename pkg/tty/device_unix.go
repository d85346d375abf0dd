//go:build unix

package tty

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

type fileDevice struct {
	in    *os.File
	out   *os.File
	owned bool
}

// Open returns the controlling terminal, falling back to stdin/stdout
func Open() (Device, error) {
	f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return &fileDevice{in: os.Stdin, out: os.Stdout}, nil
	}
	return &fileDevice{in: f, out: f, owned: true}, nil
}

// NewFileDevice drives an explicit input/output pair
func NewFileDevice(in, out *os.File) Device {
	return &fileDevice{in: in, out: out}
}

func (d *fileDevice) Write(p []byte) (int, error) {
	return d.out.Write(p)
}

func (d *fileDevice) ReadTimeout(p []byte, timeout time.Duration) (int, error) {
	fd := int(d.in.Fd())
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(timeout.Milliseconds()))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	if fds[0].Revents&(unix.POLLHUP|unix.POLLERR) != 0 && fds[0].Revents&unix.POLLIN == 0 {
		return 0, os.ErrClosed
	}
	n, err = unix.Read(fd, p)
	if err != nil {
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			return 0, nil
		}
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
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
	ws, err := unix.IoctlGetWinsize(int(d.out.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return Winsize{}, err
	}
	return Winsize{
		Cols:        int(ws.Col),
		Rows:        int(ws.Row),
		PixelWidth:  int(ws.Xpixel),
		PixelHeight: int(ws.Ypixel),
	}, nil
}

func (d *fileDevice) Close() error {
	if d.owned {
		return d.in.Close()
	}
	return nil
}
