//go:build unix

package keys

import (
	"io"
	"syscall"
)

var errWouldBlock error = syscall.EAGAIN

func setNonblock(fd int, on bool) error { return syscall.SetNonblock(fd, on) }

// stdinReader reads the raw descriptor so a non-blocking stdin reports
// EAGAIN instead of parking the goroutine.
type stdinReader int

func (r stdinReader) Read(p []byte) (int, error) {
	n, err := syscall.Read(int(r), p)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func newStdinReader(fd int) io.Reader { return stdinReader(fd) }
