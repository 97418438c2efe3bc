//go:build !unix

package keys

import (
	"errors"
	"io"
	"os"
)

var errWouldBlock = errors.New("would block")

func setNonblock(int, bool) error { return errors.ErrUnsupported }

func newStdinReader(int) io.Reader { return os.Stdin }
