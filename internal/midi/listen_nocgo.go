//go:build !cgo

package midi

import (
	"errors"
	"log/slog"

	"gitlab.com/gomidi/midi/v2"
)

var errNoDriver = errors.New("MIDI input needs a cgo build")

func Inputs() ([]string, error) { return nil, errNoDriver }

func Listen(prefix string, handler func(midi.Message, int32), logger *slog.Logger) (func(), error) {
	return nil, errNoDriver
}
