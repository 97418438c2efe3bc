//go:build cgo

package midi

import (
	"fmt"
	"log/slog"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// Inputs lists the names of the available MIDI input ports.
func Inputs() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("midi driver: %w", err)
	}
	defer drv.Close()
	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list midi inputs: %w", err)
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names, nil
}

// Listen opens the first input port whose name starts with prefix (any port
// when prefix is empty) and passes its messages to handler on the driver's
// goroutine. The returned stop func closes the port.
func Listen(prefix string, handler func(midi.Message, int32), logger *slog.Logger) (stop func(), err error) {
	if logger == nil {
		logger = slog.Default()
	}
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("midi driver: %w", err)
	}
	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("list midi inputs: %w", err)
	}
	var found drivers.In
	for _, in := range ins {
		if strings.HasPrefix(in.String(), prefix) {
			found = in
			break
		}
	}
	if found == nil {
		drv.Close()
		return nil, fmt.Errorf("no MIDI input matching %q", prefix)
	}
	if err := found.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("open MIDI input %q: %w", found.String(), err)
	}
	name := found.String()
	stopListen, err := midi.ListenTo(found, handler, midi.HandleError(func(listenErr error) {
		logger.Warn("MIDI listener error", "device", name, "err", listenErr)
	}))
	if err != nil {
		_ = found.Close()
		drv.Close()
		return nil, fmt.Errorf("listen on %q: %w", name, err)
	}
	logger.Info("MIDI input connected", "device", name)
	return func() {
		stopListen()
		_ = found.Close()
		drv.Close()
		logger.Info("MIDI input closed", "device", name)
	}, nil
}
