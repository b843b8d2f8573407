package serial

import (
	"context"
	"errors"
	"fmt"

	goserial "go.bug.st/serial"

	"github.com/oshokin/lsep/internal/logger"
)

var errPortRequired = errors.New("serial port path is required")

// Open opens path in 8N1 mode at the given baud rate.
//
//nolint:ireturn // serial.Port is the library's port abstraction.
func Open(path string, baudRate int) (goserial.Port, error) {
	if path == "" {
		return nil, errPortRequired
	}

	mode := &goserial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   goserial.NoParity,
		StopBits: goserial.OneStopBit,
	}

	port, err := goserial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}

	return port, nil
}

// Stream opens path and feeds its readings to sink until ctx is done or the
// port fails. The port is closed on return.
func Stream(ctx context.Context, path string, baudRate int, sink Sink, opts ...DecodeOption) (Stats, error) {
	port, err := Open(path, baudRate)
	if err != nil {
		return Stats{}, err
	}

	logger.InfoKV(ctx, "Serial ingest started", "port", path, "baud_rate", baudRate)

	// Closing the port unblocks a pending Read once ctx is done.
	stop := context.AfterFunc(ctx, func() {
		_ = port.Close()
	})

	defer func() {
		if stop() {
			_ = port.Close()
		}
	}()

	stats, err := Decode(ctx, port, sink, opts...)
	if ctx.Err() != nil {
		logger.InfoKV(ctx, "Serial ingest stopped", "accepted", stats.Accepted, "skipped", stats.Skipped)

		return stats, nil
	}

	return stats, err
}
