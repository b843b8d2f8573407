package serial

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/lsep/internal/api/grpc/safety"
	"github.com/oshokin/lsep/internal/domain/safety"
	"github.com/oshokin/lsep/internal/engine"
	"github.com/oshokin/lsep/internal/logger"
)

// Sink receives decoded readings in arrival order.
type Sink interface {
	Evaluate(ctx context.Context, reading safety.SensorReading) (engine.Decision, error)
}

// Stats counts what Decode did with the stream.
type Stats struct {
	// Lines is the number of non-empty lines read.
	Lines int
	// Accepted is the number of readings the sink evaluated.
	Accepted int
	// Skipped is the number of malformed or rejected lines.
	Skipped int
}

// maxLineSize bounds a single line.
const maxLineSize = 64 * 1024

// DecodeOption customizes Decode.
type DecodeOption func(*decodeOptions)

type decodeOptions struct {
	clock func() time.Time
}

// WithClock overrides the clock used for lines without a timestamp.
func WithClock(clock func() time.Time) DecodeOption {
	return func(o *decodeOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// Decode reads JSON lines from r and passes each reading to sink until r is
// exhausted or ctx is done. Malformed lines and readings the sink rejects
// are logged and skipped. Blank lines and lines starting with '#' are ignored.
func Decode(ctx context.Context, r io.Reader, sink Sink, opts ...DecodeOption) (Stats, error) {
	o := decodeOptions{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	var stats Stats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		stats.Lines++

		reading, err := decodeLine(line, o.clock)
		if err != nil {
			stats.Skipped++

			logger.WarnKV(ctx, "Skipping malformed line", "line", stats.Lines, "error", err)

			continue
		}

		decision, err := sink.Evaluate(ctx, reading)

		switch {
		case err == nil:
			stats.Accepted++

			logger.DebugKV(ctx, "Reading evaluated", "timestamp", reading.Timestamp, "state", decision.State)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return stats, err
		case errors.Is(err, safety.ErrInvalidReading), errors.Is(err, safety.ErrOutOfOrder):
			stats.Skipped++

			logger.WarnKV(ctx, "Reading rejected", "line", stats.Lines, "error", err)
		default:
			return stats, fmt.Errorf("evaluate reading: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read stream: %w", err)
	}

	return stats, nil
}

// decodeLine parses one JSON object with the DetermineState request schema.
func decodeLine(line []byte, clock func() time.Time) (safety.SensorReading, error) {
	msg := new(structpb.Struct)
	if err := protojson.Unmarshal(line, msg); err != nil {
		return safety.SensorReading{}, fmt.Errorf("parse json: %w", err)
	}

	return api.ReadingFromStruct(msg, clock)
}
