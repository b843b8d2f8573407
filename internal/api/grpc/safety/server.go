package safety

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/lsep/internal/domain/safety"
	"github.com/oshokin/lsep/internal/engine"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Evaluate(ctx context.Context, reading domain.SensorReading) (engine.Decision, error)
	Snapshot(ctx context.Context) (domain.Snapshot, error)
	History(ctx context.Context) ([]domain.Transition, error)
}

// Server implements the SafetyService gRPC API.
type Server struct {
	// service provides the decision pipeline.
	service Service
	// now stamps readings that arrive without a timestamp.
	now func() time.Time
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithClock overrides the clock used for readings without a timestamp.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service, opts ...ServerOption) *Server {
	s := &Server{
		service: service,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// DetermineState evaluates one reading.
func (s *Server) DetermineState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	reading, err := ReadingFromStruct(req, s.now)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	decision, err := s.service.Evaluate(ctx, reading)
	if err != nil {
		return nil, toStatus(err, "unable to evaluate reading")
	}

	return ResultToStruct(Result{Decision: decision, Timestamp: reading.Timestamp}), nil
}

// GetState returns the current state and the time of the last transition.
func (s *Server) GetState(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snapshot, err := s.service.Snapshot(ctx)
	if err != nil {
		return nil, toStatus(err, "unable to read state")
	}

	return SnapshotToStruct(snapshot), nil
}

// GetHistory returns the audit trail of the running engine.
func (s *Server) GetHistory(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	entries, err := s.service.History(ctx)
	if err != nil {
		return nil, toStatus(err, "unable to read history")
	}

	return HistoryToStruct(entries), nil
}

// toStatus maps service errors to gRPC status codes. Internal errors are not
// echoed to the caller.
func toStatus(err error, internalMessage string) error {
	switch {
	case errors.Is(err, domain.ErrInvalidReading):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrOutOfOrder):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, internalMessage)
	}
}
