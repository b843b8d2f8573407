//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	api "github.com/oshokin/lsep/internal/api/grpc/safety"
	"github.com/oshokin/lsep/internal/config"
	"github.com/oshokin/lsep/internal/domain/safety"
)

// Client wraps the SafetyService stub with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the decision server.
	conn *grpc.ClientConn
	// api is the SafetyService stub.
	api api.SafetyServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// dialOptions are appended to the default dial options.
	dialOptions []grpc.DialOption
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithDialOptions adds gRPC dial options, e.g. a custom dialer.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *Client) {
		c.dialOptions = append(c.dialOptions, opts...)
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the decision server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	client := &Client{
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	dialOptions := append(
		[]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
		client.dialOptions...,
	)

	conn, err := grpc.NewClient(address, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("dial decision server: %w", err)
	}

	client.conn = conn
	client.api = api.NewSafetyServiceClient(conn)

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// DetermineState sends one reading and returns the server's decision.
func (c *Client) DetermineState(ctx context.Context, reading safety.SensorReading) (api.Result, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.DetermineState(callCtx, api.ReadingToStruct(reading))
	if err != nil {
		return api.Result{}, fmt.Errorf("determine state: %w", err)
	}

	result, err := api.ResultFromStruct(resp)
	if err != nil {
		return api.Result{}, fmt.Errorf("decode decision: %w", err)
	}

	return result, nil
}

// GetState returns the server's current state.
func (c *Client) GetState(ctx context.Context) (safety.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetState(callCtx, new(emptypb.Empty))
	if err != nil {
		return safety.Snapshot{}, fmt.Errorf("get state: %w", err)
	}

	snapshot, err := api.SnapshotFromStruct(resp)
	if err != nil {
		return safety.Snapshot{}, fmt.Errorf("decode state: %w", err)
	}

	return snapshot, nil
}

// GetHistory returns the server's in-memory audit trail.
func (c *Client) GetHistory(ctx context.Context) ([]safety.Transition, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetHistory(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}

	history, err := api.HistoryFromStruct(resp)
	if err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	return history, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
