package safety

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "lsep.v1.SafetyService"

// Full method names.
const (
	MethodDetermineState = "/" + ServiceName + "/DetermineState"
	MethodGetState       = "/" + ServiceName + "/GetState"
	MethodGetHistory     = "/" + ServiceName + "/GetHistory"
)

// SafetyServiceServer is the server API for SafetyService.
type SafetyServiceServer interface {
	DetermineState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetState(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	GetHistory(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes SafetyService for grpc.ServiceRegistrar.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SafetyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "DetermineState", Handler: determineStateHandler},
		{MethodName: "GetState", Handler: getStateHandler},
		{MethodName: "GetHistory", Handler: getHistoryHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lsep/v1/safety.proto",
}

// RegisterSafetyServiceServer registers srv on s.
func RegisterSafetyServiceServer(s grpc.ServiceRegistrar, srv SafetyServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func determineStateHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature is fixed by grpc.MethodDesc.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(SafetyServiceServer).DetermineState(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodDetermineState}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SafetyServiceServer).DetermineState(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func getStateHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature is fixed by grpc.MethodDesc.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(SafetyServiceServer).GetState(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGetState}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SafetyServiceServer).GetState(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}

func getHistoryHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature is fixed by grpc.MethodDesc.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(SafetyServiceServer).GetHistory(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGetHistory}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SafetyServiceServer).GetHistory(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}

// SafetyServiceClient is the client API for SafetyService.
type SafetyServiceClient interface {
	DetermineState(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetState(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetHistory(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type safetyServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSafetyServiceClient returns a client stub bound to cc.
func NewSafetyServiceClient(cc grpc.ClientConnInterface) SafetyServiceClient {
	return &safetyServiceClient{cc: cc}
}

func (c *safetyServiceClient) DetermineState(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodDetermineState, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *safetyServiceClient) GetState(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodGetState, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *safetyServiceClient) GetHistory(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodGetHistory, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
