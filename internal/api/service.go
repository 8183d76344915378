package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// FingerprintServiceName is the fully qualified gRPC service name.
const FingerprintServiceName = "vmtest.v1.FingerprintService"

const (
	runMethod       = "/" + FingerprintServiceName + "/Run"
	latestMethod    = "/" + FingerprintServiceName + "/Latest"
	consensusMethod = "/" + FingerprintServiceName + "/Consensus"
)

// FingerprintServer is the server API for the fingerprint service.
type FingerprintServer interface {
	Run(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Latest(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Consensus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterFingerprintServer registers srv on s.
func RegisterFingerprintServer(s grpc.ServiceRegistrar, srv FingerprintServer) {
	s.RegisterService(&FingerprintServiceDesc, srv)
}

// FingerprintServiceDesc describes the service for grpc.Server.
var FingerprintServiceDesc = grpc.ServiceDesc{
	ServiceName: FingerprintServiceName,
	HandlerType: (*FingerprintServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Run", Handler: runHandler},
		{MethodName: "Latest", Handler: latestHandler},
		{MethodName: "Consensus", Handler: consensusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vmtest/v1/fingerprint.proto",
}

func runHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FingerprintServer).Run(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: runMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FingerprintServer).Run(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func latestHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FingerprintServer).Latest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: latestMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FingerprintServer).Latest(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func consensusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FingerprintServer).Consensus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: consensusMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FingerprintServer).Consensus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
