// Package grpcapi exposes the administrative sweep trigger over gRPC for
// schedulers that speak it.  Messages are protobuf well-known types, so no
// generated code is needed.
package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	AdminServiceName = "portico.admin.v1.Admin"
	sweepMethod      = "/" + AdminServiceName + "/Sweep"
)

// AdminServer is the server API for portico.admin.v1.Admin.
//
//	rpc Sweep(google.protobuf.Empty) returns (google.protobuf.Struct)
type AdminServer interface {
	Sweep(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

func RegisterAdminServer(s grpc.ServiceRegistrar, srv AdminServer) {
	s.RegisterService(&adminServiceDesc, srv)
}

var adminServiceDesc = grpc.ServiceDesc{
	ServiceName: AdminServiceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Sweep", Handler: sweepHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "portico/admin/v1/admin.proto",
}

func sweepHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServer).Sweep(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: sweepMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminServer).Sweep(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// AdminClient calls portico.admin.v1.Admin.
type AdminClient struct {
	cc grpc.ClientConnInterface
}

func NewAdminClient(cc grpc.ClientConnInterface) *AdminClient {
	return &AdminClient{cc: cc}
}

func (c *AdminClient) Sweep(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, sweepMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
