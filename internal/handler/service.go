package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "clinic.v1.ClinicService"

// ClinicServer is the server API of clinic.v1.ClinicService. Every method
// takes and returns a google.protobuf.Struct.
type ClinicServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Dashboard(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BookAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RequestVideoCall(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReviewAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReviewVideoCall(context.Context, *structpb.Struct) (*structpb.Struct, error)
	JoinVideoCall(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type method func(ClinicServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, m method) grpc.MethodDesc {
	full := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return m(srv.(ClinicServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return m(srv.(ClinicServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ClinicServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", ClinicServer.Register),
		unary("Login", ClinicServer.Login),
		unary("Dashboard", ClinicServer.Dashboard),
		unary("BookAppointment", ClinicServer.BookAppointment),
		unary("RequestVideoCall", ClinicServer.RequestVideoCall),
		unary("ReviewAppointment", ClinicServer.ReviewAppointment),
		unary("ReviewVideoCall", ClinicServer.ReviewVideoCall),
		unary("JoinVideoCall", ClinicServer.JoinVideoCall),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clinic/v1/clinic.proto",
}

func RegisterClinicServer(s grpc.ServiceRegistrar, srv ClinicServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls ClinicService methods by name.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) Call(ctx context.Context, name string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+name, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
