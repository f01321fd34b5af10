package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "cryptofolio.v1.PortfolioService"

// PortfolioServiceServer is the server API for the portfolio service.
// Every message is a google.protobuf.Struct; decimals travel as strings.
type PortfolioServiceServer interface {
	CreatePortfolio(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetPortfolioDetails(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetTotalHolding(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CreateTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetTransactionMetrics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListSnapshots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetQuotes(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(srv PortfolioServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(PortfolioServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(s, ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the portfolio service for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PortfolioServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc("CreatePortfolio", PortfolioServiceServer.CreatePortfolio),
		methodDesc("GetPortfolioDetails", PortfolioServiceServer.GetPortfolioDetails),
		methodDesc("GetTotalHolding", PortfolioServiceServer.GetTotalHolding),
		methodDesc("CreateTransaction", PortfolioServiceServer.CreateTransaction),
		methodDesc("GetTransactionMetrics", PortfolioServiceServer.GetTransactionMetrics),
		methodDesc("ListHistory", PortfolioServiceServer.ListHistory),
		methodDesc("ListSnapshots", PortfolioServiceServer.ListSnapshots),
		methodDesc("GetQuotes", PortfolioServiceServer.GetQuotes),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cryptofolio/v1/portfolio.proto",
}

// RegisterPortfolioServiceServer registers srv on s
func RegisterPortfolioServiceServer(s grpc.ServiceRegistrar, srv PortfolioServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
