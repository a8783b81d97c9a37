package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "folio.v1.PortfolioService"

// Method names of the PortfolioService
const (
	MethodRecompute         = "Recompute"
	MethodUpdatePrices      = "UpdatePrices"
	MethodGetGrid           = "GetGrid"
	MethodGetCategories     = "GetCategories"
	MethodGetExchanges      = "GetExchanges"
	MethodGetSummary        = "GetSummary"
	MethodGetHistory        = "GetHistory"
	MethodGetHistoryChart   = "GetHistoryChart"
	MethodGetPerformance    = "GetPerformance"
	MethodGetMarketRates    = "GetMarketRates"
	MethodListSymbols       = "ListSymbols"
	MethodCreateSymbol      = "CreateSymbol"
	MethodUpdateSymbol      = "UpdateSymbol"
	MethodDeleteSymbol      = "DeleteSymbol"
	MethodListTransactions  = "ListTransactions"
	MethodCreateTransaction = "CreateTransaction"
	MethodUpdateTransaction = "UpdateTransaction"
	MethodDeleteTransaction = "DeleteTransaction"
)

// PortfolioServiceServer is the server API of the PortfolioService.
// Requests and responses are protobuf well-known types so no generated code is needed;
// field names are documented on each Server method.
type PortfolioServiceServer interface {
	Recompute(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	UpdatePrices(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetGrid(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetCategories(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetExchanges(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetSummary(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetHistoryChart(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPerformance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMarketRates(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListSymbols(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	CreateSymbol(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateSymbol(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteSymbol(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTransactions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateTransaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateTransaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteTransaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func newEmpty() *emptypb.Empty    { return new(emptypb.Empty) }
func newStruct() *structpb.Struct { return new(structpb.Struct) }

// unaryMethod builds the descriptor of one unary method
func unaryMethod[Req proto.Message](
	name string,
	newReq func() Req,
	call func(PortfolioServiceServer, context.Context, Req) (*structpb.Struct, error),
) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PortfolioServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(PortfolioServiceServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// PortfolioServiceDesc describes the PortfolioService for grpc.Server.RegisterService.
// No .proto file backs it, so Metadata is empty: server reflection lists the service
// but cannot describe its methods.
var PortfolioServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PortfolioServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodRecompute, newEmpty, PortfolioServiceServer.Recompute),
		unaryMethod(MethodUpdatePrices, newEmpty, PortfolioServiceServer.UpdatePrices),
		unaryMethod(MethodGetGrid, newEmpty, PortfolioServiceServer.GetGrid),
		unaryMethod(MethodGetCategories, newEmpty, PortfolioServiceServer.GetCategories),
		unaryMethod(MethodGetExchanges, newEmpty, PortfolioServiceServer.GetExchanges),
		unaryMethod(MethodGetSummary, newEmpty, PortfolioServiceServer.GetSummary),
		unaryMethod(MethodGetHistory, newStruct, PortfolioServiceServer.GetHistory),
		unaryMethod(MethodGetHistoryChart, newStruct, PortfolioServiceServer.GetHistoryChart),
		unaryMethod(MethodGetPerformance, newStruct, PortfolioServiceServer.GetPerformance),
		unaryMethod(MethodGetMarketRates, newEmpty, PortfolioServiceServer.GetMarketRates),
		unaryMethod(MethodListSymbols, newEmpty, PortfolioServiceServer.ListSymbols),
		unaryMethod(MethodCreateSymbol, newStruct, PortfolioServiceServer.CreateSymbol),
		unaryMethod(MethodUpdateSymbol, newStruct, PortfolioServiceServer.UpdateSymbol),
		unaryMethod(MethodDeleteSymbol, newStruct, PortfolioServiceServer.DeleteSymbol),
		unaryMethod(MethodListTransactions, newStruct, PortfolioServiceServer.ListTransactions),
		unaryMethod(MethodCreateTransaction, newStruct, PortfolioServiceServer.CreateTransaction),
		unaryMethod(MethodUpdateTransaction, newStruct, PortfolioServiceServer.UpdateTransaction),
		unaryMethod(MethodDeleteTransaction, newStruct, PortfolioServiceServer.DeleteTransaction),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterPortfolioServiceServer registers srv on s
func RegisterPortfolioServiceServer(s grpc.ServiceRegistrar, srv PortfolioServiceServer) {
	s.RegisterService(&PortfolioServiceDesc, srv)
}

// PortfolioClient calls the PortfolioService
type PortfolioClient struct {
	cc grpc.ClientConnInterface
}

// NewPortfolioClient creates a client over an established connection
func NewPortfolioClient(cc grpc.ClientConnInterface) *PortfolioClient {
	return &PortfolioClient{cc: cc}
}

// Call invokes a method; pass nil for methods that take no arguments
func (c *PortfolioClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	var req proto.Message = in
	if in == nil {
		req = new(emptypb.Empty)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
