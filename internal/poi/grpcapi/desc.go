package grpcapi

import (
	"context"

	"google.golang.org/grpc"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
)

const serviceName = "travelin.poi.v1.POIService"

type RadiusRequest struct {
	Lat        float64  `json:"lat"`
	Lng        float64  `json:"lng"`
	RadiusKM   float64  `json:"radius_km"`
	Categories []string `json:"categories,omitempty"`
	Limit      int      `json:"limit,omitempty"`
	Offset     int      `json:"offset,omitempty"`
}

type BoxRequest struct {
	North      float64  `json:"north"`
	South      float64  `json:"south"`
	East       float64  `json:"east"`
	West       float64  `json:"west"`
	Categories []string `json:"categories,omitempty"`
	Limit      int      `json:"limit,omitempty"`
	Offset     int      `json:"offset,omitempty"`
}

type NameRequest struct {
	Query      string   `json:"query"`
	Categories []string `json:"categories,omitempty"`
	Limit      int      `json:"limit,omitempty"`
	Offset     int      `json:"offset,omitempty"`
}

type GetRequest struct {
	ID string `json:"id"`
}

type SearchResponse struct {
	Items      []domain.POI `json:"items"`
	TotalCount int          `json:"total_count"`
	Limit      int          `json:"limit"`
	Offset     int          `json:"offset"`
}

// POIServer defines the gRPC contract.
type POIServer interface {
	SearchRadius(context.Context, *RadiusRequest) (*SearchResponse, error)
	SearchBox(context.Context, *BoxRequest) (*SearchResponse, error)
	SearchName(context.Context, *NameRequest) (*SearchResponse, error)
	GetPOI(context.Context, *GetRequest) (*domain.POI, error)
}

// RegisterPOIServer registers the service implementation.
func RegisterPOIServer(s *grpc.Server, srv POIServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*POIServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "SearchRadius", Handler: unary("SearchRadius", func(srv POIServer, ctx context.Context, req *RadiusRequest) (any, error) {
				return srv.SearchRadius(ctx, req)
			})},
			{MethodName: "SearchBox", Handler: unary("SearchBox", func(srv POIServer, ctx context.Context, req *BoxRequest) (any, error) {
				return srv.SearchBox(ctx, req)
			})},
			{MethodName: "SearchName", Handler: unary("SearchName", func(srv POIServer, ctx context.Context, req *NameRequest) (any, error) {
				return srv.SearchName(ctx, req)
			})},
			{MethodName: "GetPOI", Handler: unary("GetPOI", func(srv POIServer, ctx context.Context, req *GetRequest) (any, error) {
				return srv.GetPOI(ctx, req)
			})},
		},
	}, srv)
}

// unary adapts a typed call to grpc.MethodDesc, running interceptors the way
// generated code does.
func unary[Req any](method string, call func(POIServer, context.Context, *Req) (any, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(POIServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(POIServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
