package grpcapi

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/handler"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/validate"
)

// Server implements POIServer on top of the search engine.
type Server struct {
	search handler.Searcher
	logger *zap.Logger
}

func NewServer(search handler.Searcher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{search: search, logger: logger}
}

func (s *Server) SearchRadius(ctx context.Context, req *RadiusRequest) (*SearchResponse, error) {
	v := validate.New()
	v.Check("lat", validate.Latitude(req.Lat))
	v.Check("lng", validate.Longitude(req.Lng))
	v.Check("radius_km", validate.Radius(req.RadiusKM))
	categories := v.Categories("categories", req.Categories)
	page := pageOf(v, req.Limit, req.Offset)
	if err := v.Err(); err != nil {
		return nil, s.toStatus(err)
	}
	result, err := s.search.SearchByRadius(ctx, domain.GeoPoint{Lat: req.Lat, Lng: req.Lng}, req.RadiusKM, categories, page)
	return s.respond(result, page, err)
}

func (s *Server) SearchBox(ctx context.Context, req *BoxRequest) (*SearchResponse, error) {
	box := domain.BoundingBox{North: req.North, South: req.South, East: req.East, West: req.West}
	v := validate.New()
	v.Check("north", validate.Latitude(req.North))
	v.Check("south", validate.Latitude(req.South))
	v.Check("east", validate.Longitude(req.East))
	v.Check("west", validate.Longitude(req.West))
	v.Check("north", validate.Box(box))
	categories := v.Categories("categories", req.Categories)
	page := pageOf(v, req.Limit, req.Offset)
	if err := v.Err(); err != nil {
		return nil, s.toStatus(err)
	}
	result, err := s.search.SearchByBoundingBox(ctx, box, categories, page)
	return s.respond(result, page, err)
}

func (s *Server) SearchName(ctx context.Context, req *NameRequest) (*SearchResponse, error) {
	v := validate.New()
	query := v.Required("query", req.Query)
	categories := v.Categories("categories", req.Categories)
	page := pageOf(v, req.Limit, req.Offset)
	if err := v.Err(); err != nil {
		return nil, s.toStatus(err)
	}
	result, err := s.search.SearchByName(ctx, query, categories, page)
	return s.respond(result, page, err)
}

func (s *Server) GetPOI(ctx context.Context, req *GetRequest) (*domain.POI, error) {
	if strings.TrimSpace(req.ID) == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	poi, err := s.search.GetPOI(ctx, req.ID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &poi, nil
}

// pageOf treats a zero limit as unset.
func pageOf(v *validate.Validator, limit, offset int) domain.Page {
	if limit == 0 {
		limit = validate.DefaultLimit
	}
	v.Check("limit", validate.Limit(limit))
	v.Check("offset", validate.Offset(offset))
	return domain.Page{Limit: limit, Offset: offset}
}

func (s *Server) respond(result domain.Result, page domain.Page, err error) (*SearchResponse, error) {
	if err != nil {
		return nil, s.toStatus(err)
	}
	items := result.Items
	if items == nil {
		items = []domain.POI{}
	}
	return &SearchResponse{Items: items, TotalCount: result.TotalCount, Limit: page.Limit, Offset: page.Offset}, nil
}

func (s *Server) toStatus(err error) error {
	switch {
	case errors.Is(err, validate.ErrInvalid):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error("grpc call failed", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}

// UnaryLogger logs every unary call with its code and latency.
func UnaryLogger(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		logger.Info("grpc call",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}
