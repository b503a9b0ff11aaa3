package grpcapi

import (
	"context"

	"google.golang.org/grpc"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
)

// Client calls POIService over an existing connection.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) SearchRadius(ctx context.Context, req *RadiusRequest) (*SearchResponse, error) {
	out := new(SearchResponse)
	if err := c.invoke(ctx, "SearchRadius", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SearchBox(ctx context.Context, req *BoxRequest) (*SearchResponse, error) {
	out := new(SearchResponse)
	if err := c.invoke(ctx, "SearchBox", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SearchName(ctx context.Context, req *NameRequest) (*SearchResponse, error) {
	out := new(SearchResponse)
	if err := c.invoke(ctx, "SearchName", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPOI(ctx context.Context, req *GetRequest) (*domain.POI, error) {
	out := new(domain.POI)
	if err := c.invoke(ctx, "GetPOI", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	return c.conn.Invoke(ctx, "/"+serviceName+"/"+method, req, resp, grpc.CallContentSubtype(CodecName))
}
