package grpcapi_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/grpcapi"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/repository"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/search"
)

func newClient(t *testing.T) *grpcapi.Client {
	t.Helper()
	repo := repository.NewMemoryRepository()
	for _, p := range []domain.POI{
		{ID: "fiji", Name: "Fiji Reef", Category: domain.CategoryBeach, Rank: 1, Position: domain.GeoPoint{Lat: -17.7, Lng: 178.1}},
		{ID: "samoa", Name: "Samoa Market", Category: domain.CategoryShopping, Rank: 2, Position: domain.GeoPoint{Lat: -13.8, Lng: -171.8}},
	} {
		_, err := repo.UpsertPOI(context.Background(), p)
		require.NoError(t, err)
	}

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(grpcapi.UnaryLogger(zap.NewNop())))
	grpcapi.RegisterPOIServer(srv, grpcapi.NewServer(search.New(repo, nil), nil))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return grpcapi.NewClient(conn)
}

func TestSearchBoxAcrossAntimeridian(t *testing.T) {
	client := newClient(t)
	resp, err := client.SearchBox(context.Background(), &grpcapi.BoxRequest{North: 0, South: -30, East: -170, West: 170})
	require.NoError(t, err)
	require.Equal(t, 2, resp.TotalCount)
	require.Equal(t, 20, resp.Limit)
	require.Equal(t, "fiji", resp.Items[0].ID)
}

func TestSearchRadiusAndName(t *testing.T) {
	client := newClient(t)
	resp, err := client.SearchRadius(context.Background(), &grpcapi.RadiusRequest{Lat: -17.7, Lng: 178.1, RadiusKM: 5})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)

	resp, err = client.SearchName(context.Background(), &grpcapi.NameRequest{Query: "market", Categories: []string{"shopping"}})
	require.NoError(t, err)
	require.Equal(t, "samoa", resp.Items[0].ID)
}

func TestStatusCodes(t *testing.T) {
	client := newClient(t)
	_, err := client.SearchRadius(context.Background(), &grpcapi.RadiusRequest{Lat: 91, Lng: 0, RadiusKM: 1})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.SearchBox(context.Background(), &grpcapi.BoxRequest{North: -5, South: 5})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.GetPOI(context.Background(), &grpcapi.GetRequest{ID: "atlantis"})
	require.Equal(t, codes.NotFound, status.Code(err))

	poi, err := client.GetPOI(context.Background(), &grpcapi.GetRequest{ID: "fiji"})
	require.NoError(t, err)
	require.Equal(t, domain.CategoryBeach, poi.Category)
}
