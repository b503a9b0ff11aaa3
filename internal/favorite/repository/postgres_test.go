package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/favorite/domain"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/favorite/repository"
	poidomain "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
	poirepo "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/repository"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/storage/storagetest"
)

func TestPostgresRepositoryFavorites(t *testing.T) {
	db := storagetest.Postgres(t)
	ctx := context.Background()
	pois := poirepo.NewPostgresRepository(db)
	for _, id := range []string{"a", "b"} {
		_, err := pois.UpsertPOI(ctx, poidomain.POI{ID: id, Name: id, Category: poidomain.CategoryCafe, Rank: 1, Position: poidomain.GeoPoint{Lat: 1, Lng: 1}})
		require.NoError(t, err)
	}
	repo := repository.NewPostgresRepository(db)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	first, err := repo.Add(ctx, domain.Favorite{ID: uuid.New(), UserID: "u1", POIID: "a", CreatedAt: base})
	require.NoError(t, err)
	again, err := repo.Add(ctx, domain.Favorite{ID: uuid.New(), UserID: "u1", POIID: "a", CreatedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)

	_, err = repo.Add(ctx, domain.Favorite{ID: uuid.New(), UserID: "u1", POIID: "b", CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)

	items, total, err := repo.List(ctx, "u1", 10, 0)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, "b", items[0].POIID)

	require.NoError(t, repo.Remove(ctx, "u1", "b"))
	require.ErrorIs(t, repo.Remove(ctx, "u1", "b"), domain.ErrNotFound)
}
