package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	poidomain "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
)

// ErrNotFound is returned when a user has not favorited a POI.
var ErrNotFound = errors.New("favorite not found")

type Favorite struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	POIID     string    `json:"poi_id"`
	CreatedAt time.Time `json:"created_at"`
}

type FavoriteWithPOI struct {
	Favorite
	POI poidomain.POI `json:"poi"`
}

// Repository persists favorites. Add keeps the existing row when the pair is
// already stored and returns it.
type Repository interface {
	Add(ctx context.Context, f Favorite) (Favorite, error)
	Remove(ctx context.Context, userID, poiID string) error
	// List returns userID's favorites newest first together with the total.
	List(ctx context.Context, userID string, limit, offset int) ([]Favorite, int, error)
}
