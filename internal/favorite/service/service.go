package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/favorite/domain"
	poidomain "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
)

// POILookup resolves favorited POIs.
type POILookup interface {
	GetPOI(ctx context.Context, id string) (poidomain.POI, error)
}

// Service manages a user's saved POIs.
type Service struct {
	repo   domain.Repository
	pois   POILookup
	now    func() time.Time
	logger *zap.Logger
}

func New(repo domain.Repository, pois POILookup, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, pois: pois, now: func() time.Time { return time.Now().UTC() }, logger: logger}
}

// WithClock replaces the time source used for CreatedAt.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Add saves poiID for userID. Saving the same POI twice returns the first
// favorite.
func (s *Service) Add(ctx context.Context, userID, poiID string) (domain.FavoriteWithPOI, error) {
	poi, err := s.pois.GetPOI(ctx, poiID)
	if err != nil {
		return domain.FavoriteWithPOI{}, fmt.Errorf("lookup poi: %w", err)
	}
	fav, err := s.repo.Add(ctx, domain.Favorite{
		ID:        uuid.New(),
		UserID:    userID,
		POIID:     poiID,
		CreatedAt: s.now(),
	})
	if err != nil {
		return domain.FavoriteWithPOI{}, fmt.Errorf("add favorite: %w", err)
	}
	return domain.FavoriteWithPOI{Favorite: fav, POI: poi}, nil
}

func (s *Service) Remove(ctx context.Context, userID, poiID string) error {
	if err := s.repo.Remove(ctx, userID, poiID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// List returns one page of favorites, newest first. Favorites whose POI has
// since been removed from the catalogue are skipped.
func (s *Service) List(ctx context.Context, userID string, page poidomain.Page) ([]domain.FavoriteWithPOI, int, error) {
	favs, total, err := s.repo.List(ctx, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list favorites: %w", err)
	}
	out := make([]domain.FavoriteWithPOI, 0, len(favs))
	for _, f := range favs {
		poi, err := s.pois.GetPOI(ctx, f.POIID)
		if errors.Is(err, poidomain.ErrNotFound) {
			s.logger.Warn("favorite references missing poi", zap.String("poi_id", f.POIID))
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("lookup poi %s: %w", f.POIID, err)
		}
		out = append(out, domain.FavoriteWithPOI{Favorite: f, POI: poi})
	}
	return out, total, nil
}
