package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/favorite/domain"
)

// MemoryRepository keeps favorites keyed by user and POI.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]map[string]domain.Favorite
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]map[string]domain.Favorite)}
}

func (m *MemoryRepository) Add(_ context.Context, f domain.Favorite) (domain.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byPOI, ok := m.items[f.UserID]
	if !ok {
		byPOI = make(map[string]domain.Favorite)
		m.items[f.UserID] = byPOI
	}
	if existing, ok := byPOI[f.POIID]; ok {
		return existing, nil
	}
	byPOI[f.POIID] = f
	return f, nil
}

func (m *MemoryRepository) Remove(_ context.Context, userID, poiID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[userID][poiID]; !ok {
		return domain.ErrNotFound
	}
	delete(m.items[userID], poiID)
	return nil
}

func (m *MemoryRepository) List(_ context.Context, userID string, limit, offset int) ([]domain.Favorite, int, error) {
	m.mu.RLock()
	out := make([]domain.Favorite, 0, len(m.items[userID]))
	for _, f := range m.items[userID] {
		out = append(out, f)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].POIID < out[j].POIID
	})
	total := len(out)
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return out[offset:end], total, nil
}
