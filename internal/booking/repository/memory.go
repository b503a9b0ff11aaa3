package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/domain"
)

// MemoryRepository keeps bookings in insertion order, which is the order
// FindBookingsForPOI reports them in.
type MemoryRepository struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]domain.Booking
	order    []uuid.UUID
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{bookings: make(map[uuid.UUID]domain.Booking)}
}

func (m *MemoryRepository) FindBookingsForPOI(_ context.Context, poiID string, excludeID uuid.UUID) ([]domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Booking
	for _, id := range m.order {
		b := m.bookings[id]
		if b.POIID != poiID || b.ID == excludeID {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// InsertBooking stores b unless it overlaps a live booking of the same POI.
// The overlap test runs under the write lock, so it holds even for callers
// that skip the service-level lock.
func (m *MemoryRepository) InsertBooking(_ context.Context, b domain.Booking) (domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		existing := m.bookings[id]
		if existing.POIID == b.POIID && existing.Interval.Overlaps(b.Interval) {
			return domain.Booking{}, domain.NewConflictError(existing)
		}
	}
	m.bookings[b.ID] = b
	m.order = append(m.order, b.ID)
	return b, nil
}

func (m *MemoryRepository) GetBooking(_ context.Context, id uuid.UUID) (domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

// DeleteBooking removes the booking and returns what was deleted.
func (m *MemoryRepository) DeleteBooking(_ context.Context, id uuid.UUID) (domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	delete(m.bookings, id)
	for i, candidate := range m.order {
		if candidate == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return b, nil
}

// ListUserBookings returns one page of userID's bookings ordered by start
// date, then id.
func (m *MemoryRepository) ListUserBookings(_ context.Context, userID string, limit, offset int) ([]domain.Booking, int, error) {
	m.mu.RLock()
	var mine []domain.Booking
	for _, id := range m.order {
		if b := m.bookings[id]; b.UserID == userID {
			mine = append(mine, b)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(mine, func(i, j int) bool {
		if !mine[i].Interval.Start.Equal(mine[j].Interval.Start) {
			return mine[i].Interval.Start.Before(mine[j].Interval.Start)
		}
		return mine[i].ID.String() < mine[j].ID.String()
	})
	total := len(mine)
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return append([]domain.Booking{}, mine[offset:end]...), total, nil
}
