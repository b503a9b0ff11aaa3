package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
)

const (
	dimensions     = 2
	minChildren    = 25
	maxChildren    = 50
	pointTolerance = 1e-7
	minRectSide    = 1e-9
)

// indexedPOI wraps a POI for R-tree indexing; axis 0 is latitude, axis 1 is longitude.
type indexedPOI struct {
	poi  domain.POI
	rect *rtreego.Rect
}

func (p *indexedPOI) Bounds() *rtreego.Rect {
	return p.rect
}

// MemoryRepository keeps POIs in an R-tree so rectangle queries avoid a full
// scan. It is safe for concurrent use.
type MemoryRepository struct {
	mu    sync.RWMutex
	tree  *rtreego.Rtree
	items map[string]*indexedPOI
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tree:  rtreego.NewTree(dimensions, minChildren, maxChildren),
		items: make(map[string]*indexedPOI),
	}
}

// UpsertPOI inserts or replaces poi.
func (m *MemoryRepository) UpsertPOI(_ context.Context, poi domain.POI) (domain.POI, error) {
	if err := poi.Validate(); err != nil {
		return domain.POI{}, fmt.Errorf("upsert poi %q: %w", poi.ID, err)
	}
	item := &indexedPOI{
		poi:  poi,
		rect: rtreego.Point{poi.Position.Lat, poi.Position.Lng}.ToRect(pointTolerance),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.items[poi.ID]; ok {
		m.tree.Delete(existing)
	}
	m.items[poi.ID] = item
	m.tree.Insert(item)
	return poi, nil
}

// GetPOI returns the POI with id or domain.ErrNotFound.
func (m *MemoryRepository) GetPOI(_ context.Context, id string) (domain.POI, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return domain.POI{}, domain.ErrNotFound
	}
	return item.poi, nil
}

// FindInBoundingBox returns every POI inside box admitted by filter. A box
// crossing the antimeridian is searched as two rectangles.
func (m *MemoryRepository) FindInBoundingBox(_ context.Context, box domain.BoundingBox, filter domain.Filter) ([]domain.POI, error) {
	var spans [][2]float64
	switch {
	case box.FullLongitude():
		spans = [][2]float64{{-180, 180}}
	case box.CrossesAntimeridian():
		spans = [][2]float64{{box.West, 180}, {-180, box.East}}
	default:
		spans = [][2]float64{{box.West, box.East}}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []domain.POI
	for _, span := range spans {
		rect, err := rtreego.NewRect(
			rtreego.Point{box.South - pointTolerance, span[0] - pointTolerance},
			[]float64{side(box.North - box.South), side(span[1] - span[0])},
		)
		if err != nil {
			return nil, fmt.Errorf("query rect: %w", err)
		}
		for _, hit := range m.tree.SearchIntersect(rect) {
			item, ok := hit.(*indexedPOI)
			if !ok {
				continue
			}
			if _, dup := seen[item.poi.ID]; dup {
				continue
			}
			if !box.Contains(item.poi.Position) || !filter.Matches(item.poi.Category) {
				continue
			}
			seen[item.poi.ID] = struct{}{}
			out = append(out, item.poi)
		}
	}
	return out, nil
}

// FindByName returns POIs whose name contains substring, ignoring case.
func (m *MemoryRepository) FindByName(_ context.Context, substring string, filter domain.Filter) ([]domain.POI, error) {
	needle := strings.ToLower(substring)

	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.POI
	for _, item := range m.items {
		if !filter.Matches(item.poi.Category) {
			continue
		}
		if strings.Contains(strings.ToLower(item.poi.Name), needle) {
			out = append(out, item.poi)
		}
	}
	return out, nil
}

// Len returns the number of stored POIs.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func side(length float64) float64 {
	return math.Max(length, 0) + 2*pointTolerance + minRectSide
}

// ReadSeed decodes a JSON array of POIs.
func ReadSeed(r io.Reader) ([]domain.POI, error) {
	var pois []domain.POI
	if err := json.NewDecoder(r).Decode(&pois); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return pois, nil
}
