package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/geo"
)

// Engine answers radius, rectangle and name searches over a Store snapshot.
// It holds no state of its own and is safe for concurrent use.
type Engine struct {
	store  domain.Store
	logger *zap.Logger
	tracer trace.Tracer
}

// New constructs an Engine reading from store.
func New(store domain.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, logger: logger, tracer: otel.Tracer("poi.search")}
}

// SearchByRadius returns POIs within radiusKM of center. A bounding box
// pre-filters storage and the haversine distance decides membership; the
// distance never affects ordering.
func (e *Engine) SearchByRadius(ctx context.Context, center domain.GeoPoint, radiusKM float64, categories []domain.Category, page domain.Page) (domain.Result, error) {
	ctx, span := e.tracer.Start(ctx, "poi.search.radius", trace.WithAttributes(
		attribute.Float64("center.lat", center.Lat),
		attribute.Float64("center.lng", center.Lng),
		attribute.Float64("radius_km", radiusKM),
	))
	defer span.End()
	start := time.Now()

	box := geo.BoundingBoxAround(center, radiusKM)
	candidates, err := e.store.FindInBoundingBox(ctx, box, domain.Filter{Categories: categories})
	if err != nil {
		return e.fail(span, "radius", start, fmt.Errorf("find in bounding box: %w", err))
	}

	matched := make([]domain.POI, 0, len(candidates))
	for _, poi := range candidates {
		if geo.Within(center, poi.Position, radiusKM) {
			matched = append(matched, poi)
		}
	}
	span.SetAttributes(attribute.Int("candidates", len(candidates)), attribute.Int("matched", len(matched)))
	e.logger.Debug("radius search",
		zap.Float64("radius_km", radiusKM),
		zap.Int("candidates", len(candidates)),
		zap.Int("matched", len(matched)),
	)
	return e.finish(span, "radius", start, matched, page), nil
}

// SearchByBoundingBox returns POIs inside box. The rectangle is exact, so no
// distance refinement is applied.
func (e *Engine) SearchByBoundingBox(ctx context.Context, box domain.BoundingBox, categories []domain.Category, page domain.Page) (domain.Result, error) {
	ctx, span := e.tracer.Start(ctx, "poi.search.box", trace.WithAttributes(
		attribute.Float64("north", box.North),
		attribute.Float64("south", box.South),
		attribute.Float64("east", box.East),
		attribute.Float64("west", box.West),
	))
	defer span.End()
	start := time.Now()

	found, err := e.store.FindInBoundingBox(ctx, box, domain.Filter{Categories: categories})
	if err != nil {
		return e.fail(span, "box", start, fmt.Errorf("find in bounding box: %w", err))
	}
	return e.finish(span, "box", start, found, page), nil
}

// SearchByName returns POIs whose name contains substring, ignoring case.
func (e *Engine) SearchByName(ctx context.Context, substring string, categories []domain.Category, page domain.Page) (domain.Result, error) {
	ctx, span := e.tracer.Start(ctx, "poi.search.name", trace.WithAttributes(attribute.String("q", substring)))
	defer span.End()
	start := time.Now()

	found, err := e.store.FindByName(ctx, strings.TrimSpace(substring), domain.Filter{Categories: categories})
	if err != nil {
		return e.fail(span, "name", start, fmt.Errorf("find by name: %w", err))
	}
	return e.finish(span, "name", start, found, page), nil
}

// GetPOI returns a single POI or domain.ErrNotFound.
func (e *Engine) GetPOI(ctx context.Context, id string) (domain.POI, error) {
	return e.store.GetPOI(ctx, id)
}

func (e *Engine) finish(span trace.Span, kind string, start time.Time, pois []domain.POI, page domain.Page) domain.Result {
	Sort(pois)
	result := Paginate(pois, page)
	searchDuration.WithLabelValues(kind, "ok").Observe(time.Since(start).Seconds())
	searchResults.WithLabelValues(kind).Observe(float64(result.TotalCount))
	span.SetAttributes(attribute.Int("total_count", result.TotalCount))
	return result
}

func (e *Engine) fail(span trace.Span, kind string, start time.Time, err error) (domain.Result, error) {
	searchDuration.WithLabelValues(kind, "error").Observe(time.Since(start).Seconds())
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.logger.Error("search failed", zap.String("kind", kind), zap.Error(err))
	return domain.Result{}, err
}

// Sort orders pois by rank ascending, then name, then id.
func Sort(pois []domain.POI) {
	sort.SliceStable(pois, func(i, j int) bool {
		a, b := pois[i], pois[j]
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

// Paginate slices an already sorted set. TotalCount is the full set size; an
// offset past the end yields an empty, non-nil Items slice.
func Paginate(pois []domain.POI, page domain.Page) domain.Result {
	total := len(pois)
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if page.Limit > 0 && offset+page.Limit < total {
		end = offset + page.Limit
	}
	items := make([]domain.POI, end-offset)
	copy(items, pois[offset:end])
	return domain.Result{Items: items, TotalCount: total}
}
