package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a POI does not exist.
var ErrNotFound = errors.New("poi not found")

// ErrUnknownCategory is returned by ParseCategory for values outside the enum.
var ErrUnknownCategory = errors.New("unknown category")

type Category string

const (
	CategoryAttraction Category = "attraction"
	CategoryMuseum     Category = "museum"
	CategoryPark       Category = "park"
	CategoryRestaurant Category = "restaurant"
	CategoryCafe       Category = "cafe"
	CategoryBar        Category = "bar"
	CategoryHotel      Category = "hotel"
	CategoryHostel     Category = "hostel"
	CategoryShopping   Category = "shopping"
	CategoryBeach      Category = "beach"
	CategoryViewpoint  Category = "viewpoint"
	CategoryNightlife  Category = "nightlife"
	CategoryTransport  Category = "transport"
)

var allCategories = []Category{
	CategoryAttraction,
	CategoryMuseum,
	CategoryPark,
	CategoryRestaurant,
	CategoryCafe,
	CategoryBar,
	CategoryHotel,
	CategoryHostel,
	CategoryShopping,
	CategoryBeach,
	CategoryViewpoint,
	CategoryNightlife,
	CategoryTransport,
}

// Categories returns every known category in declaration order.
func Categories() []Category {
	return append([]Category(nil), allCategories...)
}

// ParseCategory maps a raw value onto the closed category set. Matching is
// case-insensitive and ignores surrounding whitespace.
func ParseCategory(raw string) (Category, error) {
	candidate := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, c := range allCategories {
		if c == candidate {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, raw)
}

func (c Category) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// POI is the read model of a point of interest.
type POI struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Position    GeoPoint `json:"position"`
	Rank        int      `json:"rank"`
	Description string   `json:"description,omitempty"`
	Address     string   `json:"address,omitempty"`
	Rating      float64  `json:"rating"`
	PriceLevel  int      `json:"price_level"`
}

// Validate checks the invariants a catalogue entry must hold before it is stored.
func (p POI) Validate() error {
	var errs []error
	if strings.TrimSpace(p.ID) == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if !p.Category.Valid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownCategory, p.Category))
	}
	if p.Position.Lat < -90 || p.Position.Lat > 90 {
		errs = append(errs, fmt.Errorf("latitude %v out of range", p.Position.Lat))
	}
	if p.Position.Lng < -180 || p.Position.Lng > 180 {
		errs = append(errs, fmt.Errorf("longitude %v out of range", p.Position.Lng))
	}
	if p.Rank < 1 {
		errs = append(errs, fmt.Errorf("rank %d must be at least 1", p.Rank))
	}
	if p.Rating < 0 || p.Rating > 5 {
		errs = append(errs, fmt.Errorf("rating %v out of range", p.Rating))
	}
	if p.PriceLevel < 0 || p.PriceLevel > 4 {
		errs = append(errs, fmt.Errorf("price level %d out of range", p.PriceLevel))
	}
	return errors.Join(errs...)
}

// BoundingBox is a latitude/longitude rectangle. West greater than East
// describes a box crossing the antimeridian; West equal to East covers every
// longitude.
type BoundingBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// CrossesAntimeridian reports whether the longitude range wraps through ±180.
func (b BoundingBox) CrossesAntimeridian() bool {
	return b.West > b.East
}

// FullLongitude reports whether every longitude is inside the box.
func (b BoundingBox) FullLongitude() bool {
	return b.West == b.East || (b.West <= -180 && b.East >= 180)
}

// ContainsLongitude applies the storage longitude condition.
func (b BoundingBox) ContainsLongitude(lng float64) bool {
	switch {
	case b.FullLongitude():
		return true
	case b.CrossesAntimeridian():
		return lng >= b.West || lng <= b.East
	default:
		return lng >= b.West && lng <= b.East
	}
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p GeoPoint) bool {
	return p.Lat >= b.South && p.Lat <= b.North && b.ContainsLongitude(p.Lng)
}

type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type Result struct {
	Items      []POI `json:"items"`
	TotalCount int   `json:"total_count"`
}

// Filter narrows storage queries. A nil or empty Categories means any.
type Filter struct {
	Categories []Category
}

// Matches reports whether the category filter admits c.
func (f Filter) Matches(c Category) bool {
	if len(f.Categories) == 0 {
		return true
	}
	for _, candidate := range f.Categories {
		if candidate == c {
			return true
		}
	}
	return false
}

// Store is the storage collaborator of the search engine. Results are
// unordered and unpaginated.
type Store interface {
	FindInBoundingBox(ctx context.Context, box BoundingBox, filter Filter) ([]POI, error)
	FindByName(ctx context.Context, substring string, filter Filter) ([]POI, error)
	GetPOI(ctx context.Context, id string) (POI, error)
}

// Writer persists catalogue entries.
type Writer interface {
	UpsertPOI(ctx context.Context, poi POI) (POI, error)
}

// Repository is implemented by the concrete storage backends.
type Repository interface {
	Store
	Writer
}
