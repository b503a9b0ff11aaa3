package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
)

const poiColumns = `id, name, category, latitude, longitude, rank, description, address, rating, price_level`

type poiRow struct {
	ID          string  `db:"id"`
	Name        string  `db:"name"`
	Category    string  `db:"category"`
	Latitude    float64 `db:"latitude"`
	Longitude   float64 `db:"longitude"`
	Rank        int     `db:"rank"`
	Description string  `db:"description"`
	Address     string  `db:"address"`
	Rating      float64 `db:"rating"`
	PriceLevel  int     `db:"price_level"`
}

func (r poiRow) toDomain() domain.POI {
	return domain.POI{
		ID:          r.ID,
		Name:        r.Name,
		Category:    domain.Category(r.Category),
		Position:    domain.GeoPoint{Lat: r.Latitude, Lng: r.Longitude},
		Rank:        r.Rank,
		Description: r.Description,
		Address:     r.Address,
		Rating:      r.Rating,
		PriceLevel:  r.PriceLevel,
	}
}

// PostgresRepository stores POIs in the pois table.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository wraps an open pool.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindInBoundingBox mirrors the memory repository: an antimeridian box turns
// the longitude test into an OR, and West == East matches every longitude.
func (r *PostgresRepository) FindInBoundingBox(ctx context.Context, box domain.BoundingBox, filter domain.Filter) ([]domain.POI, error) {
	query := `SELECT ` + poiColumns + ` FROM pois WHERE latitude BETWEEN ? AND ?`
	args := []any{box.South, box.North}
	switch {
	case box.FullLongitude():
	case box.CrossesAntimeridian():
		query += ` AND (longitude >= ? OR longitude <= ?)`
		args = append(args, box.West, box.East)
	default:
		query += ` AND longitude BETWEEN ? AND ?`
		args = append(args, box.West, box.East)
	}
	return r.selectPOIs(ctx, query, args, filter)
}

// FindByName performs a case-insensitive substring match on name.
func (r *PostgresRepository) FindByName(ctx context.Context, substring string, filter domain.Filter) ([]domain.POI, error) {
	query := `SELECT ` + poiColumns + ` FROM pois WHERE name ILIKE ?`
	args := []any{"%" + escapeLike(substring) + "%"}
	return r.selectPOIs(ctx, query, args, filter)
}

func (r *PostgresRepository) selectPOIs(ctx context.Context, query string, args []any, filter domain.Filter) ([]domain.POI, error) {
	if len(filter.Categories) > 0 {
		categories := make([]string, len(filter.Categories))
		for i, c := range filter.Categories {
			categories[i] = string(c)
		}
		query += ` AND category IN (?)`
		args = append(args, categories)
		var err error
		query, args, err = sqlx.In(query, args...)
		if err != nil {
			return nil, fmt.Errorf("expand categories: %w", err)
		}
	}

	var rows []poiRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select pois: %w", err)
	}
	out := make([]domain.POI, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// GetPOI returns the POI with id or domain.ErrNotFound.
func (r *PostgresRepository) GetPOI(ctx context.Context, id string) (domain.POI, error) {
	var row poiRow
	err := r.db.GetContext(ctx, &row, `SELECT `+poiColumns+` FROM pois WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.POI{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.POI{}, fmt.Errorf("get poi: %w", err)
	}
	return row.toDomain(), nil
}

// UpsertPOI inserts poi or overwrites the row with the same id.
func (r *PostgresRepository) UpsertPOI(ctx context.Context, poi domain.POI) (domain.POI, error) {
	if err := poi.Validate(); err != nil {
		return domain.POI{}, fmt.Errorf("upsert poi %q: %w", poi.ID, err)
	}
	const q = `INSERT INTO pois (` + poiColumns + `)
VALUES (:id, :name, :category, :latitude, :longitude, :rank, :description, :address, :rating, :price_level)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	category = EXCLUDED.category,
	latitude = EXCLUDED.latitude,
	longitude = EXCLUDED.longitude,
	rank = EXCLUDED.rank,
	description = EXCLUDED.description,
	address = EXCLUDED.address,
	rating = EXCLUDED.rating,
	price_level = EXCLUDED.price_level,
	updated_at = now()`
	row := poiRow{
		ID:          poi.ID,
		Name:        poi.Name,
		Category:    string(poi.Category),
		Latitude:    poi.Position.Lat,
		Longitude:   poi.Position.Lng,
		Rank:        poi.Rank,
		Description: poi.Description,
		Address:     poi.Address,
		Rating:      poi.Rating,
		PriceLevel:  poi.PriceLevel,
	}
	if _, err := r.db.NamedExecContext(ctx, q, row); err != nil {
		return domain.POI{}, fmt.Errorf("upsert poi: %w", err)
	}
	return poi, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
