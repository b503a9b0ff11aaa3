package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/favorite/domain"
)

const favoriteColumns = `id, user_id, poi_id, created_at`

type favoriteRow struct {
	ID        uuid.UUID `db:"id"`
	UserID    string    `db:"user_id"`
	POIID     string    `db:"poi_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (r favoriteRow) toDomain() domain.Favorite {
	return domain.Favorite{ID: r.ID, UserID: r.UserID, POIID: r.POIID, CreatedAt: r.CreatedAt.UTC()}
}

// PostgresRepository stores favorites in the favorites table.
type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Add relies on the (user_id, poi_id) unique constraint. The no-op update
// makes RETURNING yield the stored row on conflict.
func (r *PostgresRepository) Add(ctx context.Context, f domain.Favorite) (domain.Favorite, error) {
	var row favoriteRow
	err := r.db.GetContext(ctx, &row, `INSERT INTO favorites (`+favoriteColumns+`) VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, poi_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING `+favoriteColumns,
		f.ID, f.UserID, f.POIID, f.CreatedAt)
	if err != nil {
		return domain.Favorite{}, fmt.Errorf("insert favorite: %w", err)
	}
	return row.toDomain(), nil
}

func (r *PostgresRepository) Remove(ctx context.Context, userID, poiID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = $1 AND poi_id = $2`, userID, poiID)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string, limit, offset int) ([]domain.Favorite, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT count(*) FROM favorites WHERE user_id = $1`, userID); err != nil {
		return nil, 0, fmt.Errorf("count favorites: %w", err)
	}
	var rows []favoriteRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+favoriteColumns+` FROM favorites WHERE user_id = $1 ORDER BY created_at DESC, poi_id LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list favorites: %w", err)
	}
	out := make([]domain.Favorite, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, total, nil
}
