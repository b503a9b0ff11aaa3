package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/domain"
	poidomain "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
)

const bookingColumns = `id, user_id, poi_id, start_date, end_date, created_at`

type bookingRow struct {
	ID        uuid.UUID `db:"id"`
	UserID    string    `db:"user_id"`
	POIID     string    `db:"poi_id"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
	CreatedAt time.Time `db:"created_at"`
}

func (r bookingRow) toDomain() domain.Booking {
	return domain.Booking{
		ID:        r.ID,
		UserID:    r.UserID,
		POIID:     r.POIID,
		Interval:  domain.Interval{Start: domain.DateOf(r.StartDate), End: domain.DateOf(r.EndDate)},
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func toDomainList(rows []bookingRow) []domain.Booking {
	out := make([]domain.Booking, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out
}

// TopicFunc maps an event type to the outbox topic it is relayed on.
type TopicFunc func(domain.EventType) string

// PostgresRepository stores bookings and writes their events to the outbox
// table in the same transaction.
type PostgresRepository struct {
	db    *sqlx.DB
	topic TopicFunc
}

// NewPostgresRepository wraps an open pool. A nil topic uses the event type
// as the topic.
func NewPostgresRepository(db *sqlx.DB, topic TopicFunc) *PostgresRepository {
	if topic == nil {
		topic = func(t domain.EventType) string { return string(t) }
	}
	return &PostgresRepository{db: db, topic: topic}
}

func (r *PostgresRepository) FindBookingsForPOI(ctx context.Context, poiID string, excludeID uuid.UUID) ([]domain.Booking, error) {
	var rows []bookingRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+bookingColumns+` FROM bookings WHERE poi_id = $1 AND id <> $2 ORDER BY created_at, id`,
		poiID, excludeID)
	if err != nil {
		return nil, fmt.Errorf("select bookings: %w", err)
	}
	return toDomainList(rows), nil
}

// InsertBooking locks the POI row, re-checks overlap and inserts the booking
// together with its outbox record. Concurrent writers for the same POI queue
// on the row lock.
func (r *PostgresRepository) InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return domain.Booking{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var locked string
	err = tx.GetContext(ctx, &locked, `SELECT id FROM pois WHERE id = $1 FOR UPDATE`, b.POIID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, poidomain.ErrNotFound
	}
	if err != nil {
		return domain.Booking{}, fmt.Errorf("lock poi: %w", err)
	}

	var clash bookingRow
	err = tx.GetContext(ctx, &clash,
		`SELECT `+bookingColumns+` FROM bookings
WHERE poi_id = $1 AND start_date <= $3 AND end_date >= $2
ORDER BY created_at, id LIMIT 1`,
		b.POIID, b.Interval.Start.Time(), b.Interval.End.Time())
	switch {
	case err == nil:
		return domain.Booking{}, domain.NewConflictError(clash.toDomain())
	case !errors.Is(err, sql.ErrNoRows):
		return domain.Booking{}, fmt.Errorf("check overlap: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bookings (`+bookingColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.UserID, b.POIID, b.Interval.Start.Time(), b.Interval.End.Time(), b.CreatedAt)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("insert booking: %w", err)
	}
	if err := r.writeOutbox(ctx, tx, domain.NewEvent(domain.EventBookingCreated, b, b.CreatedAt)); err != nil {
		return domain.Booking{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Booking{}, fmt.Errorf("commit booking: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var row bookingRow
	err := r.db.GetContext(ctx, &row, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return row.toDomain(), nil
}

// DeleteBooking removes the row and records a cancellation event.
func (r *PostgresRepository) DeleteBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var row bookingRow
	err = tx.GetContext(ctx, &row, `DELETE FROM bookings WHERE id = $1 RETURNING `+bookingColumns, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Booking{}, fmt.Errorf("delete booking: %w", err)
	}
	deleted := row.toDomain()
	if err := r.writeOutbox(ctx, tx, domain.NewEvent(domain.EventBookingCancelled, deleted, time.Now().UTC())); err != nil {
		return domain.Booking{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Booking{}, fmt.Errorf("commit delete: %w", err)
	}
	return deleted, nil
}

func (r *PostgresRepository) ListUserBookings(ctx context.Context, userID string, limit, offset int) ([]domain.Booking, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT count(*) FROM bookings WHERE user_id = $1`, userID); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}
	var rows []bookingRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY start_date, id LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	return toDomainList(rows), total, nil
}

func (r *PostgresRepository) writeOutbox(ctx context.Context, tx *sqlx.Tx, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO outbox (topic, payload) VALUES ($1, $2)`, r.topic(event.Type), payload); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}
