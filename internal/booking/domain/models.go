package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	poidomain "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
)

var (
	// ErrNotFound covers missing bookings and bookings owned by someone else.
	ErrNotFound         = errors.New("booking not found")
	ErrInvalidDateRange = errors.New("end date must be after start date")
	ErrStartInPast      = errors.New("start date must not be in the past")
	ErrBookingConflict  = errors.New("booking conflict")
	ErrIdempotencyReuse = errors.New("idempotency key was used for a different request")
)

// Interval is a closed range of calendar days.
type Interval struct {
	Start Date `json:"start_date"`
	End   Date `json:"end_date"`
}

// Valid reports whether End is strictly after Start.
func (i Interval) Valid() bool {
	return !i.Start.IsZero() && !i.End.IsZero() && i.End.After(i.Start)
}

// Overlaps applies the closed-interval rule: a stay ending on day N
// conflicts with one starting on day N.
func (i Interval) Overlaps(other Interval) bool {
	return !i.Start.After(other.End) && !i.End.Before(other.Start)
}

func (i Interval) String() string {
	return i.Start.String() + " to " + i.End.String()
}

type Booking struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	POIID     string    `json:"poi_id"`
	Interval  Interval  `json:"interval"`
	CreatedAt time.Time `json:"created_at"`
}

// BookingWithPOI is a booking joined with the POI it reserves.
type BookingWithPOI struct {
	Booking
	POI poidomain.POI `json:"poi"`
}

// Conflict identifies the existing booking that blocks a candidate range.
type Conflict struct {
	ID        uuid.UUID `json:"id"`
	StartDate Date      `json:"startDate"`
	EndDate   Date      `json:"endDate"`
}

type Availability struct {
	Available bool      `json:"available"`
	Conflict  *Conflict `json:"conflict,omitempty"`
}

// ConflictError is returned when a booking would overlap an existing one.
type ConflictError struct {
	Conflict Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("POI is already booked from %s to %s", e.Conflict.StartDate, e.Conflict.EndDate)
}

func (e *ConflictError) Is(target error) bool { return target == ErrBookingConflict }

// NewConflictError builds the error for the booking that blocks a request.
func NewConflictError(b Booking) *ConflictError {
	return &ConflictError{Conflict: Conflict{ID: b.ID, StartDate: b.Interval.Start, EndDate: b.Interval.End}}
}

// FirstConflict returns the first booking in bookings overlapping candidate.
func FirstConflict(bookings []Booking, candidate Interval) (Booking, bool) {
	for _, b := range bookings {
		if b.Interval.Overlaps(candidate) {
			return b, true
		}
	}
	return Booking{}, false
}

type EventType string

const (
	EventBookingCreated   EventType = "booking.created"
	EventBookingCancelled EventType = "booking.cancelled"
)

type Event struct {
	Type      EventType      `json:"type"`
	BookingID uuid.UUID      `json:"booking_id"`
	POIID     string         `json:"poi_id"`
	UserID    string         `json:"user_id"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewEvent describes a state change of b.
func NewEvent(typ EventType, b Booking, at time.Time) Event {
	return Event{
		Type:      typ,
		BookingID: b.ID,
		POIID:     b.POIID,
		UserID:    b.UserID,
		Payload: map[string]any{
			"start_date": b.Interval.Start.String(),
			"end_date":   b.Interval.End.String(),
		},
		CreatedAt: at,
	}
}

// Repository is the storage collaborator of the booking engine.
type Repository interface {
	// FindBookingsForPOI returns live bookings of poiID, skipping excludeID
	// when it is not uuid.Nil.
	FindBookingsForPOI(ctx context.Context, poiID string, excludeID uuid.UUID) ([]Booking, error)
	// InsertBooking persists b. Implementations re-check overlap and return a
	// *ConflictError when another booking already holds the range.
	InsertBooking(ctx context.Context, b Booking) (Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (Booking, error)
	DeleteBooking(ctx context.Context, id uuid.UUID) (Booking, error)
	ListUserBookings(ctx context.Context, userID string, limit, offset int) ([]Booking, int, error)
}

// POILookup resolves the POI a booking refers to.
type POILookup interface {
	GetPOI(ctx context.Context, id string) (poidomain.POI, error)
}

// Locker serializes work per key. The returned release func must be called
// exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

type IdempotencyRepository interface {
	GetResponse(ctx context.Context, key string) ([]byte, bool, error)
	PutResponse(ctx context.Context, key string, payload []byte) error
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
