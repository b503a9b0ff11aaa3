package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/domain"
	poidomain "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
)

// Service guards the no-overlap invariant per POI and exposes the booking
// operations used by the transports.
type Service struct {
	repo       domain.Repository
	pois       domain.POILookup
	locker     domain.Locker
	events     domain.EventPublisher
	clock      domain.Clock
	idempotent domain.IdempotencyRepository
	logger     *zap.Logger
	tracer     trace.Tracer
}

// New constructs a Service with the required collaborators. events and idem
// may be nil.
func New(repo domain.Repository, pois domain.POILookup, locker domain.Locker, events domain.EventPublisher, clock domain.Clock, idem domain.IdempotencyRepository, logger *zap.Logger) *Service {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		pois:       pois,
		locker:     locker,
		events:     events,
		clock:      clock,
		idempotent: idem,
		logger:     logger,
		tracer:     otel.Tracer("booking.service"),
	}
}

// CreateBookingRequest carries a reservation attempt.
type CreateBookingRequest struct {
	UserID   string
	POIID    string
	Interval domain.Interval
}

// CheckAvailability reports whether interval is free for poiID, ignoring
// excludeID when it is not uuid.Nil. It never writes.
func (s *Service) CheckAvailability(ctx context.Context, poiID string, interval domain.Interval, excludeID uuid.UUID) (domain.Availability, error) {
	ctx, span := s.tracer.Start(ctx, "booking.check_availability", trace.WithAttributes(
		attribute.String("poi_id", poiID),
		attribute.String("interval", interval.String()),
	))
	defer span.End()

	if !interval.Valid() {
		return domain.Availability{}, domain.ErrInvalidDateRange
	}
	if _, err := s.pois.GetPOI(ctx, poiID); err != nil {
		return domain.Availability{}, fmt.Errorf("lookup poi: %w", err)
	}
	avail, _, err := s.availability(ctx, poiID, interval, excludeID)
	if err != nil {
		recordSpanError(span, err)
		return domain.Availability{}, err
	}
	span.SetAttributes(attribute.Bool("available", avail.Available))
	return avail, nil
}

func (s *Service) availability(ctx context.Context, poiID string, interval domain.Interval, excludeID uuid.UUID) (domain.Availability, domain.Booking, error) {
	existing, err := s.repo.FindBookingsForPOI(ctx, poiID, excludeID)
	if err != nil {
		return domain.Availability{}, domain.Booking{}, fmt.Errorf("find bookings: %w", err)
	}
	clash, found := domain.FirstConflict(existing, interval)
	if !found {
		return domain.Availability{Available: true}, domain.Booking{}, nil
	}
	conflict := domain.NewConflictError(clash).Conflict
	return domain.Availability{Available: false, Conflict: &conflict}, clash, nil
}

// cachedResponse is what an idempotency key stores: the first response and
// a fingerprint of the request that produced it.
type cachedResponse struct {
	Fingerprint string                `json:"fingerprint"`
	Booking     domain.BookingWithPOI `json:"booking"`
}

func fingerprint(req CreateBookingRequest) string {
	sum := sha256.Sum256([]byte(req.POIID + "\x00" + req.Interval.String()))
	return hex.EncodeToString(sum[:])
}

// CreateBooking reserves a POI for the requested days. The availability check
// and the insert run under the POI's lock; a non-empty idempotency key
// replays the first successful response for the same user and request, and
// fails with domain.ErrIdempotencyReuse when the request differs.
func (s *Service) CreateBooking(ctx context.Context, key string, req CreateBookingRequest) (domain.BookingWithPOI, error) {
	ctx, span := s.tracer.Start(ctx, "booking.create", trace.WithAttributes(
		attribute.String("poi_id", req.POIID),
		attribute.String("interval", req.Interval.String()),
	))
	defer span.End()

	scopedKey, reqPrint := "", fingerprint(req)
	if key != "" && s.idempotent != nil {
		scopedKey = req.UserID + ":" + key
		if cached, ok, err := s.idempotent.GetResponse(ctx, scopedKey); err == nil && ok {
			var stored cachedResponse
			if err := json.Unmarshal(cached, &stored); err == nil {
				if stored.Fingerprint != reqPrint {
					bookingAttempts.WithLabelValues("key_reused").Inc()
					return domain.BookingWithPOI{}, domain.ErrIdempotencyReuse
				}
				bookingAttempts.WithLabelValues("replayed").Inc()
				return stored.Booking, nil
			}
		}
	}

	if !req.Interval.Valid() {
		bookingAttempts.WithLabelValues("invalid").Inc()
		return domain.BookingWithPOI{}, domain.ErrInvalidDateRange
	}
	now := s.clock.Now().UTC()
	if req.Interval.Start.Before(domain.DateOf(now)) {
		bookingAttempts.WithLabelValues("invalid").Inc()
		return domain.BookingWithPOI{}, domain.ErrStartInPast
	}

	poi, err := s.pois.GetPOI(ctx, req.POIID)
	if err != nil {
		return domain.BookingWithPOI{}, fmt.Errorf("lookup poi: %w", err)
	}

	created, err := s.insertExclusive(ctx, req, now)
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			bookingAttempts.WithLabelValues("conflict").Inc()
			s.logger.Info("booking conflict",
				zap.String("poi_id", req.POIID),
				zap.String("requested", req.Interval.String()),
				zap.String("conflicting_booking", conflict.Conflict.ID.String()),
			)
		} else {
			bookingAttempts.WithLabelValues("error").Inc()
			recordSpanError(span, err)
		}
		return domain.BookingWithPOI{}, err
	}
	bookingAttempts.WithLabelValues("created").Inc()
	span.SetAttributes(attribute.String("booking_id", created.ID.String()))

	s.publish(ctx, domain.NewEvent(domain.EventBookingCreated, created, now))

	resp := domain.BookingWithPOI{Booking: created, POI: poi}
	if scopedKey != "" {
		if payload, err := json.Marshal(cachedResponse{Fingerprint: reqPrint, Booking: resp}); err == nil {
			_ = s.idempotent.PutResponse(ctx, scopedKey, payload)
		}
	}
	return resp, nil
}

func (s *Service) insertExclusive(ctx context.Context, req CreateBookingRequest, now time.Time) (domain.Booking, error) {
	release, err := s.locker.Lock(ctx, req.POIID)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("acquire poi lock: %w", err)
	}
	defer release()

	avail, clash, err := s.availability(ctx, req.POIID, req.Interval, uuid.Nil)
	if err != nil {
		return domain.Booking{}, err
	}
	if !avail.Available {
		return domain.Booking{}, domain.NewConflictError(clash)
	}

	created, err := s.repo.InsertBooking(ctx, domain.Booking{
		ID:        uuid.New(),
		UserID:    req.UserID,
		POIID:     req.POIID,
		Interval:  req.Interval,
		CreatedAt: now,
	})
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			return domain.Booking{}, conflict
		}
		return domain.Booking{}, fmt.Errorf("insert booking: %w", err)
	}
	return created, nil
}

// GetBooking returns a booking owned by userID joined with its POI. Bookings
// of other users are reported as domain.ErrNotFound.
func (s *Service) GetBooking(ctx context.Context, id uuid.UUID, userID string) (domain.BookingWithPOI, error) {
	b, err := s.owned(ctx, id, userID)
	if err != nil {
		return domain.BookingWithPOI{}, err
	}
	return s.join(ctx, b)
}

// ListUserBookings returns one page of userID's bookings and the total count.
func (s *Service) ListUserBookings(ctx context.Context, userID string, page poidomain.Page) ([]domain.BookingWithPOI, int, error) {
	bookings, total, err := s.repo.ListUserBookings(ctx, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	out := make([]domain.BookingWithPOI, 0, len(bookings))
	for _, b := range bookings {
		joined, err := s.join(ctx, b)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, joined)
	}
	return out, total, nil
}

// CancelBooking deletes a booking owned by userID. Deletion is final.
func (s *Service) CancelBooking(ctx context.Context, id uuid.UUID, userID string) error {
	ctx, span := s.tracer.Start(ctx, "booking.cancel", trace.WithAttributes(attribute.String("booking_id", id.String())))
	defer span.End()

	if _, err := s.owned(ctx, id, userID); err != nil {
		return err
	}
	deleted, err := s.repo.DeleteBooking(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		recordSpanError(span, err)
		return fmt.Errorf("delete booking: %w", err)
	}
	s.publish(ctx, domain.NewEvent(domain.EventBookingCancelled, deleted, s.clock.Now().UTC()))
	return nil
}

func (s *Service) owned(ctx context.Context, id uuid.UUID, userID string) (domain.Booking, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Booking{}, err
		}
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	if b.UserID != userID {
		s.logger.Debug("booking requested by non-owner", zap.String("booking_id", id.String()))
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (s *Service) join(ctx context.Context, b domain.Booking) (domain.BookingWithPOI, error) {
	poi, err := s.pois.GetPOI(ctx, b.POIID)
	if err != nil {
		return domain.BookingWithPOI{}, fmt.Errorf("lookup poi %s: %w", b.POIID, err)
	}
	return domain.BookingWithPOI{Booking: b, POI: poi}, nil
}

func (s *Service) publish(ctx context.Context, event domain.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish booking event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
