package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/domain"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/lock"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/repository"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/service"
	poidomain "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
	poirepo "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/repository"
)

type stubPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *stubPublisher) Publish(_ context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *stubPublisher) types() []domain.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EventType, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

type stubClock struct{ t time.Time }

func (s stubClock) Now() time.Time { return s.t }

// noLock lets every caller through so storage-level conflict detection is exercised.
type noLock struct{}

func (noLock) Lock(context.Context, string) (func(), error) { return func() {}, nil }

type fixture struct {
	svc       *service.Service
	repo      *repository.MemoryRepository
	publisher *stubPublisher
}

func newFixture(t *testing.T, locker domain.Locker) fixture {
	t.Helper()
	pois := poirepo.NewMemoryRepository()
	_, err := pois.UpsertPOI(context.Background(), poidomain.POI{
		ID: "X", Name: "Hotel Arts", Category: poidomain.CategoryHotel, Rank: 1,
		Position: poidomain.GeoPoint{Lat: 41.3866, Lng: 2.1963},
	})
	require.NoError(t, err)

	repo := repository.NewMemoryRepository()
	publisher := &stubPublisher{}
	clock := stubClock{t: time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)}
	svc := service.New(repo, pois, locker, publisher, clock, repository.NewMemoryIdempotencyRepo(), nil)
	return fixture{svc: svc, repo: repo, publisher: publisher}
}

func stay(start, end string) domain.Interval {
	return domain.Interval{Start: domain.MustParseDate(start), End: domain.MustParseDate(end)}
}

func TestCheckAvailabilityScenarios(t *testing.T) {
	f := newFixture(t, lock.NewMemoryLocker())
	ctx := context.Background()
	existing, err := f.svc.CreateBooking(ctx, "", service.CreateBookingRequest{UserID: "u1", POIID: "X", Interval: stay("2025-03-01", "2025-03-05")})
	require.NoError(t, err)

	avail, err := f.svc.CheckAvailability(ctx, "X", stay("2025-03-05", "2025-03-10"), uuid.Nil)
	require.NoError(t, err)
	require.False(t, avail.Available)
	require.NotNil(t, avail.Conflict)
	require.Equal(t, existing.ID, avail.Conflict.ID)
	require.Equal(t, "2025-03-01", avail.Conflict.StartDate.String())
	require.Equal(t, "2025-03-05", avail.Conflict.EndDate.String())

	avail, err = f.svc.CheckAvailability(ctx, "X", stay("2025-03-06", "2025-03-10"), uuid.Nil)
	require.NoError(t, err)
	require.True(t, avail.Available)
	require.Nil(t, avail.Conflict)
}

func TestCheckAvailabilityExcludesBooking(t *testing.T) {
	f := newFixture(t, lock.NewMemoryLocker())
	ctx := context.Background()
	existing, err := f.svc.CreateBooking(ctx, "", service.CreateBookingRequest{UserID: "u1", POIID: "X", Interval: stay("2025-03-01", "2025-03-05")})
	require.NoError(t, err)

	avail, err := f.svc.CheckAvailability(ctx, "X", stay("2025-03-02", "2025-03-04"), existing.ID)
	require.NoError(t, err)
	require.True(t, avail.Available)
}

func TestCheckAvailabilityValidation(t *testing.T) {
	f := newFixture(t, lock.NewMemoryLocker())
	ctx := context.Background()

	_, err := f.svc.CheckAvailability(ctx, "missing", stay("2025-03-01", "2025-03-02"), uuid.Nil)
	require.ErrorIs(t, err, poidomain.ErrNotFound)

	_, err = f.svc.CheckAvailability(ctx, "X", stay("2025-03-02", "2025-03-02"), uuid.Nil)
	require.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestCreateBookingRejectsInvalidRequests(t *testing.T) {
	f := newFixture(t, lock.NewMemoryLocker())
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, "", service.CreateBookingRequest{UserID: "u1", POIID: "X", Interval: stay("2024-12-31", "2025-01-03")})
	require.ErrorIs(t, err, domain.ErrStartInPast)

	_, err = f.svc.CreateBooking(ctx, "", service.CreateBookingRequest{UserID: "u1", POIID: "X", Interval: stay("2025-01-05", "2025-01-05")})
	require.ErrorIs(t, err, domain.ErrInvalidDateRange)

	_, err = f.svc.CreateBooking(ctx, "", service.CreateBookingRequest{UserID: "u1", POIID: "nope", Interval: stay("2025-01-05", "2025-01-06")})
	require.ErrorIs(t, err, poidomain.ErrNotFound)

	today, err := f.svc.CreateBooking(ctx, "", service.CreateBookingRequest{UserID: "u1", POIID: "X", Interval: stay("2025-01-01", "2025-01-02")})
	require.NoError(t, err)
	require.Equal(t, "Hotel Arts", today.POI.Name)
}

func TestCreateBookingConflictCarriesRange(t *testing.T) {
	f := newFixture(t, lock.NewMemoryLocker())
	ctx := context.Background()
	_, err := f.svc.CreateBooking(ctx, "", service.CreateBookingRequest{UserID: "u1", POIID: "X", Interval: stay("2025-01-10", "2025-01-15")})
	require.NoError(t, err)

	_, err = f.svc.CreateBooking(ctx, "", service.CreateBookingRequest{UserID: "u2", POIID: "X", Interval: stay("2025-01-15", "2025-01-20")})
	require.ErrorIs(t, err, domain.ErrBookingConflict)
	require.EqualError(t, err, "POI is already booked from 2025-01-10 to 2025-01-15")

	_, err = f.svc.CreateBooking(ctx, "", service.CreateBookingRequest{UserID: "u2", POIID: "X", Interval: stay("2025-01-16", "2025-01-20")})
	require.NoError(t, err)
	require.Equal(t, []domain.EventType{domain.EventBookingCreated, domain.EventBookingCreated}, f.publisher.types())
}

func TestCreateBookingConcurrentOverlapsExactlyOneWins(t *testing.T) {
	for name, locker := range map[string]domain.Locker{
		"service lock": lock.NewMemoryLocker(),
		"storage only": noLock{},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, locker)
			const attempts = 16
			var wg sync.WaitGroup
			errs := make(chan error, attempts)
			start := make(chan struct{})
			for i := 0; i < attempts; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-start
					_, err := f.svc.CreateBooking(context.Background(), "", service.CreateBookingRequest{
						UserID:   uuid.NewString(),
						POIID:    "X",
						Interval: stay("2025-02-01", "2025-02-0"+string(rune('3'+i%5))),
					})
					errs <- err
				}(i)
			}
			close(start)
			wg.Wait()
			close(errs)

			var ok, conflicts int
			for err := range errs {
				switch {
				case err == nil:
					ok++
				case errors.Is(err, domain.ErrBookingConflict):
					conflicts++
				default:
					t.Fatalf("unexpected error: %v", err)
				}
			}
			require.Equal(t, 1, ok)
			require.Equal(t, attempts-1, conflicts)

			live, err := f.repo.FindBookingsForPOI(context.Background(), "X", uuid.Nil)
			require.NoError(t, err)
			require.Len(t, live, 1)
		})
	}
}

func TestCreateBookingIdempotencyReplaysResponse(t *testing.T) {
	f := newFixture(t, lock.NewMemoryLocker())
	ctx := context.Background()
	req := service.CreateBookingRequest{UserID: "u1", POIID: "X", Interval: stay("2025-04-01", "2025-04-03")}

	first, err := f.svc.CreateBooking(ctx, "key-1", req)
	require.NoError(t, err)
	second, err := f.svc.CreateBooking(ctx, "key-1", req)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	// The same key from another user is a separate request.
	_, err = f.svc.CreateBooking(ctx, "key-1", service.CreateBookingRequest{UserID: "u2", POIID: "X", Interval: stay("2025-04-02", "2025-04-04")})
	require.ErrorIs(t, err, domain.ErrBookingConflict)
	require.Len(t, f.publisher.types(), 1)
}

func TestCreateBookingIdempotencyRejectsChangedRequest(t *testing.T) {
	f := newFixture(t, lock.NewMemoryLocker())
	ctx := context.Background()
	_, err := f.svc.CreateBooking(ctx, "key-1", service.CreateBookingRequest{UserID: "u1", POIID: "X", Interval: stay("2025-04-01", "2025-04-03")})
	require.NoError(t, err)

	_, err = f.svc.CreateBooking(ctx, "key-1", service.CreateBookingRequest{UserID: "u1", POIID: "X", Interval: stay("2025-06-01", "2025-06-03")})
	require.ErrorIs(t, err, domain.ErrIdempotencyReuse)

	avail, err := f.svc.CheckAvailability(ctx, "X", stay("2025-06-01", "2025-06-03"), uuid.Nil)
	require.NoError(t, err)
	require.True(t, avail.Available)
	require.Len(t, f.publisher.types(), 1)
}

func TestCancelBookingOwnerOnly(t *testing.T) {
	f := newFixture(t, lock.NewMemoryLocker())
	ctx := context.Background()
	created, err := f.svc.CreateBooking(ctx, "", service.CreateBookingRequest{UserID: "owner", POIID: "X", Interval: stay("2025-05-01", "2025-05-03")})
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.CancelBooking(ctx, created.ID, "intruder"), domain.ErrNotFound)
	_, err = f.svc.GetBooking(ctx, created.ID, "intruder")
	require.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.svc.GetBooking(ctx, created.ID, "owner")
	require.NoError(t, err)
	require.Equal(t, "X", got.POI.ID)

	require.NoError(t, f.svc.CancelBooking(ctx, created.ID, "owner"))
	require.ErrorIs(t, f.svc.CancelBooking(ctx, created.ID, "owner"), domain.ErrNotFound)
	require.ErrorIs(t, f.svc.CancelBooking(ctx, uuid.New(), "owner"), domain.ErrNotFound)
	require.Equal(t, []domain.EventType{domain.EventBookingCreated, domain.EventBookingCancelled}, f.publisher.types())

	avail, err := f.svc.CheckAvailability(ctx, "X", stay("2025-05-01", "2025-05-03"), uuid.Nil)
	require.NoError(t, err)
	require.True(t, avail.Available)
}

func TestListUserBookings(t *testing.T) {
	f := newFixture(t, lock.NewMemoryLocker())
	ctx := context.Background()
	for _, s := range []domain.Interval{stay("2025-06-10", "2025-06-12"), stay("2025-06-01", "2025-06-03"), stay("2025-06-20", "2025-06-21")} {
		_, err := f.svc.CreateBooking(ctx, "", service.CreateBookingRequest{UserID: "u1", POIID: "X", Interval: s})
		require.NoError(t, err)
	}
	_, err := f.svc.CreateBooking(ctx, "", service.CreateBookingRequest{UserID: "u2", POIID: "X", Interval: stay("2025-07-01", "2025-07-02")})
	require.NoError(t, err)

	items, total, err := f.svc.ListUserBookings(ctx, "u1", poidomain.Page{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, items, 2)
	require.Equal(t, "2025-06-01", items[0].Interval.Start.String())
	require.Equal(t, "2025-06-10", items[1].Interval.Start.String())

	items, _, err = f.svc.ListUserBookings(ctx, "u1", poidomain.Page{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "2025-06-20", items[0].Interval.Start.String())
}
