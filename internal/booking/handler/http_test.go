package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/auth"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/handler"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/lock"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/repository"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/service"
	poidomain "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
	poirepo "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/repository"
)

const secret = "handler-secret"

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC) }

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	pois := poirepo.NewMemoryRepository()
	_, err := pois.UpsertPOI(context.Background(), poidomain.POI{
		ID: "X", Name: "Casa Mila", Category: poidomain.CategoryAttraction, Rank: 1,
		Position: poidomain.GeoPoint{Lat: 41.3954, Lng: 2.1620},
	})
	require.NoError(t, err)
	svc := service.New(repository.NewMemoryRepository(), pois, lock.NewMemoryLocker(), nil, fixedClock{}, repository.NewMemoryIdempotencyRepo(), nil)
	r := chi.NewRouter()
	handler.NewHTTP(svc, auth.Middleware(secret), nil).Routes(r)
	return r
}

func token(t *testing.T, user string) string {
	t.Helper()
	tok, err := auth.IssueToken(secret, user, auth.RoleTraveler, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func do(t *testing.T, h http.Handler, method, target, authz, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type bookingBody struct {
	ID        string `json:"id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	POI       struct {
		Name string `json:"name"`
	} `json:"poi"`
}

func TestCreateBookingAndConflict(t *testing.T) {
	h := newRouter(t)
	alice := token(t, "alice")

	rec := do(t, h, http.MethodPost, "/v1/bookings", alice, `{"poi_id":"X","start_date":"2025-03-01","end_date":"2025-03-05"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created bookingBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "Casa Mila", created.POI.Name)
	require.Equal(t, "2025-03-05", created.EndDate)

	rec = do(t, h, http.MethodPost, "/v1/bookings", token(t, "bob"), `{"poi_id":"X","start_date":"2025-03-05","end_date":"2025-03-10"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	var conflict struct {
		Error    string `json:"error"`
		Conflict struct {
			ID        string `json:"id"`
			StartDate string `json:"startDate"`
			EndDate   string `json:"endDate"`
		} `json:"conflict"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conflict))
	require.Equal(t, "POI is already booked from 2025-03-01 to 2025-03-05", conflict.Error)
	require.Equal(t, created.ID, conflict.Conflict.ID)
	require.Equal(t, "2025-03-01", conflict.Conflict.StartDate)
}

func TestCreateBookingErrors(t *testing.T) {
	h := newRouter(t)
	alice := token(t, "alice")

	require.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/v1/bookings", "", `{}`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/v1/bookings", alice, `{`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/v1/bookings", alice, `{"poi_id":"X","start_date":"2025-03-05","end_date":"2025-03-01"}`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/v1/bookings", alice, `{"poi_id":"X","start_date":"2024-12-01","end_date":"2024-12-05"}`).Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/v1/bookings", alice, `{"poi_id":"nope","start_date":"2025-03-01","end_date":"2025-03-05"}`).Code)
}

func TestIdempotencyKeyReplays(t *testing.T) {
	h := newRouter(t)
	alice := token(t, "alice")
	body := `{"poi_id":"X","start_date":"2025-04-01","end_date":"2025-04-02"}`

	first := do(t, h, http.MethodPost, "/v1/bookings", alice, body, "Idempotency-Key", "abc")
	second := do(t, h, http.MethodPost, "/v1/bookings", alice, body, "Idempotency-Key", "abc")
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	require.JSONEq(t, first.Body.String(), second.Body.String())

	changed := do(t, h, http.MethodPost, "/v1/bookings", alice, `{"poi_id":"X","start_date":"2025-05-01","end_date":"2025-05-02"}`, "Idempotency-Key", "abc")
	require.Equal(t, http.StatusUnprocessableEntity, changed.Code)
}

func TestAvailabilityEndpoint(t *testing.T) {
	h := newRouter(t)
	rec := do(t, h, http.MethodPost, "/v1/bookings", token(t, "alice"), `{"poi_id":"X","start_date":"2025-03-01","end_date":"2025-03-05"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/pois/X/availability?start_date=2025-03-05&end_date=2025-03-10", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"available":false`)

	rec = do(t, h, http.MethodGet, "/v1/pois/X/availability?start_date=2025-03-06&end_date=2025-03-10", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"available":true}`, rec.Body.String())

	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/pois/missing/availability?start_date=2025-03-06&end_date=2025-03-10", "", "").Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/pois/X/availability?start_date=2025-03-06", "", "").Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/pois/X/availability?start_date=2025-03-06&end_date=2025-03-10&exclude_booking_id=zz", "", "").Code)
}

func TestOwnerScopedReadsAndCancel(t *testing.T) {
	h := newRouter(t)
	alice, bob := token(t, "alice"), token(t, "bob")
	rec := do(t, h, http.MethodPost, "/v1/bookings", alice, `{"poi_id":"X","start_date":"2025-05-01","end_date":"2025-05-02"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created bookingBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/v1/bookings/"+created.ID, alice, "").Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/bookings/"+created.ID, bob, "").Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/bookings/not-a-uuid", alice, "").Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/v1/bookings/"+created.ID, bob, "").Code)

	rec = do(t, h, http.MethodGet, "/v1/bookings?limit=5", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"total_count":1`)
	rec = do(t, h, http.MethodGet, "/v1/bookings", bob, "")
	require.JSONEq(t, `{"items":[],"total_count":0,"limit":20,"offset":0}`, rec.Body.String())

	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/v1/bookings/"+created.ID, alice, "").Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/v1/bookings/"+created.ID, alice, "").Code)
}
