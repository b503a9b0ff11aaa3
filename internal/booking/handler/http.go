package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/auth"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/domain"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/service"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/http/respond"
	poidomain "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
	poihandler "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/handler"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/validate"
)

// Bookings is implemented by service.Service.
type Bookings interface {
	CheckAvailability(ctx context.Context, poiID string, interval domain.Interval, excludeID uuid.UUID) (domain.Availability, error)
	CreateBooking(ctx context.Context, key string, req service.CreateBookingRequest) (domain.BookingWithPOI, error)
	GetBooking(ctx context.Context, id uuid.UUID, userID string) (domain.BookingWithPOI, error)
	ListUserBookings(ctx context.Context, userID string, page poidomain.Page) ([]domain.BookingWithPOI, int, error)
	CancelBooking(ctx context.Context, id uuid.UUID, userID string) error
}

// HTTP exposes availability and the authenticated booking endpoints.
type HTTP struct {
	svc    Bookings
	authn  func(http.Handler) http.Handler
	logger *zap.Logger
}

// NewHTTP constructs a handler. authn guards the /v1/bookings routes and
// must put claims into the request context.
func NewHTTP(svc Bookings, authn func(http.Handler) http.Handler, logger *zap.Logger) *HTTP {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTP{svc: svc, authn: authn, logger: logger}
}

func (h *HTTP) Routes(r chi.Router) {
	r.Get("/v1/pois/{id}/availability", h.availability)
	r.Group(func(r chi.Router) {
		r.Use(h.authn)
		r.Post("/v1/bookings", h.createBooking)
		r.Get("/v1/bookings", h.listBookings)
		r.Get("/v1/bookings/{id}", h.getBooking)
		r.Delete("/v1/bookings/{id}", h.cancelBooking)
	})
}

type bookingResponse struct {
	ID        uuid.UUID              `json:"id"`
	UserID    string                 `json:"user_id"`
	POIID     string                 `json:"poi_id"`
	StartDate string                 `json:"start_date"`
	EndDate   string                 `json:"end_date"`
	CreatedAt time.Time              `json:"created_at"`
	POI       poihandler.POIResponse `json:"poi"`
}

func newBookingResponse(b domain.BookingWithPOI) bookingResponse {
	return bookingResponse{
		ID:        b.ID,
		UserID:    b.UserID,
		POIID:     b.POIID,
		StartDate: b.Interval.Start.String(),
		EndDate:   b.Interval.End.String(),
		CreatedAt: b.CreatedAt,
		POI:       poihandler.NewPOIResponse(b.POI),
	}
}

func (h *HTTP) availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := validate.New()
	start, end := v.DateRange("start_date", "end_date", q.Get("start_date"), q.Get("end_date"))
	exclude := uuid.Nil
	if raw := strings.TrimSpace(q.Get("exclude_booking_id")); raw != "" {
		parsed, err := uuid.Parse(raw)
		v.Check("exclude_booking_id", err)
		exclude = parsed
	}
	if err := v.Err(); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	avail, err := h.svc.CheckAvailability(r.Context(), chi.URLParam(r, "id"), domain.Interval{Start: start, End: end}, exclude)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, avail)
}

type createBookingRequest struct {
	POIID     string `json:"poi_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (h *HTTP) createBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respond.Message(w, http.StatusUnauthorized, "missing user")
		return
	}
	var payload createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respond.Message(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	v := validate.New()
	poiID := v.Required("poi_id", payload.POIID)
	start, end := v.DateRange("start_date", "end_date", payload.StartDate, payload.EndDate)
	if err := v.Err(); err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	created, err := h.svc.CreateBooking(r.Context(), r.Header.Get("Idempotency-Key"), service.CreateBookingRequest{
		UserID:   userID,
		POIID:    poiID,
		Interval: domain.Interval{Start: start, End: end},
	})
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, newBookingResponse(created))
}

func (h *HTTP) listBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respond.Message(w, http.StatusUnauthorized, "missing user")
		return
	}
	v := validate.New()
	page := v.Pagination(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err := v.Err(); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	bookings, total, err := h.svc.ListUserBookings(r.Context(), userID, page)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	items := make([]bookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = newBookingResponse(b)
	}
	respond.JSON(w, http.StatusOK, respond.NewPage(items, total, page))
}

func (h *HTTP) getBooking(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.bookingRef(w, r)
	if !ok {
		return
	}
	b, err := h.svc.GetBooking(r.Context(), id, userID)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, newBookingResponse(b))
}

func (h *HTTP) cancelBooking(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.bookingRef(w, r)
	if !ok {
		return
	}
	if err := h.svc.CancelBooking(r.Context(), id, userID); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// bookingRef extracts the caller and the booking id. A malformed id is
// reported as not found, like any other booking the caller cannot see.
func (h *HTTP) bookingRef(w http.ResponseWriter, r *http.Request) (string, uuid.UUID, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respond.Message(w, http.StatusUnauthorized, "missing user")
		return "", uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.logger, domain.ErrNotFound)
		return "", uuid.Nil, false
	}
	return userID, id, true
}
