package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/auth"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/favorite/domain"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/http/respond"
	poidomain "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
	poihandler "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/handler"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/validate"
)

type Favorites interface {
	Add(ctx context.Context, userID, poiID string) (domain.FavoriteWithPOI, error)
	Remove(ctx context.Context, userID, poiID string) error
	List(ctx context.Context, userID string, page poidomain.Page) ([]domain.FavoriteWithPOI, int, error)
}

// HTTP exposes the authenticated favorites endpoints.
type HTTP struct {
	svc    Favorites
	authn  func(http.Handler) http.Handler
	logger *zap.Logger
}

func NewHTTP(svc Favorites, authn func(http.Handler) http.Handler, logger *zap.Logger) *HTTP {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTP{svc: svc, authn: authn, logger: logger}
}

func (h *HTTP) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authn)
		r.Post("/v1/favorites", h.add)
		r.Get("/v1/favorites", h.list)
		r.Delete("/v1/favorites/{poiID}", h.remove)
	})
}

type favoriteResponse struct {
	ID        string                 `json:"id"`
	POIID     string                 `json:"poi_id"`
	CreatedAt time.Time              `json:"created_at"`
	POI       poihandler.POIResponse `json:"poi"`
}

func newFavoriteResponse(f domain.FavoriteWithPOI) favoriteResponse {
	return favoriteResponse{
		ID:        f.ID.String(),
		POIID:     f.POIID,
		CreatedAt: f.CreatedAt,
		POI:       poihandler.NewPOIResponse(f.POI),
	}
}

func (h *HTTP) add(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	var payload struct {
		POIID string `json:"poi_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respond.Message(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	v := validate.New()
	poiID := v.Required("poi_id", payload.POIID)
	if err := v.Err(); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	fav, err := h.svc.Add(r.Context(), userID, poiID)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, newFavoriteResponse(fav))
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	v := validate.New()
	page := v.Pagination(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err := v.Err(); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	favs, total, err := h.svc.List(r.Context(), userID, page)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	items := make([]favoriteResponse, len(favs))
	for i, f := range favs {
		items[i] = newFavoriteResponse(f)
	}
	respond.JSON(w, http.StatusOK, respond.NewPage(items, total, page))
}

func (h *HTTP) remove(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if err := h.svc.Remove(r.Context(), userID, chi.URLParam(r, "poiID")); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
