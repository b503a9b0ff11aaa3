package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/http/respond"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/geo"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/validate"
)

// Searcher is the read side of the POI catalogue.
type Searcher interface {
	SearchByRadius(ctx context.Context, center domain.GeoPoint, radiusKM float64, categories []domain.Category, page domain.Page) (domain.Result, error)
	SearchByBoundingBox(ctx context.Context, box domain.BoundingBox, categories []domain.Category, page domain.Page) (domain.Result, error)
	SearchByName(ctx context.Context, substring string, categories []domain.Category, page domain.Page) (domain.Result, error)
	GetPOI(ctx context.Context, id string) (domain.POI, error)
}

// HTTP exposes the catalogue endpoints.
type HTTP struct {
	search Searcher
	logger *zap.Logger
}

func NewHTTP(search Searcher, logger *zap.Logger) *HTTP {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTP{search: search, logger: logger}
}

// Routes registers the catalogue endpoints on r.
func (h *HTTP) Routes(r chi.Router) {
	r.Get("/v1/categories", h.categories)
	r.Get("/v1/pois/search/radius", h.searchRadius)
	r.Get("/v1/pois/search/box", h.searchBox)
	r.Get("/v1/pois/search/name", h.searchName)
	r.Get("/v1/pois/{id}", h.getPOI)
}

// POIResponse is the wire shape of a POI.
type POIResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Rank        int      `json:"rank"`
	Description string   `json:"description,omitempty"`
	Address     string   `json:"address,omitempty"`
	Rating      float64  `json:"rating"`
	PriceLevel  int      `json:"price_level"`
	DistanceKM  *float64 `json:"distance_km,omitempty"`
}

// NewPOIResponse builds the wire shape of p.
func NewPOIResponse(p domain.POI) POIResponse {
	return POIResponse{
		ID:          p.ID,
		Name:        p.Name,
		Category:    string(p.Category),
		Latitude:    p.Position.Lat,
		Longitude:   p.Position.Lng,
		Rank:        p.Rank,
		Description: p.Description,
		Address:     p.Address,
		Rating:      p.Rating,
		PriceLevel:  p.PriceLevel,
	}
}

func (h *HTTP) categories(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]any{"items": domain.Categories()})
}

func (h *HTTP) searchRadius(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := validate.New()
	center := v.Coordinate("lat", "lng", q.Get("lat"), q.Get("lng"))
	radius := v.RadiusKM("radius_km", q.Get("radius_km"))
	categories := v.Categories("category", q["category"])
	page := v.Pagination(q.Get("limit"), q.Get("offset"))
	if err := v.Err(); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	result, err := h.search.SearchByRadius(r.Context(), center, radius, categories, page)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	h.writeResult(w, result, page, func(p domain.POI) POIResponse {
		resp := NewPOIResponse(p)
		d := geo.DistanceKM(center, p.Position)
		resp.DistanceKM = &d
		return resp
	})
}

func (h *HTTP) searchBox(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := validate.New()
	box := v.BoundingBox(q.Get("north"), q.Get("south"), q.Get("east"), q.Get("west"))
	categories := v.Categories("category", q["category"])
	page := v.Pagination(q.Get("limit"), q.Get("offset"))
	if err := v.Err(); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	result, err := h.search.SearchByBoundingBox(r.Context(), box, categories, page)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	h.writeResult(w, result, page, NewPOIResponse)
}

func (h *HTTP) searchName(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := validate.New()
	term := v.Required("q", q.Get("q"))
	categories := v.Categories("category", q["category"])
	page := v.Pagination(q.Get("limit"), q.Get("offset"))
	if err := v.Err(); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	result, err := h.search.SearchByName(r.Context(), term, categories, page)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	h.writeResult(w, result, page, NewPOIResponse)
}

func (h *HTTP) getPOI(w http.ResponseWriter, r *http.Request) {
	poi, err := h.search.GetPOI(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, NewPOIResponse(poi))
}

func (h *HTTP) writeResult(w http.ResponseWriter, result domain.Result, page domain.Page, view func(domain.POI) POIResponse) {
	items := make([]POIResponse, len(result.Items))
	for i, p := range result.Items {
		items[i] = view(p)
	}
	respond.JSON(w, http.StatusOK, respond.NewPage(items, result.TotalCount, page))
}
