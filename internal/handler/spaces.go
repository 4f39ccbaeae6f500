package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/reservespace/backend/internal/domain"
	"github.com/reservespace/backend/internal/security"
	"github.com/reservespace/backend/internal/security/middleware"
	"github.com/reservespace/backend/internal/service"
)

// SpaceRequest is the create/update payload for a space.
type SpaceRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Type         string   `json:"type"`
	Capacity     int      `json:"capacity"`
	PricePerHour float64  `json:"pricePerHour"`
	Amenities    []string `json:"amenities,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	Available    *bool    `json:"available,omitempty"`
	Floor        string   `json:"floor,omitempty"`
	Location     string   `json:"location,omitempty"`
}

// SpaceResponse is the wire shape of a space.
type SpaceResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Type         string    `json:"type"`
	Capacity     int       `json:"capacity"`
	PricePerHour float64   `json:"pricePerHour"`
	Amenities    []string  `json:"amenities,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	Available    bool      `json:"available"`
	Floor        string    `json:"floor,omitempty"`
	Location     string    `json:"location,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toSpaceResponse(s *domain.Space) SpaceResponse {
	return SpaceResponse{
		ID:           s.ID,
		Name:         s.Name,
		Description:  s.Description,
		Type:         string(s.Type),
		Capacity:     s.Capacity,
		PricePerHour: s.PricePerHour,
		Amenities:    s.Amenities,
		ImageURL:     s.ImageURL,
		Available:    s.Available,
		Floor:        s.Floor,
		Location:     s.Location,
		CreatedAt:    s.CreatedAt,
	}
}

func toSpaceResponses(spaces []*domain.Space) []SpaceResponse {
	out := make([]SpaceResponse, 0, len(spaces))
	for _, s := range spaces {
		out = append(out, toSpaceResponse(s))
	}
	return out
}

// SpaceHandler exposes the space inventory endpoints. Reads are public,
// mutations require the admin role.
type SpaceHandler struct {
	spaceService *service.SpaceService
	authz        *security.AuthorizationService
	logger       *slog.Logger
}

// NewSpaceHandler creates a new space handler
func NewSpaceHandler(spaceService *service.SpaceService, authz *security.AuthorizationService, logger *slog.Logger) *SpaceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpaceHandler{spaceService: spaceService, authz: authz, logger: logger}
}

func (h *SpaceHandler) requirePermission(r *http.Request, perm security.Permission) error {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		return domain.ErrUnauthenticated
	}
	return h.authz.ValidatePermission(claims.Roles, perm)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidInput
	}
	return id, nil
}

// List handles GET /api/spaces
func (h *SpaceHandler) List(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.spaceService.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSpaceResponses(spaces))
}

// Get handles GET /api/spaces/{id}
func (h *SpaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	space, err := h.spaceService.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSpaceResponse(space))
}

// ListAvailable handles GET /api/spaces/available with optional query
// filters: type, minCapacity, maxPrice, startDate, endDate (RFC 3339).
func (h *SpaceHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.SpaceFilter{}

	if raw := q.Get("type"); raw != "" {
		filter.Type = domain.ParseSpaceType(raw)
	}
	if raw := q.Get("minCapacity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, domain.ErrInvalidInput)
			return
		}
		filter.MinCapacity = n
	}
	if raw := q.Get("maxPrice"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil || p < 0 {
			writeError(w, domain.ErrInvalidInput)
			return
		}
		filter.MaxPrice = p
	}
	if raw := q.Get("startDate"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, domain.ErrInvalidInput)
			return
		}
		filter.Start = t
	}
	if raw := q.Get("endDate"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, domain.ErrInvalidInput)
			return
		}
		filter.End = t
	}

	spaces, err := h.spaceService.ListAvailable(filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSpaceResponses(spaces))
}

// Create handles POST /api/spaces (admin)
func (h *SpaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := h.requirePermission(r, security.PermCreateSpace); err != nil {
		writeError(w, err)
		return
	}

	var req SpaceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	space, err := h.spaceService.Create(service.SpaceInput(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSpaceResponse(space))
}

// Update handles PUT /api/spaces/{id} (admin)
func (h *SpaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	if err := h.requirePermission(r, security.PermUpdateSpace); err != nil {
		writeError(w, err)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req SpaceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	space, err := h.spaceService.Update(id, service.SpaceInput(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSpaceResponse(space))
}

// Delete handles DELETE /api/spaces/{id} (admin)
func (h *SpaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.requirePermission(r, security.PermDeleteSpace); err != nil {
		writeError(w, err)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.spaceService.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
