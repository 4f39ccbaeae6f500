package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/reservespace/backend/internal/domain"
	"github.com/reservespace/backend/internal/security/middleware"
	"github.com/reservespace/backend/internal/service"
)

// ReservationRequest is the booking payload for create and update.
type ReservationRequest struct {
	SpaceID   int64     `json:"spaceId"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Notes     string    `json:"notes,omitempty"`
}

// ReservationResponse is the wire shape of a reservation.
type ReservationResponse struct {
	ID         int64     `json:"id"`
	SpaceID    int64     `json:"spaceId"`
	SpaceName  string    `json:"spaceName"`
	UserID     int64     `json:"userId"`
	UserName   string    `json:"userName"`
	UserEmail  string    `json:"userEmail"`
	UserPhone  string    `json:"userPhone,omitempty"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	Status     string    `json:"status"`
	TotalPrice float64   `json:"totalPrice"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toReservationResponse(r *domain.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:         r.ID,
		SpaceID:    r.SpaceID,
		SpaceName:  r.SpaceName,
		UserID:     r.UserID,
		UserName:   r.UserName,
		UserEmail:  r.UserEmail,
		UserPhone:  r.UserPhone,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Status:     string(r.Status),
		TotalPrice: r.TotalPrice,
		Notes:      r.Notes,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func toReservationResponses(reservations []*domain.Reservation) []ReservationResponse {
	out := make([]ReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, toReservationResponse(r))
	}
	return out
}

// ReservationHandler exposes the booking endpoints.
type ReservationHandler struct {
	reservationService *service.ReservationService
	logger             *slog.Logger
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(reservationService *service.ReservationService, logger *slog.Logger) *ReservationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReservationHandler{reservationService: reservationService, logger: logger}
}

// Create handles POST /api/reservations
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, domain.ErrUnauthenticated)
		return
	}

	var req ReservationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	reservation, err := h.reservationService.Create(r.Context(), claims.UserID, service.BookingInput{
		SpaceID:   req.SpaceID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReservationResponse(reservation))
}

// Update handles PUT /api/reservations/{id}
func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, domain.ErrUnauthenticated)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req ReservationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	reservation, err := h.reservationService.Update(r.Context(), claims.UserID, claims.Roles, id, service.BookingInput{
		SpaceID:   req.SpaceID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(reservation))
}

// Cancel handles POST /api/reservations/{id}/cancel
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, domain.ErrUnauthenticated)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	reservation, err := h.reservationService.Cancel(r.Context(), claims.UserID, claims.Roles, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(reservation))
}

// Get handles GET /api/reservations/{id}
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, domain.ErrUnauthenticated)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	reservation, err := h.reservationService.Get(claims.UserID, claims.Roles, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(reservation))
}

// ListMine handles GET /api/reservations/my
func (h *ReservationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, domain.ErrUnauthenticated)
		return
	}

	reservations, err := h.reservationService.ListByUser(claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponses(reservations))
}

// ListAll handles GET /api/reservations (admin) with optional filters
// spaceId, userId, status, startDate, endDate.
func (h *ReservationHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, domain.ErrUnauthenticated)
		return
	}

	q := r.URL.Query()
	filter := domain.ReservationFilter{}

	if raw := q.Get("spaceId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, domain.ErrInvalidInput)
			return
		}
		filter.SpaceID = id
	}
	if raw := q.Get("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, domain.ErrInvalidInput)
			return
		}
		filter.UserID = id
	}
	if raw := q.Get("status"); raw != "" {
		status := domain.ParseReservationStatus(raw)
		if status == "" {
			writeError(w, domain.ErrInvalidInput)
			return
		}
		filter.Status = status
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

	reservations, err := h.reservationService.ListAll(claims.Roles, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponses(reservations))
}

// Delete handles DELETE /api/reservations/{id} (admin)
func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, domain.ErrUnauthenticated)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.reservationService.Delete(claims.Roles, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
