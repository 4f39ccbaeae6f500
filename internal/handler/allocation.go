package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/reservespace/backend/internal/domain"
	"github.com/reservespace/backend/internal/service"
)

// OptimalAllocationRequest asks for the cheapest conflict-free space.
type OptimalAllocationRequest struct {
	MinCapacity int       `json:"minCapacity"`
	MaxPrice    float64   `json:"maxPrice,omitempty"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

// AllocationHandler exposes the space allocation helpers.
type AllocationHandler struct {
	allocationService *service.AllocationService
	logger            *slog.Logger
}

// NewAllocationHandler creates a new allocation handler
func NewAllocationHandler(allocationService *service.AllocationService, logger *slog.Logger) *AllocationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AllocationHandler{allocationService: allocationService, logger: logger}
}

// Slots handles GET /api/spaces/{id}/slots?date=2026-09-14. Without a date it
// answers for today.
func (h *AllocationHandler) Slots(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		day, err = time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, domain.ErrInvalidInput)
			return
		}
	}

	slots, err := h.allocationService.AvailableSlots(id, day)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

// Optimal handles POST /api/allocation/optimal
func (h *AllocationHandler) Optimal(w http.ResponseWriter, r *http.Request) {
	var req OptimalAllocationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	space, err := h.allocationService.AllocateOptimal(req.MinCapacity, req.MaxPrice, req.StartTime, req.EndTime)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSpaceResponse(space))
}
