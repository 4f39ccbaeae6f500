package service

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/reservespace/backend/internal/domain"
	"github.com/reservespace/backend/pkg/config"
)

// TimeSlot is a free interval on a space.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// AllocationService answers "which space should I book" questions: ranking
// candidates, finding free slots in a day, and picking the cheapest
// conflict-free space for a window.
type AllocationService struct {
	spaceRepo domain.SpaceRepository
	resRepo   domain.ReservationRepository
	config    *config.Config
	logger    *slog.Logger
}

// NewAllocationService creates a new allocation service
func NewAllocationService(
	spaceRepo domain.SpaceRepository,
	resRepo domain.ReservationRepository,
	cfg *config.Config,
	logger *slog.Logger,
) *AllocationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AllocationService{
		spaceRepo: spaceRepo,
		resRepo:   resRepo,
		config:    cfg,
		logger:    logger,
	}
}

// BestFitDecreasing ranks candidates that satisfy the capacity and price
// bounds by price ascending, then capacity descending, and returns at most
// the top five.
func BestFitDecreasing(candidates []*domain.Space, minCapacity int, maxPrice float64) []*domain.Space {
	fit := make([]*domain.Space, 0, len(candidates))
	for _, sp := range candidates {
		if !sp.Available {
			continue
		}
		if sp.Capacity < minCapacity {
			continue
		}
		if maxPrice > 0 && sp.PricePerHour > maxPrice {
			continue
		}
		fit = append(fit, sp)
	}
	sort.SliceStable(fit, func(i, j int) bool {
		if fit[i].PricePerHour != fit[j].PricePerHour {
			return fit[i].PricePerHour < fit[j].PricePerHour
		}
		return fit[i].Capacity > fit[j].Capacity
	})
	if len(fit) > 5 {
		fit = fit[:5]
	}
	return fit
}

// AvailableSlots returns the free intervals on a space for one business day.
// Bookings are merged (they can touch but not overlap, merging also covers
// legacy data) and the gaps between them within the business-day window are
// the result.
func (s *AllocationService) AvailableSlots(spaceID int64, day time.Time) ([]TimeSlot, error) {
	if _, err := s.spaceRepo.GetByID(spaceID); err != nil {
		return nil, err
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), s.config.BusinessDayStartHour, 0, 0, 0, day.Location())
	dayEnd := time.Date(day.Year(), day.Month(), day.Day(), s.config.BusinessDayEndHour, 0, 0, 0, day.Location())

	reservations, err := s.resRepo.FindConflicting(spaceID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}

	busy := make([]TimeSlot, 0, len(reservations))
	for _, r := range reservations {
		start, end := r.StartTime, r.EndTime
		if start.Before(dayStart) {
			start = dayStart
		}
		if end.After(dayEnd) {
			end = dayEnd
		}
		busy = append(busy, TimeSlot{Start: start, End: end})
	}
	busy = mergeSlots(busy)

	free := make([]TimeSlot, 0, len(busy)+1)
	cursor := dayStart
	for _, b := range busy {
		if b.Start.After(cursor) {
			free = append(free, TimeSlot{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if cursor.Before(dayEnd) {
		free = append(free, TimeSlot{Start: cursor, End: dayEnd})
	}
	return free, nil
}

// mergeSlots sorts intervals by start and coalesces overlapping or touching
// ones.
func mergeSlots(slots []TimeSlot) []TimeSlot {
	if len(slots) <= 1 {
		return slots
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	merged := slots[:1]
	for _, s := range slots[1:] {
		last := &merged[len(merged)-1]
		if !s.Start.After(last.End) {
			if s.End.After(last.End) {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// AllocateOptimal picks the cheapest available space that satisfies the
// capacity bound and has no conflicting reservation in [start, end).
func (s *AllocationService) AllocateOptimal(minCapacity int, maxPrice float64, start, end time.Time) (*domain.Space, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return nil, fmt.Errorf("start and end required with end after start: %w", domain.ErrInvalidInput)
	}

	spaces, err := s.spaceRepo.List()
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	ranked := BestFitDecreasing(spaces, minCapacity, maxPrice)

	for _, sp := range ranked {
		conflicts, err := s.resRepo.FindConflicting(sp.ID, start, end)
		if err != nil {
			return nil, fmt.Errorf("conflict check for space %d: %w", sp.ID, err)
		}
		if len(conflicts) == 0 {
			s.logger.Info("optimal space allocated",
				slog.Int64("space_id", sp.ID),
				slog.Float64("price_per_hour", sp.PricePerHour),
			)
			return sp, nil
		}
	}
	return nil, fmt.Errorf("no space satisfies the request: %w", domain.ErrNotFound)
}

// OccupancyScore measures how busy a space has been over the last 30 days,
// as reserved hours divided by 30 business days of 12 hours, capped at 1.
func (s *AllocationService) OccupancyScore(spaceID int64) (float64, error) {
	if _, err := s.spaceRepo.GetByID(spaceID); err != nil {
		return 0, err
	}

	now := time.Now()
	windowStart := now.AddDate(0, 0, -30)
	reservations, err := s.resRepo.FindConflicting(spaceID, windowStart, now)
	if err != nil {
		return 0, fmt.Errorf("load reservations: %w", err)
	}

	var hours float64
	for _, r := range reservations {
		start, end := r.StartTime, r.EndTime
		if start.Before(windowStart) {
			start = windowStart
		}
		if end.After(now) {
			end = now
		}
		hours += end.Sub(start).Hours()
	}

	score := hours / (30 * 12)
	if score > 1 {
		score = 1
	}
	return score, nil
}
