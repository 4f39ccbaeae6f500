package service

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/reservespace/backend/internal/domain"
	"github.com/reservespace/backend/pkg/cache"
)

const (
	spaceKeyPrefix = "space:"
	spaceListKey   = "spaces:list"
)

// SpaceService manages the bookable space inventory. Reads go through a
// short-TTL in-process cache; every mutation invalidates it.
type SpaceService struct {
	spaceRepo domain.SpaceRepository
	resRepo   domain.ReservationRepository
	cache     *cache.Cache
	cacheTTL  time.Duration
	logger    *slog.Logger
}

// NewSpaceService creates a new space service
func NewSpaceService(
	spaceRepo domain.SpaceRepository,
	resRepo domain.ReservationRepository,
	c *cache.Cache,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *SpaceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpaceService{
		spaceRepo: spaceRepo,
		resRepo:   resRepo,
		cache:     c,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// SpaceInput carries the mutable fields of a space.
type SpaceInput struct {
	Name         string
	Description  string
	Type         string
	Capacity     int
	PricePerHour float64
	Amenities    []string
	ImageURL     string
	Available    *bool
	Floor        string
	Location     string
}

func (s *SpaceService) validate(in SpaceInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("name is required: %w", domain.ErrInvalidInput)
	}
	if in.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1: %w", domain.ErrInvalidInput)
	}
	if in.PricePerHour <= 0 {
		return fmt.Errorf("price per hour must be positive: %w", domain.ErrInvalidInput)
	}
	return nil
}

// Create adds a new space to the inventory.
func (s *SpaceService) Create(in SpaceInput) (*domain.Space, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	available := true
	if in.Available != nil {
		available = *in.Available
	}
	space := &domain.Space{
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		Type:         domain.ParseSpaceType(in.Type),
		Capacity:     in.Capacity,
		PricePerHour: in.PricePerHour,
		Amenities:    in.Amenities,
		ImageURL:     in.ImageURL,
		Available:    available,
		Floor:        in.Floor,
		Location:     in.Location,
	}
	if err := s.spaceRepo.Create(space); err != nil {
		return nil, fmt.Errorf("create space: %w", err)
	}

	s.invalidate(space.ID)
	s.logger.Info("space created",
		slog.Int64("space_id", space.ID),
		slog.String("name", space.Name),
		slog.String("type", string(space.Type)),
	)
	return space, nil
}

// Get returns a single space, served from cache when fresh.
func (s *SpaceService) Get(id int64) (*domain.Space, error) {
	key := fmt.Sprintf("%s%d", spaceKeyPrefix, id)
	if v, ok := s.cache.Get(key); ok {
		if space, ok := v.(*domain.Space); ok {
			return space, nil
		}
	}
	space, err := s.spaceRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, space, s.cacheTTL)
	return space, nil
}

// List returns every space, served from cache when fresh.
func (s *SpaceService) List() ([]*domain.Space, error) {
	if v, ok := s.cache.Get(spaceListKey); ok {
		if spaces, ok := v.([]*domain.Space); ok {
			return spaces, nil
		}
	}
	spaces, err := s.spaceRepo.List()
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	s.cache.Set(spaceListKey, spaces, s.cacheTTL)
	return spaces, nil
}

// ListAvailable returns spaces matching the filter. When the filter carries a
// time window, spaces with a conflicting reservation are excluded. Filtered
// queries bypass the cache.
func (s *SpaceService) ListAvailable(filter domain.SpaceFilter) ([]*domain.Space, error) {
	if !filter.Start.IsZero() || !filter.End.IsZero() {
		if filter.Start.IsZero() || filter.End.IsZero() || !filter.End.After(filter.Start) {
			return nil, fmt.Errorf("start and end must both be set with end after start: %w", domain.ErrInvalidInput)
		}
	}
	spaces, err := s.spaceRepo.ListAvailable(filter)
	if err != nil {
		return nil, fmt.Errorf("list available spaces: %w", err)
	}
	return spaces, nil
}

// Update replaces the mutable fields of a space.
func (s *SpaceService) Update(id int64, in SpaceInput) (*domain.Space, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	space, err := s.spaceRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	space.Name = strings.TrimSpace(in.Name)
	space.Description = in.Description
	space.Type = domain.ParseSpaceType(in.Type)
	space.Capacity = in.Capacity
	space.PricePerHour = in.PricePerHour
	space.Amenities = in.Amenities
	space.ImageURL = in.ImageURL
	space.Floor = in.Floor
	space.Location = in.Location
	if in.Available != nil {
		space.Available = *in.Available
	}

	if err := s.spaceRepo.Update(space); err != nil {
		return nil, fmt.Errorf("update space: %w", err)
	}

	s.invalidate(id)
	s.logger.Info("space updated", slog.Int64("space_id", id))
	return space, nil
}

// Delete removes a space. Spaces with active reservations are protected so
// booking history keeps a valid target.
func (s *SpaceService) Delete(id int64) error {
	if _, err := s.spaceRepo.GetByID(id); err != nil {
		return err
	}

	active, err := s.hasActiveReservations(id)
	if err != nil {
		return err
	}
	if active {
		return fmt.Errorf("space has active reservations: %w", domain.ErrConflict)
	}

	if err := s.spaceRepo.Delete(id); err != nil {
		return fmt.Errorf("delete space: %w", err)
	}

	s.invalidate(id)
	s.logger.Info("space deleted", slog.Int64("space_id", id))
	return nil
}

func (s *SpaceService) hasActiveReservations(spaceID int64) (bool, error) {
	reservations, err := s.resRepo.List(domain.ReservationFilter{SpaceID: spaceID})
	if err != nil {
		return false, fmt.Errorf("list reservations for space: %w", err)
	}
	now := time.Now()
	for _, r := range reservations {
		if r.Status == domain.StatusCancelled || r.Status == domain.StatusCompleted {
			continue
		}
		if r.EndTime.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *SpaceService) invalidate(id int64) {
	s.cache.Delete(fmt.Sprintf("%s%d", spaceKeyPrefix, id))
	s.cache.Invalidate(spaceListKey)
}
