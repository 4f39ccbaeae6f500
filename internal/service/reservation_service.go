package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reservespace/backend/internal/domain"
	"github.com/reservespace/backend/internal/observability/metrics"
	"github.com/reservespace/backend/internal/reliability/circuitbreaker"
	"github.com/reservespace/backend/internal/security"
	"github.com/reservespace/backend/pkg/config"
)

// Locker is the distributed lock used to serialize bookings per space.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// Notifier emits a per-user notification for a reservation event.
type Notifier interface {
	Notify(userID int64, kind domain.NotificationType, title, message string) error
}

// ReservationService implements the booking lifecycle. Creation and update
// hold a per-space lock around the conflict check and the write, so two
// overlapping requests for the same space serialize and the loser gets a
// conflict instead of a double booking.
type ReservationService struct {
	resRepo   domain.ReservationRepository
	spaceRepo domain.SpaceRepository
	userRepo  domain.UserRepository
	locker    Locker
	breaker   *circuitbreaker.CircuitBreaker
	authz     *security.AuthorizationService
	notifier  Notifier
	config    *config.Config
	logger    *slog.Logger
}

// NewReservationService creates a new reservation service
func NewReservationService(
	resRepo domain.ReservationRepository,
	spaceRepo domain.SpaceRepository,
	userRepo domain.UserRepository,
	locker Locker,
	breaker *circuitbreaker.CircuitBreaker,
	authz *security.AuthorizationService,
	notifier Notifier,
	cfg *config.Config,
	logger *slog.Logger,
) *ReservationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReservationService{
		resRepo:   resRepo,
		spaceRepo: spaceRepo,
		userRepo:  userRepo,
		locker:    locker,
		breaker:   breaker,
		authz:     authz,
		notifier:  notifier,
		config:    cfg,
		logger:    logger,
	}
}

// BookingInput carries a booking request.
type BookingInput struct {
	SpaceID   int64
	StartTime time.Time
	EndTime   time.Time
	Notes     string
}

func (s *ReservationService) validateTimes(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("start and end times are required: %w", domain.ErrInvalidInput)
	}
	if !end.After(start) {
		return fmt.Errorf("end time must be after start time: %w", domain.ErrInvalidInput)
	}
	if start.Before(time.Now()) {
		return fmt.Errorf("cannot book in the past: %w", domain.ErrInvalidInput)
	}
	minutes := int(end.Sub(start).Minutes())
	if minutes < s.config.MinBookingMinutes {
		return fmt.Errorf("booking must be at least %d minutes: %w", s.config.MinBookingMinutes, domain.ErrInvalidInput)
	}
	if minutes > s.config.MaxBookingMinutes {
		return fmt.Errorf("booking must be at most %d minutes: %w", s.config.MaxBookingMinutes, domain.ErrInvalidInput)
	}
	return nil
}

// Create books a space for a user. The whole check-then-insert runs under the
// per-space lock.
func (s *ReservationService) Create(ctx context.Context, userID int64, in BookingInput) (*domain.Reservation, error) {
	started := time.Now()

	if err := s.validateTimes(in.StartTime, in.EndTime); err != nil {
		metrics.ObserveBooking("invalid", time.Since(started))
		return nil, err
	}
	if len(in.Notes) > 500 {
		metrics.ObserveBooking("invalid", time.Since(started))
		return nil, fmt.Errorf("notes must be at most 500 characters: %w", domain.ErrInvalidInput)
	}

	space, err := s.spaceRepo.GetByID(in.SpaceID)
	if err != nil {
		metrics.ObserveBooking("not_found", time.Since(started))
		return nil, fmt.Errorf("space %d: %w", in.SpaceID, err)
	}
	if !space.Available {
		metrics.ObserveBooking("unavailable", time.Since(started))
		return nil, fmt.Errorf("space %q is not open for booking: %w", space.Name, domain.ErrConflict)
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		metrics.ObserveBooking("not_found", time.Since(started))
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}

	release, err := s.lockSpace(ctx, in.SpaceID)
	if err != nil {
		metrics.ObserveBooking("lock_failed", time.Since(started))
		return nil, err
	}
	defer release()

	conflicts, err := s.resRepo.FindConflicting(in.SpaceID, in.StartTime, in.EndTime)
	if err != nil {
		metrics.ObserveBooking("error", time.Since(started))
		return nil, fmt.Errorf("conflict check: %w", err)
	}
	if len(conflicts) > 0 {
		metrics.ObserveConflict()
		metrics.ObserveBooking("conflict", time.Since(started))
		return nil, fmt.Errorf("space already booked from %s to %s: %w",
			conflicts[0].StartTime.Format(time.RFC3339), conflicts[0].EndTime.Format(time.RFC3339), domain.ErrConflict)
	}

	reservation := &domain.Reservation{
		SpaceID:    space.ID,
		SpaceName:  space.Name,
		UserID:     user.ID,
		UserName:   user.Name,
		UserEmail:  user.Email,
		UserPhone:  user.Phone,
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
		Status:     domain.StatusConfirmed,
		TotalPrice: domain.BillableHours(in.StartTime, in.EndTime) * space.PricePerHour,
		Notes:      in.Notes,
	}
	if err := s.resRepo.Create(reservation); err != nil {
		metrics.ObserveBooking("error", time.Since(started))
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	s.logger.Info("reservation created",
		slog.Int64("reservation_id", reservation.ID),
		slog.Int64("space_id", space.ID),
		slog.Int64("user_id", user.ID),
		slog.Time("start", in.StartTime),
		slog.Time("end", in.EndTime),
		slog.Float64("total_price", reservation.TotalPrice),
	)
	metrics.ObserveBooking("success", time.Since(started))

	if err := s.notifier.Notify(user.ID, domain.NotifySuccess,
		"Reservation confirmed",
		fmt.Sprintf("%s is booked from %s to %s.", space.Name,
			in.StartTime.Format("Jan 2 15:04"), in.EndTime.Format("15:04")),
	); err != nil {
		s.logger.Warn("failed to notify booking", slog.String("error", err.Error()))
	}

	return reservation, nil
}

// Update moves or annotates an existing reservation. The conflict check
// excludes the reservation itself, and the price is recomputed from the
// space's current rate.
func (s *ReservationService) Update(ctx context.Context, requesterID int64, roles []string, id int64, in BookingInput) (*domain.Reservation, error) {
	reservation, err := s.resRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.ValidateOwnership(requesterID, reservation.UserID, roles); err != nil {
		return nil, err
	}
	switch reservation.Status {
	case domain.StatusCancelled:
		return nil, fmt.Errorf("cannot modify: %w", domain.ErrAlreadyCancelled)
	case domain.StatusCompleted:
		return nil, fmt.Errorf("completed reservation cannot be modified: %w", domain.ErrInvalidInput)
	}
	if err := s.validateTimes(in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	if len(in.Notes) > 500 {
		return nil, fmt.Errorf("notes must be at most 500 characters: %w", domain.ErrInvalidInput)
	}

	space, err := s.spaceRepo.GetByID(reservation.SpaceID)
	if err != nil {
		return nil, fmt.Errorf("space %d: %w", reservation.SpaceID, err)
	}

	release, err := s.lockSpace(ctx, reservation.SpaceID)
	if err != nil {
		return nil, err
	}
	defer release()

	conflicts, err := s.resRepo.FindConflicting(reservation.SpaceID, in.StartTime, in.EndTime)
	if err != nil {
		return nil, fmt.Errorf("conflict check: %w", err)
	}
	for _, c := range conflicts {
		if c.ID != reservation.ID {
			metrics.ObserveConflict()
			return nil, fmt.Errorf("space already booked from %s to %s: %w",
				c.StartTime.Format(time.RFC3339), c.EndTime.Format(time.RFC3339), domain.ErrConflict)
		}
	}

	reservation.StartTime = in.StartTime
	reservation.EndTime = in.EndTime
	reservation.Notes = in.Notes
	reservation.TotalPrice = domain.BillableHours(in.StartTime, in.EndTime) * space.PricePerHour
	if err := s.resRepo.Update(reservation); err != nil {
		return nil, fmt.Errorf("update reservation: %w", err)
	}

	s.logger.Info("reservation updated", slog.Int64("reservation_id", id))
	return reservation, nil
}

// Cancel marks a reservation CANCELLED, keeping its times and price for
// history. Only the owner or an admin may cancel, and cancelling twice fails.
func (s *ReservationService) Cancel(ctx context.Context, requesterID int64, roles []string, id int64) (*domain.Reservation, error) {
	reservation, err := s.resRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.ValidateOwnership(requesterID, reservation.UserID, roles); err != nil {
		return nil, err
	}
	switch reservation.Status {
	case domain.StatusCancelled:
		return nil, domain.ErrAlreadyCancelled
	case domain.StatusCompleted:
		return nil, fmt.Errorf("completed reservation cannot be cancelled: %w", domain.ErrInvalidInput)
	}

	reservation.Status = domain.StatusCancelled
	if err := s.resRepo.Update(reservation); err != nil {
		return nil, fmt.Errorf("cancel reservation: %w", err)
	}

	s.logger.Info("reservation cancelled",
		slog.Int64("reservation_id", id),
		slog.Int64("user_id", reservation.UserID),
	)

	if err := s.notifier.Notify(reservation.UserID, domain.NotifyWarning,
		"Reservation cancelled",
		fmt.Sprintf("Your booking of %s on %s was cancelled.", reservation.SpaceName,
			reservation.StartTime.Format("Jan 2 15:04")),
	); err != nil {
		s.logger.Warn("failed to notify cancellation", slog.String("error", err.Error()))
	}

	return reservation, nil
}

// Get returns a reservation, visible to its owner or an admin.
func (s *ReservationService) Get(requesterID int64, roles []string, id int64) (*domain.Reservation, error) {
	reservation, err := s.resRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.ValidateOwnership(requesterID, reservation.UserID, roles); err != nil {
		return nil, err
	}
	return reservation, nil
}

// ListByUser returns the caller's reservations, newest first.
func (s *ReservationService) ListByUser(userID int64) ([]*domain.Reservation, error) {
	return s.resRepo.ListByUser(userID)
}

// ListAll returns reservations matching the filter. Admin only.
func (s *ReservationService) ListAll(roles []string, filter domain.ReservationFilter) ([]*domain.Reservation, error) {
	if err := s.authz.ValidatePermission(roles, security.PermListAllBookings); err != nil {
		return nil, err
	}
	return s.resRepo.List(filter)
}

// Delete removes a reservation outright. Admin only; cancellation is the
// normal path.
func (s *ReservationService) Delete(roles []string, id int64) error {
	if err := s.authz.ValidatePermission(roles, security.PermDeleteBooking); err != nil {
		return err
	}
	if _, err := s.resRepo.GetByID(id); err != nil {
		return err
	}
	if err := s.resRepo.Delete(id); err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	s.logger.Info("reservation deleted", slog.Int64("reservation_id", id))
	return nil
}

// lockSpace acquires the per-space booking lock through the circuit breaker.
// A down lock backend trips the breaker and surfaces as Unavailable rather
// than hanging every booking request.
func (s *ReservationService) lockSpace(ctx context.Context, spaceID int64) (func(), error) {
	key := fmt.Sprintf("booking:space:%d", spaceID)

	var token string
	var held bool
	err := s.breaker.Execute(func() error {
		var lockErr error
		token, held, lockErr = s.locker.AcquireLock(ctx, key, s.config.BookingLockTTL)
		return lockErr
	})
	if err != nil {
		if err == circuitbreaker.ErrOpen {
			return nil, fmt.Errorf("booking lock backend unavailable: %w", domain.ErrUnavailable)
		}
		s.logger.Error("lock acquisition failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("booking lock backend unavailable: %w", domain.ErrUnavailable)
	}
	if !held {
		metrics.ObserveLockContention()
		return nil, fmt.Errorf("space is being booked by another request: %w", domain.ErrConflict)
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.locker.ReleaseLock(releaseCtx, key, token); err != nil {
			s.logger.Warn("failed to release booking lock",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
	return release, nil
}
