package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reservespace/backend/internal/domain"
	"github.com/reservespace/backend/internal/reliability/circuitbreaker"
	"github.com/reservespace/backend/internal/security"
	"github.com/reservespace/backend/pkg/config"
)

type bookingFixture struct {
	svc     *ReservationService
	resRepo *memReservationRepo
	notifs  *memNotificationRepo
	locker  *memLocker
	space   *domain.Space
	user    *domain.User
	admin   *domain.User
}

func testConfig() *config.Config {
	return &config.Config{
		BookingLockTTL:       10 * time.Second,
		MinBookingMinutes:    30,
		MaxBookingMinutes:    720,
		BusinessDayStartHour: 8,
		BusinessDayEndHour:   20,
	}
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()

	spaceRepo := newMemSpaceRepo()
	userRepo := newMemUserRepo()
	resRepo := newMemReservationRepo()
	notifRepo := newMemNotificationRepo()
	locker := newMemLocker()

	space := &domain.Space{Name: "Room A", Type: domain.SpaceMeetingRoom, Capacity: 8, PricePerHour: 50, Available: true}
	require.NoError(t, spaceRepo.Create(space))

	user := &domain.User{Name: "Alice", Email: "alice@example.com", Phone: "555-0101", Roles: []string{domain.RoleUser}, IsActive: true}
	require.NoError(t, userRepo.Create(user))
	admin := &domain.User{Name: "Root", Email: "root@example.com", Roles: []string{domain.RoleAdmin}, IsActive: true}
	require.NoError(t, userRepo.Create(admin))

	svc := NewReservationService(
		resRepo, spaceRepo, userRepo,
		locker,
		circuitbreaker.New(3, 1, time.Minute),
		security.NewAuthorizationService(nil),
		NewNotificationService(notifRepo, nil),
		testConfig(),
		nil,
	)
	return &bookingFixture{svc: svc, resRepo: resRepo, notifs: notifRepo, locker: locker, space: space, user: user, admin: admin}
}

func window(fromNow, length time.Duration) (time.Time, time.Time) {
	start := time.Now().Add(fromNow).Truncate(time.Minute)
	return start, start.Add(length)
}

func TestCreateReservation(t *testing.T) {
	f := newBookingFixture(t)
	start, end := window(24*time.Hour, 90*time.Minute)

	r, err := f.svc.Create(context.Background(), f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: start, EndTime: end, Notes: "standup"})
	require.NoError(t, err)
	require.Equal(t, domain.StatusConfirmed, r.Status)
	// 90 minutes bills as 2 hours
	require.Equal(t, 100.0, r.TotalPrice)
	require.Equal(t, "Room A", r.SpaceName)
	require.Equal(t, "Alice", r.UserName)
	require.Equal(t, "alice@example.com", r.UserEmail)

	notifs, err := f.notifs.ListByUser(f.user.ID, false)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	require.Equal(t, domain.NotifySuccess, notifs[0].Type)

	// Lock is released after the booking
	require.Empty(t, f.locker.held)
}

func TestCreateRejectsOverlap(t *testing.T) {
	f := newBookingFixture(t)
	start, end := window(24*time.Hour, 2*time.Hour)

	_, err := f.svc.Create(context.Background(), f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	// Overlapping window on the same space
	_, err = f.svc.Create(context.Background(), f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: start.Add(time.Hour), EndTime: end.Add(time.Hour)})
	require.ErrorIs(t, err, domain.ErrConflict)

	// Back-to-back is fine: intervals are half-open
	_, err = f.svc.Create(context.Background(), f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: end, EndTime: end.Add(time.Hour)})
	require.NoError(t, err)
}

func TestCreateValidation(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	// Past booking
	start, end := window(-2*time.Hour, time.Hour)
	_, err := f.svc.Create(ctx, f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: start, EndTime: end})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	// End before start
	start, _ = window(24*time.Hour, time.Hour)
	_, err = f.svc.Create(ctx, f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: start, EndTime: start.Add(-time.Hour)})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	// Too short
	start, end = window(24*time.Hour, 10*time.Minute)
	_, err = f.svc.Create(ctx, f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: start, EndTime: end})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	// Too long
	start, end = window(24*time.Hour, 13*time.Hour)
	_, err = f.svc.Create(ctx, f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: start, EndTime: end})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	// Unknown space
	start, end = window(24*time.Hour, time.Hour)
	_, err = f.svc.Create(ctx, f.user.ID, BookingInput{SpaceID: 999, StartTime: start, EndTime: end})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateRejectsUnavailableSpace(t *testing.T) {
	f := newBookingFixture(t)
	f.space.Available = false

	start, end := window(24*time.Hour, time.Hour)
	_, err := f.svc.Create(context.Background(), f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: start, EndTime: end})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreateLockContention(t *testing.T) {
	f := newBookingFixture(t)

	// Another request holds the space lock
	_, ok, err := f.locker.AcquireLock(context.Background(), "booking:space:1", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	start, end := window(24*time.Hour, time.Hour)
	_, err = f.svc.Create(context.Background(), f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: start, EndTime: end})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreateLockBackendDown(t *testing.T) {
	f := newBookingFixture(t)
	f.locker.failErr = errors.New("connection refused")

	start, end := window(24*time.Hour, time.Hour)
	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(context.Background(), f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: start, EndTime: end})
		require.ErrorIs(t, err, domain.ErrUnavailable)
	}

	// Breaker tripped open: fast-fail even though the backend recovered
	f.locker.failErr = nil
	_, err := f.svc.Create(context.Background(), f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: start, EndTime: end})
	require.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestCancelReservation(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	start, end := window(24*time.Hour, time.Hour)

	r, err := f.svc.Create(ctx, f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	// A stranger may not cancel
	_, err = f.svc.Cancel(ctx, f.user.ID+100, []string{domain.RoleUser}, r.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	cancelled, err := f.svc.Cancel(ctx, f.user.ID, []string{domain.RoleUser}, r.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, cancelled.Status)
	// Times and price survive cancellation
	require.Equal(t, r.TotalPrice, cancelled.TotalPrice)
	require.True(t, cancelled.StartTime.Equal(start))

	// Second cancel fails
	_, err = f.svc.Cancel(ctx, f.user.ID, []string{domain.RoleUser}, r.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyCancelled)

	// Cancelled slot is bookable again
	_, err = f.svc.Create(ctx, f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: start, EndTime: end})
	require.NoError(t, err)
}

func TestCancelByAdmin(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	start, end := window(24*time.Hour, time.Hour)

	r, err := f.svc.Create(ctx, f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.admin.ID, []string{domain.RoleAdmin}, r.ID)
	require.NoError(t, err)
}

func TestUpdateReservation(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	start, end := window(24*time.Hour, time.Hour)

	r, err := f.svc.Create(ctx, f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: start, EndTime: end})
	require.NoError(t, err)
	require.Equal(t, 50.0, r.TotalPrice)

	// Moving within its own window is not a self-conflict
	updated, err := f.svc.Update(ctx, f.user.ID, []string{domain.RoleUser}, r.ID,
		BookingInput{SpaceID: f.space.ID, StartTime: start.Add(30 * time.Minute), EndTime: end.Add(90 * time.Minute)})
	require.NoError(t, err)
	// New length is 2h at the current rate
	require.Equal(t, 100.0, updated.TotalPrice)

	// Moving onto another booking conflicts
	other, err := f.svc.Create(ctx, f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: end.Add(2 * time.Hour), EndTime: end.Add(3 * time.Hour)})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, f.user.ID, []string{domain.RoleUser}, r.ID,
		BookingInput{SpaceID: f.space.ID, StartTime: other.StartTime, EndTime: other.EndTime})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestUpdateCancelledReservation(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	start, end := window(24*time.Hour, time.Hour)

	r, err := f.svc.Create(ctx, f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: start, EndTime: end})
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, f.user.ID, []string{domain.RoleUser}, r.ID)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, f.user.ID, []string{domain.RoleUser}, r.ID,
		BookingInput{SpaceID: f.space.ID, StartTime: start, EndTime: end})
	require.ErrorIs(t, err, domain.ErrAlreadyCancelled)
}

func TestDeleteReservationAdminOnly(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	start, end := window(24*time.Hour, time.Hour)

	r, err := f.svc.Create(ctx, f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	err = f.svc.Delete([]string{domain.RoleUser}, r.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, f.svc.Delete([]string{domain.RoleAdmin}, r.ID))
	_, err = f.resRepo.GetByID(r.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetReservationOwnership(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	start, end := window(24*time.Hour, time.Hour)

	r, err := f.svc.Create(ctx, f.user.ID, BookingInput{SpaceID: f.space.ID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	_, err = f.svc.Get(f.user.ID, []string{domain.RoleUser}, r.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(f.user.ID+100, []string{domain.RoleUser}, r.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Get(f.admin.ID, []string{domain.RoleAdmin}, r.ID)
	require.NoError(t, err)
}

func TestListAllRequiresAdmin(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.svc.ListAll([]string{domain.RoleUser}, domain.ReservationFilter{})
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.ListAll([]string{domain.RoleAdmin}, domain.ReservationFilter{})
	require.NoError(t, err)
}
