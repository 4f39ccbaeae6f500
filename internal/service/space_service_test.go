package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reservespace/backend/internal/domain"
	"github.com/reservespace/backend/pkg/cache"
)

func newSpaceFixture(t *testing.T) (*SpaceService, *memSpaceRepo, *memReservationRepo) {
	t.Helper()
	spaceRepo := newMemSpaceRepo()
	resRepo := newMemReservationRepo()
	svc := NewSpaceService(spaceRepo, resRepo, cache.New(), time.Minute, nil)
	return svc, spaceRepo, resRepo
}

func TestSpaceCRUD(t *testing.T) {
	svc, _, _ := newSpaceFixture(t)

	created, err := svc.Create(SpaceInput{Name: "  Room A ", Type: "sala de reuniao", Capacity: 8, PricePerHour: 50})
	require.NoError(t, err)
	require.Equal(t, "Room A", created.Name)
	// Legacy type strings normalize fuzzily
	require.Equal(t, domain.SpaceMeetingRoom, created.Type)
	require.True(t, created.Available)

	got, err := svc.Get(created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	off := false
	updated, err := svc.Update(created.ID, SpaceInput{Name: "Room A", Type: "MEETING_ROOM", Capacity: 10, PricePerHour: 60, Available: &off})
	require.NoError(t, err)
	require.Equal(t, 10, updated.Capacity)
	require.False(t, updated.Available)

	// Cache was invalidated by the update
	got, err = svc.Get(created.ID)
	require.NoError(t, err)
	require.Equal(t, 10, got.Capacity)

	require.NoError(t, svc.Delete(created.ID))
	_, err = svc.Get(created.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSpaceValidation(t *testing.T) {
	svc, _, _ := newSpaceFixture(t)

	_, err := svc.Create(SpaceInput{Name: "", Capacity: 8, PricePerHour: 50})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Create(SpaceInput{Name: "X", Capacity: 0, PricePerHour: 50})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Create(SpaceInput{Name: "X", Capacity: 8, PricePerHour: 0})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDeleteSpaceWithActiveReservations(t *testing.T) {
	svc, _, resRepo := newSpaceFixture(t)

	space, err := svc.Create(SpaceInput{Name: "Room A", Type: "MEETING_ROOM", Capacity: 8, PricePerHour: 50})
	require.NoError(t, err)

	start := time.Now().Add(24 * time.Hour)
	require.NoError(t, resRepo.Create(&domain.Reservation{
		SpaceID:   space.ID,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Status:    domain.StatusConfirmed,
	}))

	err = svc.Delete(space.ID)
	require.ErrorIs(t, err, domain.ErrConflict)

	// A cancelled booking no longer protects the space
	reservations, _ := resRepo.List(domain.ReservationFilter{SpaceID: space.ID})
	reservations[0].Status = domain.StatusCancelled
	require.NoError(t, svc.Delete(space.ID))
}

func TestListServedFromCache(t *testing.T) {
	svc, spaceRepo, _ := newSpaceFixture(t)

	_, err := svc.Create(SpaceInput{Name: "Room A", Type: "MEETING_ROOM", Capacity: 8, PricePerHour: 50})
	require.NoError(t, err)

	first, err := svc.List()
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Mutating the repo behind the cache is invisible until invalidation
	require.NoError(t, spaceRepo.Create(&domain.Space{Name: "Sneaky", Capacity: 2, PricePerHour: 10, Available: true}))
	second, err := svc.List()
	require.NoError(t, err)
	require.Len(t, second, 1)

	_, err = svc.Create(SpaceInput{Name: "Room B", Type: "DESK", Capacity: 1, PricePerHour: 5})
	require.NoError(t, err)
	third, err := svc.List()
	require.NoError(t, err)
	require.Len(t, third, 3)
}

func TestListAvailableWindowValidation(t *testing.T) {
	svc, _, _ := newSpaceFixture(t)

	start := time.Now().Add(24 * time.Hour)
	_, err := svc.ListAvailable(domain.SpaceFilter{Start: start})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.ListAvailable(domain.SpaceFilter{Start: start, End: start.Add(-time.Hour)})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.ListAvailable(domain.SpaceFilter{Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)
}
