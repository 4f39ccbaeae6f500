package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reservespace/backend/internal/domain"
)

func TestBestFitDecreasing(t *testing.T) {
	spaces := []*domain.Space{
		{ID: 1, Name: "Big cheap", Capacity: 20, PricePerHour: 30, Available: true},
		{ID: 2, Name: "Small cheap", Capacity: 4, PricePerHour: 30, Available: true},
		{ID: 3, Name: "Mid", Capacity: 10, PricePerHour: 40, Available: true},
		{ID: 4, Name: "Pricey", Capacity: 10, PricePerHour: 90, Available: true},
		{ID: 5, Name: "Closed", Capacity: 10, PricePerHour: 10, Available: false},
		{ID: 6, Name: "Tiny", Capacity: 2, PricePerHour: 5, Available: true},
	}

	got := BestFitDecreasing(spaces, 4, 50)
	require.Len(t, got, 3)
	// Price ascending, capacity descending breaks ties
	require.Equal(t, int64(1), got[0].ID)
	require.Equal(t, int64(2), got[1].ID)
	require.Equal(t, int64(3), got[2].ID)
}

func TestBestFitDecreasingCapsAtFive(t *testing.T) {
	spaces := make([]*domain.Space, 0, 8)
	for i := 1; i <= 8; i++ {
		spaces = append(spaces, &domain.Space{ID: int64(i), Capacity: 10, PricePerHour: float64(i * 10), Available: true})
	}
	got := BestFitDecreasing(spaces, 1, 0)
	require.Len(t, got, 5)
	require.Equal(t, int64(1), got[0].ID)
}

func newAllocationFixture(t *testing.T) (*AllocationService, *memSpaceRepo, *memReservationRepo) {
	t.Helper()
	spaceRepo := newMemSpaceRepo()
	resRepo := newMemReservationRepo()
	svc := NewAllocationService(spaceRepo, resRepo, testConfig(), nil)
	return svc, spaceRepo, resRepo
}

func TestAvailableSlots(t *testing.T) {
	svc, spaceRepo, resRepo := newAllocationFixture(t)

	space := &domain.Space{Name: "Room A", Capacity: 8, PricePerHour: 50, Available: true}
	require.NoError(t, spaceRepo.Create(space))

	day := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return day.Add(time.Duration(h) * time.Hour) }

	// Two bookings, the second pair overlaps and must merge
	require.NoError(t, resRepo.Create(&domain.Reservation{SpaceID: space.ID, StartTime: at(9), EndTime: at(10), Status: domain.StatusConfirmed}))
	require.NoError(t, resRepo.Create(&domain.Reservation{SpaceID: space.ID, StartTime: at(13), EndTime: at(15), Status: domain.StatusConfirmed}))
	require.NoError(t, resRepo.Create(&domain.Reservation{SpaceID: space.ID, StartTime: at(14), EndTime: at(16), Status: domain.StatusConfirmed}))
	// Cancelled bookings do not block
	require.NoError(t, resRepo.Create(&domain.Reservation{SpaceID: space.ID, StartTime: at(17), EndTime: at(18), Status: domain.StatusCancelled}))

	slots, err := svc.AvailableSlots(space.ID, day)
	require.NoError(t, err)
	// Business day 08-20 minus [9,10) and [13,16)
	require.Equal(t, []TimeSlot{
		{Start: at(8), End: at(9)},
		{Start: at(10), End: at(13)},
		{Start: at(16), End: at(20)},
	}, slots)
}

func TestAvailableSlotsEmptyDay(t *testing.T) {
	svc, spaceRepo, _ := newAllocationFixture(t)
	space := &domain.Space{Name: "Room A", Capacity: 8, PricePerHour: 50, Available: true}
	require.NoError(t, spaceRepo.Create(space))

	day := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	slots, err := svc.AvailableSlots(space.ID, day)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.Equal(t, 8, slots[0].Start.Hour())
	require.Equal(t, 20, slots[0].End.Hour())
}

func TestAvailableSlotsUnknownSpace(t *testing.T) {
	svc, _, _ := newAllocationFixture(t)
	_, err := svc.AvailableSlots(999, time.Now())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAllocateOptimal(t *testing.T) {
	svc, spaceRepo, resRepo := newAllocationFixture(t)

	cheap := &domain.Space{Name: "Cheap", Capacity: 8, PricePerHour: 20, Available: true}
	mid := &domain.Space{Name: "Mid", Capacity: 8, PricePerHour: 40, Available: true}
	require.NoError(t, spaceRepo.Create(cheap))
	require.NoError(t, spaceRepo.Create(mid))

	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	end := start.Add(2 * time.Hour)

	// Cheapest wins when free
	got, err := svc.AllocateOptimal(4, 0, start, end)
	require.NoError(t, err)
	require.Equal(t, cheap.ID, got.ID)

	// Cheapest taken, falls through to the next
	require.NoError(t, resRepo.Create(&domain.Reservation{SpaceID: cheap.ID, StartTime: start, EndTime: end, Status: domain.StatusConfirmed}))
	got, err = svc.AllocateOptimal(4, 0, start, end)
	require.NoError(t, err)
	require.Equal(t, mid.ID, got.ID)

	// Nothing fits the capacity bound
	_, err = svc.AllocateOptimal(50, 0, start, end)
	require.ErrorIs(t, err, domain.ErrNotFound)

	// Bad window
	_, err = svc.AllocateOptimal(4, 0, end, start)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOccupancyScore(t *testing.T) {
	svc, spaceRepo, resRepo := newAllocationFixture(t)
	space := &domain.Space{Name: "Room A", Capacity: 8, PricePerHour: 50, Available: true}
	require.NoError(t, spaceRepo.Create(space))

	// Empty history scores zero
	score, err := svc.OccupancyScore(space.ID)
	require.NoError(t, err)
	require.Zero(t, score)

	// 36 reserved hours over a 360-hour budget
	for day := 1; day <= 12; day++ {
		start := time.Now().AddDate(0, 0, -day)
		require.NoError(t, resRepo.Create(&domain.Reservation{
			SpaceID:   space.ID,
			StartTime: start,
			EndTime:   start.Add(3 * time.Hour),
			Status:    domain.StatusCompleted,
		}))
	}
	score, err = svc.OccupancyScore(space.ID)
	require.NoError(t, err)
	require.InDelta(t, 0.1, score, 0.001)
}
