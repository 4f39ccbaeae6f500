package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reservespace/backend/internal/domain"
)

type sweepRepo struct {
	mu           sync.Mutex
	reservations []*domain.Reservation
	failures     int
}

func (r *sweepRepo) Create(*domain.Reservation) error               { return nil }
func (r *sweepRepo) GetByID(int64) (*domain.Reservation, error)     { return nil, domain.ErrNotFound }
func (r *sweepRepo) Update(*domain.Reservation) error               { return nil }
func (r *sweepRepo) Delete(int64) error                             { return nil }
func (r *sweepRepo) ListByUser(int64) ([]*domain.Reservation, error) { return nil, nil }

func (r *sweepRepo) List(filter domain.ReservationFilter) ([]*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Reservation{}
	for _, res := range r.reservations {
		if filter.Status == "" || res.Status == filter.Status {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *sweepRepo) FindConflicting(int64, time.Time, time.Time) ([]*domain.Reservation, error) {
	return nil, nil
}

func (r *sweepRepo) MarkCompleted(cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return 0, errors.New("storage hiccup")
	}
	var n int64
	for _, res := range r.reservations {
		if res.Status == domain.StatusConfirmed && !res.EndTime.After(cutoff) {
			res.Status = domain.StatusCompleted
			n++
		}
	}
	return n, nil
}

func (r *sweepRepo) statusOf(i int) domain.ReservationStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reservations[i].Status
}

func TestSweepPromotesEndedReservations(t *testing.T) {
	now := time.Now()
	repo := &sweepRepo{reservations: []*domain.Reservation{
		{ID: 1, Status: domain.StatusConfirmed, EndTime: now.Add(-time.Hour)},
		{ID: 2, Status: domain.StatusConfirmed, EndTime: now.Add(time.Hour)},
		{ID: 3, Status: domain.StatusCancelled, EndTime: now.Add(-time.Hour)},
	}}

	w := NewCompletionWorker(repo, nil, time.Minute)
	w.sweep(context.Background())

	require.Equal(t, domain.StatusCompleted, repo.statusOf(0))
	require.Equal(t, domain.StatusConfirmed, repo.statusOf(1))
	require.Equal(t, domain.StatusCancelled, repo.statusOf(2))
}

func TestSweepRetriesTransientFailures(t *testing.T) {
	now := time.Now()
	repo := &sweepRepo{
		failures: 2,
		reservations: []*domain.Reservation{
			{ID: 1, Status: domain.StatusConfirmed, EndTime: now.Add(-time.Hour)},
		},
	}

	w := NewCompletionWorker(repo, nil, time.Minute)
	w.sweep(context.Background())

	// Two failures, third attempt lands
	require.Equal(t, domain.StatusCompleted, repo.statusOf(0))
}

func TestStartStopsOnContextCancel(t *testing.T) {
	repo := &sweepRepo{}
	w := NewCompletionWorker(repo, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}
