package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reservespace/backend/internal/domain"
)

func TestNotifyAndList(t *testing.T) {
	repo := newMemNotificationRepo()
	svc := NewNotificationService(repo, nil)

	require.NoError(t, svc.Notify(1, domain.NotifySuccess, "Reservation confirmed", "Room A is booked."))
	require.NoError(t, svc.Notify(1, domain.NotifyWarning, "Reservation cancelled", "Room A was cancelled."))
	require.NoError(t, svc.Notify(2, domain.NotifyInfo, "Welcome", "Hello."))

	all, err := svc.ListByUser(1, false)
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, svc.MarkRead(1, all[0].ID))
	unread, err := svc.ListByUser(1, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
}

func TestNotificationOwnership(t *testing.T) {
	repo := newMemNotificationRepo()
	svc := NewNotificationService(repo, nil)

	require.NoError(t, svc.Notify(1, domain.NotifyInfo, "Hi", "msg"))
	n, err := svc.ListByUser(1, false)
	require.NoError(t, err)

	require.ErrorIs(t, svc.MarkRead(2, n[0].ID), domain.ErrForbidden)
	require.ErrorIs(t, svc.Delete(2, n[0].ID), domain.ErrForbidden)
	require.NoError(t, svc.Delete(1, n[0].ID))
}

func TestSubscribeReceivesLiveNotifications(t *testing.T) {
	repo := newMemNotificationRepo()
	svc := NewNotificationService(repo, nil)

	ch, cancel := svc.Subscribe(7)
	defer cancel()

	require.NoError(t, svc.Notify(7, domain.NotifySuccess, "Reservation confirmed", "Room A is booked."))
	select {
	case n := <-ch:
		require.Equal(t, "Reservation confirmed", n.Title)
	case <-time.After(time.Second):
		t.Fatal("expected a pushed notification")
	}

	// Other users' events do not leak into this feed
	require.NoError(t, svc.Notify(8, domain.NotifyInfo, "Other", "msg"))
	select {
	case n := <-ch:
		t.Fatalf("unexpected notification: %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	repo := newMemNotificationRepo()
	svc := NewNotificationService(repo, nil)

	ch, cancel := svc.Subscribe(7)
	cancel()

	require.NoError(t, svc.Notify(7, domain.NotifyInfo, "After cancel", "msg"))
	select {
	case n := <-ch:
		t.Fatalf("unexpected notification after cancel: %+v", n)
	default:
	}
}
