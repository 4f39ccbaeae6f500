package service

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/reservespace/backend/internal/domain"
	"github.com/reservespace/backend/internal/observability/metrics"
)

// NotificationService persists per-user notifications and fans them out to
// live subscribers (the WebSocket stream).
type NotificationService struct {
	repo   domain.NotificationRepository
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[int64]map[chan *domain.Notification]struct{}
}

// NewNotificationService creates a new notification service
func NewNotificationService(repo domain.NotificationRepository, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{
		repo:        repo,
		logger:      logger,
		subscribers: map[int64]map[chan *domain.Notification]struct{}{},
	}
}

// Notify stores a notification for a user and pushes it to any live
// subscriber. A slow subscriber never blocks the caller.
func (s *NotificationService) Notify(userID int64, kind domain.NotificationType, title, message string) error {
	n := &domain.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    kind,
	}
	if err := s.repo.Create(n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	metrics.ObserveNotification(string(kind))

	s.mu.RLock()
	for ch := range s.subscribers[userID] {
		select {
		case ch <- n:
		default:
		}
	}
	s.mu.RUnlock()
	return nil
}

// ListByUser returns a user's notifications, optionally only unread ones.
func (s *NotificationService) ListByUser(userID int64, unreadOnly bool) ([]*domain.Notification, error) {
	return s.repo.ListByUser(userID, unreadOnly)
}

// MarkRead flags a notification as read. Only the owner may do so.
func (s *NotificationService) MarkRead(requesterID, id int64) error {
	n, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if n.UserID != requesterID {
		return fmt.Errorf("notification owned by another user: %w", domain.ErrForbidden)
	}
	return s.repo.MarkRead(id)
}

// Delete removes a notification. Only the owner may do so.
func (s *NotificationService) Delete(requesterID, id int64) error {
	n, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if n.UserID != requesterID {
		return fmt.Errorf("notification owned by another user: %w", domain.ErrForbidden)
	}
	return s.repo.Delete(id)
}

// Subscribe registers a live feed for a user. The returned cancel function
// must be called when the consumer goes away.
func (s *NotificationService) Subscribe(userID int64) (<-chan *domain.Notification, func()) {
	ch := make(chan *domain.Notification, 16)

	s.mu.Lock()
	if s.subscribers[userID] == nil {
		s.subscribers[userID] = map[chan *domain.Notification]struct{}{}
	}
	s.subscribers[userID][ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subscribers[userID], ch)
		if len(s.subscribers[userID]) == 0 {
			delete(s.subscribers, userID)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}
