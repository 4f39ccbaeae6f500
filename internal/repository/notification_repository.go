package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reservespace/backend/internal/domain"
)

// PostgresNotificationRepository implements domain.NotificationRepository
// using PostgreSQL
type PostgresNotificationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresNotificationRepository creates a new notification repository
func NewPostgresNotificationRepository(db *sql.DB, logger *slog.Logger) *PostgresNotificationRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresNotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new notification
func (r *PostgresNotificationRepository) Create(n *domain.Notification) error {
	query := `
		INSERT INTO notifications (user_id, title, message, type, read)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		query,
		n.UserID,
		n.Title,
		n.Message,
		string(n.Type),
		n.Read,
	).Scan(&n.ID, &n.CreatedAt)

	if err != nil {
		r.logger.Error("failed to create notification",
			slog.Int64("user_id", n.UserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// GetByID retrieves a notification by ID
func (r *PostgresNotificationRepository) GetByID(id int64) (*domain.Notification, error) {
	n := &domain.Notification{}
	var kind string

	query := `SELECT id, user_id, title, message, type, read, created_at FROM notifications WHERE id = $1`
	err := r.db.QueryRow(query, id).Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &kind, &n.Read, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notification %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	n.Type = domain.NotificationType(kind)
	return n, nil
}

// ListByUser lists a user's notifications, newest first
func (r *PostgresNotificationRepository) ListByUser(userID int64, unreadOnly bool) ([]*domain.Notification, error) {
	query := `SELECT id, user_id, title, message, type, read, created_at FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND read = false`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		r.logger.Error("failed to list notifications",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		n := &domain.Notification{}
		var kind string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &kind, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Type = domain.NotificationType(kind)
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// MarkRead marks a notification as read
func (r *PostgresNotificationRepository) MarkRead(id int64) error {
	result, err := r.db.Exec(`UPDATE notifications SET read = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("notification %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Delete removes a notification
func (r *PostgresNotificationRepository) Delete(id int64) error {
	result, err := r.db.Exec(`DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("notification %d: %w", id, domain.ErrNotFound)
	}

	return nil
}
