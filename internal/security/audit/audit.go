package audit

import (
	"context"
	"log/slog"
	"time"
)

// Logger emits structured audit records for booking and inventory mutations.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, userID int64, action, resource string, resourceID int64, status, details string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.Int64("resource_id", resourceID),
		slog.Int64("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogBooking(ctx context.Context, userID, reservationID int64, status, details string) {
	al.LogAction(ctx, userID, "book", "reservation", reservationID, status, details)
}

func (al *Logger) LogCancellation(ctx context.Context, userID, reservationID int64, status, details string) {
	al.LogAction(ctx, userID, "cancel", "reservation", reservationID, status, details)
}

func (al *Logger) LogDenied(ctx context.Context, userID int64, reason string) {
	al.LogAction(ctx, userID, "access_denied", "api", 0, "denied", reason)
}
