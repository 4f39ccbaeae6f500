package database

import (
	"context"
	"fmt"
)

// schema is applied at startup. Statements are idempotent so repeated boots
// are safe. The no-overlap invariant for bookings is guarded above the
// storage layer by the per-space lock; the indexes below keep the conflict
// scan cheap.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		email VARCHAR(100) NOT NULL UNIQUE,
		phone VARCHAR(20),
		password_hash TEXT NOT NULL,
		roles TEXT NOT NULL DEFAULT 'ROLE_USER',
		profile_image VARCHAR(500),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS spaces (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		description VARCHAR(1000),
		type VARCHAR(30) NOT NULL,
		capacity INT NOT NULL CHECK (capacity >= 1),
		price_per_hour NUMERIC(10,2) NOT NULL CHECK (price_per_hour > 0),
		amenities TEXT,
		image_url VARCHAR(500),
		available BOOLEAN NOT NULL DEFAULT TRUE,
		floor VARCHAR(50),
		location VARCHAR(100),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id BIGSERIAL PRIMARY KEY,
		space_id BIGINT NOT NULL REFERENCES spaces(id),
		space_name VARCHAR(100) NOT NULL,
		user_id BIGINT NOT NULL REFERENCES users(id),
		user_name VARCHAR(100) NOT NULL,
		user_email VARCHAR(100) NOT NULL,
		user_phone VARCHAR(20),
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		status VARCHAR(20) NOT NULL,
		total_price NUMERIC(10,2) NOT NULL,
		notes VARCHAR(500),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (end_time > start_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_space ON reservations(space_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_time ON reservations(start_time, end_time)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_user ON reservations(user_id)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		title VARCHAR(200) NOT NULL,
		message VARCHAR(1000) NOT NULL,
		type VARCHAR(20) NOT NULL,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id)`,
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (cp *ConnectionPool) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := cp.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
