package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/reservespace/backend/internal/domain"
)

// PostgresReservationRepository implements domain.ReservationRepository using
// PostgreSQL
type PostgresReservationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresReservationRepository creates a new reservation repository
func NewPostgresReservationRepository(db *sql.DB, logger *slog.Logger) *PostgresReservationRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReservationRepository{
		db:     db,
		logger: logger,
	}
}

const reservationColumns = `id, space_id, space_name, user_id, user_name, user_email, user_phone, start_time, end_time, status, total_price, notes, created_at, updated_at`

// Create creates a new reservation
func (r *PostgresReservationRepository) Create(res *domain.Reservation) error {
	query := `
		INSERT INTO reservations (space_id, space_name, user_id, user_name, user_email, user_phone,
		                          start_time, end_time, status, total_price, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		res.SpaceID,
		res.SpaceName,
		res.UserID,
		res.UserName,
		res.UserEmail,
		nullString(res.UserPhone),
		res.StartTime,
		res.EndTime,
		string(res.Status),
		res.TotalPrice,
		nullString(res.Notes),
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create reservation",
			slog.Int64("space_id", res.SpaceID),
			slog.String("user_email", res.UserEmail),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	return nil
}

// GetByID retrieves a reservation by ID
func (r *PostgresReservationRepository) GetByID(id int64) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	return r.scanReservation(r.db.QueryRow(query, id))
}

// Update updates an existing reservation
func (r *PostgresReservationRepository) Update(res *domain.Reservation) error {
	query := `
		UPDATE reservations
		SET user_name = $1, user_email = $2, user_phone = $3, start_time = $4, end_time = $5,
		    status = $6, total_price = $7, notes = $8, updated_at = now()
		WHERE id = $9
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		res.UserName,
		res.UserEmail,
		nullString(res.UserPhone),
		res.StartTime,
		res.EndTime,
		string(res.Status),
		res.TotalPrice,
		nullString(res.Notes),
		res.ID,
	).Scan(&res.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("reservation %d: %w", res.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to update reservation: %w", err)
	}

	return nil
}

// Delete removes a reservation
func (r *PostgresReservationRepository) Delete(id int64) error {
	result, err := r.db.Exec(`DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("reservation %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListByUser lists a user's reservations, newest-created first
func (r *PostgresReservationRepository) ListByUser(userID int64) ([]*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		r.logger.Error("failed to list reservations by user",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	return r.collectReservations(rows)
}

// List lists reservations matching the administrative filter, newest first
func (r *PostgresReservationRepository) List(filter domain.ReservationFilter) ([]*domain.Reservation, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + reservationColumns + ` FROM reservations WHERE 1=1`)

	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.SpaceID > 0 {
		sb.WriteString(` AND space_id = ` + arg(filter.SpaceID))
	}
	if filter.UserID > 0 {
		sb.WriteString(` AND user_id = ` + arg(filter.UserID))
	}
	if filter.Status != "" {
		sb.WriteString(` AND status = ` + arg(string(filter.Status)))
	}
	if !filter.Start.IsZero() {
		sb.WriteString(` AND end_time > ` + arg(filter.Start))
	}
	if !filter.End.IsZero() {
		sb.WriteString(` AND start_time < ` + arg(filter.End))
	}
	sb.WriteString(` ORDER BY created_at DESC`)

	rows, err := r.db.Query(sb.String(), args...)
	if err != nil {
		r.logger.Error("failed to list reservations", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	return r.collectReservations(rows)
}

// FindConflicting returns non-CANCELLED reservations on the space whose
// [start_time, end_time) intervals intersect [start, end).
func (r *PostgresReservationRepository) FindConflicting(spaceID int64, start, end time.Time) ([]*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE space_id = $1
		  AND status <> 'CANCELLED'
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time ASC
	`

	rows, err := r.db.Query(query, spaceID, start, end)
	if err != nil {
		r.logger.Error("failed to find conflicting reservations",
			slog.Int64("space_id", spaceID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to find conflicting reservations: %w", err)
	}
	defer rows.Close()

	return r.collectReservations(rows)
}

// MarkCompleted promotes CONFIRMED reservations ending at or before the
// cutoff to COMPLETED.
func (r *PostgresReservationRepository) MarkCompleted(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(
		`UPDATE reservations SET status = 'COMPLETED', updated_at = now()
		 WHERE status = 'CONFIRMED' AND end_time <= $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark reservations completed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rows, nil
}

func (r *PostgresReservationRepository) collectReservations(rows *sql.Rows) ([]*domain.Reservation, error) {
	var reservations []*domain.Reservation
	for rows.Next() {
		res, err := r.scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

func (r *PostgresReservationRepository) scanReservation(row rowScanner) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	var phone, notes sql.NullString
	var status string

	err := row.Scan(
		&res.ID,
		&res.SpaceID,
		&res.SpaceName,
		&res.UserID,
		&res.UserName,
		&res.UserEmail,
		&phone,
		&res.StartTime,
		&res.EndTime,
		&status,
		&res.TotalPrice,
		&notes,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reservation: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan reservation: %w", err)
	}

	res.Status = domain.ReservationStatus(status)
	res.UserPhone = phone.String
	res.Notes = notes.String
	return res, nil
}
