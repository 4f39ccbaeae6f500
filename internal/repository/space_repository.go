package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/reservespace/backend/internal/domain"
)

// PostgresSpaceRepository implements domain.SpaceRepository using PostgreSQL
type PostgresSpaceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresSpaceRepository creates a new space repository
func NewPostgresSpaceRepository(db *sql.DB, logger *slog.Logger) *PostgresSpaceRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSpaceRepository{
		db:     db,
		logger: logger,
	}
}

const spaceColumns = `id, name, description, type, capacity, price_per_hour, amenities, image_url, available, floor, location, created_at`

// Create creates a new space
func (r *PostgresSpaceRepository) Create(space *domain.Space) error {
	query := `
		INSERT INTO spaces (name, description, type, capacity, price_per_hour, amenities, image_url, available, floor, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		query,
		space.Name,
		nullString(space.Description),
		string(space.Type),
		space.Capacity,
		space.PricePerHour,
		nullString(strings.Join(space.Amenities, ",")),
		nullString(space.ImageURL),
		space.Available,
		nullString(space.Floor),
		nullString(space.Location),
	).Scan(&space.ID, &space.CreatedAt)

	if err != nil {
		r.logger.Error("failed to create space",
			slog.String("name", space.Name),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create space: %w", err)
	}

	return nil
}

// GetByID retrieves a space by ID
func (r *PostgresSpaceRepository) GetByID(id int64) (*domain.Space, error) {
	query := `SELECT ` + spaceColumns + ` FROM spaces WHERE id = $1`
	return r.scanSpace(r.db.QueryRow(query, id))
}

// Update updates an existing space
func (r *PostgresSpaceRepository) Update(space *domain.Space) error {
	query := `
		UPDATE spaces
		SET name = $1, description = $2, type = $3, capacity = $4, price_per_hour = $5,
		    amenities = $6, image_url = $7, available = $8, floor = $9, location = $10
		WHERE id = $11
	`

	result, err := r.db.Exec(
		query,
		space.Name,
		nullString(space.Description),
		string(space.Type),
		space.Capacity,
		space.PricePerHour,
		nullString(strings.Join(space.Amenities, ",")),
		nullString(space.ImageURL),
		space.Available,
		nullString(space.Floor),
		nullString(space.Location),
		space.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update space: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("space %d: %w", space.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes a space
func (r *PostgresSpaceRepository) Delete(id int64) error {
	result, err := r.db.Exec(`DELETE FROM spaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete space: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("space %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

// List lists all spaces, newest first
func (r *PostgresSpaceRepository) List() ([]*domain.Space, error) {
	query := `SELECT ` + spaceColumns + ` FROM spaces ORDER BY created_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Error("failed to list spaces", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}
	defer rows.Close()

	return r.collectSpaces(rows)
}

// ListAvailable lists available spaces matching the filter. When the filter
// carries a time window, spaces with a conflicting non-CANCELLED reservation
// in that window are excluded.
func (r *PostgresSpaceRepository) ListAvailable(filter domain.SpaceFilter) ([]*domain.Space, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + spaceColumns + ` FROM spaces WHERE available = true`)

	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Type != "" {
		sb.WriteString(` AND type = ` + arg(string(filter.Type)))
	}
	if filter.MinCapacity > 0 {
		sb.WriteString(` AND capacity >= ` + arg(filter.MinCapacity))
	}
	if filter.MaxPrice > 0 {
		sb.WriteString(` AND price_per_hour <= ` + arg(filter.MaxPrice))
	}
	if !filter.Start.IsZero() && !filter.End.IsZero() {
		startRef := arg(filter.Start)
		endRef := arg(filter.End)
		sb.WriteString(` AND NOT EXISTS (
			SELECT 1 FROM reservations res
			WHERE res.space_id = spaces.id
			  AND res.status <> 'CANCELLED'
			  AND res.start_time < ` + endRef + `
			  AND res.end_time > ` + startRef + `
		)`)
	}
	sb.WriteString(` ORDER BY price_per_hour ASC, capacity DESC`)

	rows, err := r.db.Query(sb.String(), args...)
	if err != nil {
		r.logger.Error("failed to list available spaces", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list available spaces: %w", err)
	}
	defer rows.Close()

	return r.collectSpaces(rows)
}

func (r *PostgresSpaceRepository) collectSpaces(rows *sql.Rows) ([]*domain.Space, error) {
	var spaces []*domain.Space
	for rows.Next() {
		space, err := r.scanSpace(rows)
		if err != nil {
			return nil, err
		}
		spaces = append(spaces, space)
	}
	return spaces, rows.Err()
}

func (r *PostgresSpaceRepository) scanSpace(row rowScanner) (*domain.Space, error) {
	space := &domain.Space{}
	var description, amenities, imageURL, floor, location sql.NullString
	var rawType string

	err := row.Scan(
		&space.ID,
		&space.Name,
		&description,
		&rawType,
		&space.Capacity,
		&space.PricePerHour,
		&amenities,
		&imageURL,
		&space.Available,
		&floor,
		&location,
		&space.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("space: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan space: %w", err)
	}

	space.Type = domain.ParseSpaceType(rawType)
	space.Description = description.String
	space.ImageURL = imageURL.String
	space.Floor = floor.String
	space.Location = location.String
	if amenities.String != "" {
		space.Amenities = strings.Split(amenities.String, ",")
	}
	return space, nil
}
