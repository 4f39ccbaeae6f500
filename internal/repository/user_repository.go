package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/reservespace/backend/internal/domain"
)

// PostgresUserRepository implements domain.UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserRepository{
		db:     db,
		logger: logger,
	}
}

const userColumns = `id, name, email, phone, password_hash, roles, profile_image, is_active, created_at, updated_at`

// Create creates a new user
func (r *PostgresUserRepository) Create(user *domain.User) error {
	query := `
		INSERT INTO users (name, email, phone, password_hash, roles, profile_image, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		user.Name,
		user.Email,
		nullString(user.Phone),
		user.PasswordHash,
		joinRoles(user.Roles),
		nullString(user.ProfileImage),
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email %q already registered: %w", user.Email, domain.ErrConflict)
		}
		r.logger.Error("failed to create user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRow(query, id))
}

// GetByEmail retrieves an active user by email
func (r *PostgresUserRepository) GetByEmail(email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND is_active = true`
	return r.scanUser(r.db.QueryRow(query, email))
}

// Update updates an existing user
func (r *PostgresUserRepository) Update(user *domain.User) error {
	query := `
		UPDATE users
		SET name = $1, email = $2, phone = $3, password_hash = $4, roles = $5,
		    profile_image = $6, is_active = $7, updated_at = now()
		WHERE id = $8
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		user.Name,
		user.Email,
		nullString(user.Phone),
		user.PasswordHash,
		joinRoles(user.Roles),
		nullString(user.ProfileImage),
		user.IsActive,
		user.ID,
	).Scan(&user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %d: %w", user.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

// Delete soft-deletes a user (sets is_active to false)
func (r *PostgresUserRepository) Delete(id int64) error {
	result, err := r.db.Exec(`UPDATE users SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

// List lists all active users
func (r *PostgresUserRepository) List() ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_active = true ORDER BY created_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresUserRepository) scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var phone, roles, profileImage sql.NullString

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&phone,
		&user.PasswordHash,
		&roles,
		&profileImage,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user.Phone = phone.String
	user.ProfileImage = profileImage.String
	user.Roles = splitRoles(roles.String)
	return user, nil
}

func joinRoles(roles []string) string {
	if len(roles) == 0 {
		return domain.RoleUser
	}
	return strings.Join(roles, ",")
}

func splitRoles(raw string) []string {
	if raw == "" {
		return []string{domain.RoleUser}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
