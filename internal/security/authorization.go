package security

import (
	"fmt"
	"log/slog"

	"github.com/reservespace/backend/internal/domain"
)

// Permission represents an action permission
type Permission string

const (
	PermCreateSpace        Permission = "create_space"
	PermUpdateSpace        Permission = "update_space"
	PermDeleteSpace        Permission = "delete_space"
	PermListAllBookings    Permission = "list_all_bookings"
	PermDeleteBooking      Permission = "delete_booking"
	PermCreateBooking      Permission = "create_booking"
	PermCancelOwnBooking   Permission = "cancel_own_booking"
	PermViewSpaces         Permission = "view_spaces"
	PermViewOwnBookings    Permission = "view_own_bookings"
	PermManageUsers        Permission = "manage_users"
	PermViewNotifications  Permission = "view_notifications"
	PermClearNotifications Permission = "clear_notifications"
)

// RolePermissions maps role tags to their permissions. Admins hold the full
// set; regular users manage only their own bookings and notifications.
var RolePermissions = map[string][]Permission{
	domain.RoleAdmin: {
		PermCreateSpace,
		PermUpdateSpace,
		PermDeleteSpace,
		PermListAllBookings,
		PermDeleteBooking,
		PermCreateBooking,
		PermCancelOwnBooking,
		PermViewSpaces,
		PermViewOwnBookings,
		PermManageUsers,
		PermViewNotifications,
		PermClearNotifications,
	},
	domain.RoleUser: {
		PermCreateBooking,
		PermCancelOwnBooking,
		PermViewSpaces,
		PermViewOwnBookings,
		PermViewNotifications,
		PermClearNotifications,
	},
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if any of the roles grants the permission
func (as *AuthorizationService) HasPermission(roles []string, permission Permission) bool {
	for _, role := range roles {
		for _, p := range RolePermissions[role] {
			if p == permission {
				return true
			}
		}
	}
	return false
}

// ValidatePermission validates that the role set grants a permission
func (as *AuthorizationService) ValidatePermission(roles []string, permission Permission) error {
	if !as.HasPermission(roles, permission) {
		as.logger.Warn("permission denied",
			slog.Any("roles", roles),
			slog.String("permission", string(permission)),
		)
		return fmt.Errorf("permission denied: %s: %w", permission, domain.ErrForbidden)
	}
	return nil
}

// ValidateOwnership checks that the requester owns the resource or is admin
func (as *AuthorizationService) ValidateOwnership(requesterID, ownerID int64, roles []string) error {
	if requesterID == ownerID {
		return nil
	}
	if domain.HasRole(roles, domain.RoleAdmin) {
		return nil
	}
	as.logger.Warn("ownership check failed",
		slog.Int64("requester_id", requesterID),
		slog.Int64("owner_id", ownerID),
	)
	return fmt.Errorf("resource owned by another user: %w", domain.ErrForbidden)
}
