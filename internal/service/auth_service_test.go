package service

import (
	"errors"
	"testing"
	"time"

	"github.com/reservespace/backend/internal/domain"
	"github.com/reservespace/backend/internal/security/auth"
)

func newTestAuthService(repo domain.UserRepository) *AuthService {
	tm := auth.NewTokenManager("test-secret", "reservespace-test")
	return NewAuthService(repo, tm, time.Hour, nil)
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newMemUserRepo()
	s := newTestAuthService(repo)

	r, err := s.Register("Alice", "alice@example.com", "", "Password123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if r.ID == 0 || r.Token == "" {
		t.Fatalf("expected user id and token, got %+v", r)
	}
	if r.Type != "Bearer" {
		t.Fatalf("expected Bearer token type, got %q", r.Type)
	}
	if len(r.Roles) != 1 || r.Roles[0] != domain.RoleUser {
		t.Fatalf("expected ROLE_USER, got %v", r.Roles)
	}

	// Duplicate email
	if _, err := s.Register("Alice Two", "alice@example.com", "", "Password123"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}

	// Email is case-insensitive
	lr, err := s.Login("ALICE@example.com", "Password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if lr.Token == "" {
		t.Fatalf("expected token on login")
	}

	// Wrong password
	if _, err := s.Login("alice@example.com", "Wrong"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}

	// Unknown email must fail the same way as a wrong password
	if _, err := s.Login("nobody@example.com", "Password123"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newTestAuthService(newMemUserRepo())

	cases := []struct {
		name, email, password string
	}{
		{"", "a@b.com", "Password123"},
		{"Alice", "", "Password123"},
		{"Alice", "not-an-email", "Password123"},
		{"Alice", "a@b.com", "short"},
	}
	for _, c := range cases {
		if _, err := s.Register(c.name, c.email, "", c.password); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected invalid input for %+v, got %v", c, err)
		}
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	repo := newMemUserRepo()
	s := newTestAuthService(repo)

	r, err := s.Register("Carol", "carol@example.com", "", "Password123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	u, _ := repo.GetByID(r.ID)
	u.IsActive = false

	if _, err := s.Login("carol@example.com", "Password123"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated for inactive account, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	repo := newMemUserRepo()
	s := newTestAuthService(repo)
	reg, err := s.Register("Bob", "bob@example.com", "", "OldPass123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// Wrong current password
	if err := s.ChangePassword(reg.ID, "bad", "NewPass123"); err == nil {
		t.Fatalf("expected wrong current password error")
	}
	// Good change
	if err := s.ChangePassword(reg.ID, "OldPass123", "NewPass123"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	// Old password should no longer work
	if _, err := s.Login("bob@example.com", "OldPass123"); err == nil {
		t.Fatalf("expected old password to fail after change")
	}
	// New password works
	if _, err := s.Login("bob@example.com", "NewPass123"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}
