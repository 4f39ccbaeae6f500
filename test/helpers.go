package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/reservespace/backend/internal/domain"
	"github.com/reservespace/backend/internal/handler"
	"github.com/reservespace/backend/internal/infrastructure/logger"
	"github.com/reservespace/backend/internal/reliability/circuitbreaker"
	"github.com/reservespace/backend/internal/security"
	"github.com/reservespace/backend/internal/security/auth"
	mw "github.com/reservespace/backend/internal/security/middleware"
	"github.com/reservespace/backend/internal/service"
	"github.com/reservespace/backend/pkg/cache"
	"github.com/reservespace/backend/pkg/config"
	"golang.org/x/crypto/bcrypt"
)

// TestServerHelper runs the full HTTP surface against in-memory storage, so
// API flows can be exercised without Postgres or Redis.
type TestServerHelper struct {
	Server       *httptest.Server
	Users        *memUserRepo
	Spaces       *memSpaceRepo
	Reservations *memReservationRepo
	Tokens       *auth.TokenManager
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:          "test",
		TokenTTL:             time.Hour,
		BookingLockTTL:       10 * time.Second,
		SpaceCacheTTL:        time.Minute,
		MinBookingMinutes:    30,
		MaxBookingMinutes:    720,
		BusinessDayStartHour: 8,
		BusinessDayEndHour:   20,
		CORSAllowedOrigins:   []string{"http://localhost:5173"},
	}
}

// NewTestServer wires services, handlers and the JWT middleware the same way
// cmd/server does, backed by in-memory repositories.
func NewTestServer(t *testing.T) *TestServerHelper {
	t.Helper()

	log := logger.NewLogger("error")
	cfg := testConfig()

	userRepo := newMemUserRepo()
	spaceRepo := newMemSpaceRepo()
	resRepo := newMemReservationRepo()
	notifRepo := newMemNotificationRepo()

	tokens := auth.NewTokenManager("test-secret", "reservespace-test")
	authz := security.NewAuthorizationService(log)
	breaker := circuitbreaker.New(3, 1, time.Minute)

	authService := service.NewAuthService(userRepo, tokens, cfg.TokenTTL, log)
	notificationService := service.NewNotificationService(notifRepo, log)
	spaceService := service.NewSpaceService(spaceRepo, resRepo, cache.New(), cfg.SpaceCacheTTL, log)
	reservationService := service.NewReservationService(
		resRepo, spaceRepo, userRepo, newMemLocker(), breaker, authz, notificationService, cfg, log)
	allocationService := service.NewAllocationService(spaceRepo, resRepo, cfg, log)

	authHandler := handler.NewAuthHandler(authService, log)
	spaceHandler := handler.NewSpaceHandler(spaceService, authz, log)
	reservationHandler := handler.NewReservationHandler(reservationService, log)
	allocationHandler := handler.NewAllocationHandler(allocationService, log)
	notificationHandler := handler.NewNotificationHandler(notificationService, log)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/change-password", authHandler.ChangePassword)

	mux.HandleFunc("GET /api/spaces", spaceHandler.List)
	mux.HandleFunc("GET /api/spaces/available", spaceHandler.ListAvailable)
	mux.HandleFunc("GET /api/spaces/{id}", spaceHandler.Get)
	mux.HandleFunc("POST /api/spaces", spaceHandler.Create)
	mux.HandleFunc("PUT /api/spaces/{id}", spaceHandler.Update)
	mux.HandleFunc("DELETE /api/spaces/{id}", spaceHandler.Delete)
	mux.HandleFunc("GET /api/spaces/{id}/slots", allocationHandler.Slots)
	mux.HandleFunc("POST /api/allocation/optimal", allocationHandler.Optimal)

	mux.HandleFunc("GET /api/reservations", reservationHandler.ListAll)
	mux.HandleFunc("GET /api/reservations/my", reservationHandler.ListMine)
	mux.HandleFunc("GET /api/reservations/{id}", reservationHandler.Get)
	mux.HandleFunc("POST /api/reservations", reservationHandler.Create)
	mux.HandleFunc("PUT /api/reservations/{id}", reservationHandler.Update)
	mux.HandleFunc("POST /api/reservations/{id}/cancel", reservationHandler.Cancel)
	mux.HandleFunc("DELETE /api/reservations/{id}", reservationHandler.Delete)

	mux.HandleFunc("GET /api/notifications", notificationHandler.List)
	mux.HandleFunc("POST /api/notifications/{id}/read", notificationHandler.MarkRead)
	mux.HandleFunc("DELETE /api/notifications/{id}", notificationHandler.Delete)

	root := mw.JWTMiddleware(tokens, log)(mux)
	server := httptest.NewServer(root)
	t.Cleanup(server.Close)

	return &TestServerHelper{
		Server:       server,
		Users:        userRepo,
		Spaces:       spaceRepo,
		Reservations: resRepo,
		Tokens:       tokens,
	}
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// SeedAdmin creates an admin account directly in storage and returns a token
// for it.
func (h *TestServerHelper) SeedAdmin(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash admin password: %v", err)
	}
	admin := &domain.User{
		Name:         "Admin",
		Email:        "admin@reservespace.test",
		PasswordHash: string(hash),
		Roles:        []string{domain.RoleAdmin},
		IsActive:     true,
	}
	if err := h.Users.Create(admin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	token, err := h.Tokens.GenerateToken(admin.ID, admin.Email, admin.Name, admin.Roles, time.Hour)
	if err != nil {
		t.Fatalf("admin token: %v", err)
	}
	return token
}

// Register signs up a regular user through the API and returns their token.
func (h *TestServerHelper) Register(t *testing.T, name, email string) string {
	t.Helper()
	var out struct {
		Token string `json:"token"`
	}
	resp := h.DoJSON(t, "POST", "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "Password123",
	}, &out)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d", email, resp.StatusCode)
	}
	return out.Token
}

// DoJSON sends a JSON request with an optional bearer token and decodes the
// response body into out (when out is non-nil and the body is JSON).
func (h *TestServerHelper) DoJSON(t *testing.T, method, path, token string, body any, out any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, h.Server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode %s %s response %q: %v", method, path, raw, err)
		}
	}
	return resp
}

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// In-memory repositories backing the test server.

type memUserRepo struct {
	seq   int64
	users map[int64]*domain.User
}

func newMemUserRepo() *memUserRepo { return &memUserRepo{users: map[int64]*domain.User{}} }

func (m *memUserRepo) Create(u *domain.User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return domain.ErrConflict
		}
	}
	m.seq++
	u.ID = m.seq
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = u
	return nil
}

func (m *memUserRepo) GetByID(id int64) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) GetByEmail(email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) Update(u *domain.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return domain.ErrNotFound
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUserRepo) Delete(id int64) error { delete(m.users, id); return nil }

func (m *memUserRepo) List() ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

type memSpaceRepo struct {
	seq    int64
	spaces map[int64]*domain.Space
}

func newMemSpaceRepo() *memSpaceRepo { return &memSpaceRepo{spaces: map[int64]*domain.Space{}} }

func (m *memSpaceRepo) Create(s *domain.Space) error {
	m.seq++
	s.ID = m.seq
	s.CreatedAt = time.Now()
	m.spaces[s.ID] = s
	return nil
}

func (m *memSpaceRepo) GetByID(id int64) (*domain.Space, error) {
	if s, ok := m.spaces[id]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memSpaceRepo) Update(s *domain.Space) error {
	if _, ok := m.spaces[s.ID]; !ok {
		return domain.ErrNotFound
	}
	m.spaces[s.ID] = s
	return nil
}

func (m *memSpaceRepo) Delete(id int64) error { delete(m.spaces, id); return nil }

func (m *memSpaceRepo) List() ([]*domain.Space, error) {
	out := make([]*domain.Space, 0, len(m.spaces))
	for _, s := range m.spaces {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memSpaceRepo) ListAvailable(filter domain.SpaceFilter) ([]*domain.Space, error) {
	all, _ := m.List()
	out := make([]*domain.Space, 0, len(all))
	for _, s := range all {
		if !s.Available {
			continue
		}
		if filter.Type != "" && s.Type != filter.Type {
			continue
		}
		if filter.MinCapacity > 0 && s.Capacity < filter.MinCapacity {
			continue
		}
		if filter.MaxPrice > 0 && s.PricePerHour > filter.MaxPrice {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type memReservationRepo struct {
	seq          int64
	reservations map[int64]*domain.Reservation
}

func newMemReservationRepo() *memReservationRepo {
	return &memReservationRepo{reservations: map[int64]*domain.Reservation{}}
}

func (m *memReservationRepo) Create(r *domain.Reservation) error {
	m.seq++
	r.ID = m.seq
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	m.reservations[r.ID] = r
	return nil
}

func (m *memReservationRepo) GetByID(id int64) (*domain.Reservation, error) {
	if r, ok := m.reservations[id]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memReservationRepo) Update(r *domain.Reservation) error {
	if _, ok := m.reservations[r.ID]; !ok {
		return domain.ErrNotFound
	}
	r.UpdatedAt = time.Now()
	m.reservations[r.ID] = r
	return nil
}

func (m *memReservationRepo) Delete(id int64) error { delete(m.reservations, id); return nil }

func (m *memReservationRepo) ListByUser(userID int64) ([]*domain.Reservation, error) {
	out := []*domain.Reservation{}
	for _, r := range m.reservations {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memReservationRepo) List(filter domain.ReservationFilter) ([]*domain.Reservation, error) {
	out := []*domain.Reservation{}
	for _, r := range m.reservations {
		if filter.SpaceID != 0 && r.SpaceID != filter.SpaceID {
			continue
		}
		if filter.UserID != 0 && r.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memReservationRepo) FindConflicting(spaceID int64, start, end time.Time) ([]*domain.Reservation, error) {
	out := []*domain.Reservation{}
	for _, r := range m.reservations {
		if r.SpaceID != spaceID || r.Status == domain.StatusCancelled {
			continue
		}
		if r.Overlaps(start, end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReservationRepo) MarkCompleted(cutoff time.Time) (int64, error) {
	var n int64
	for _, r := range m.reservations {
		if r.Status == domain.StatusConfirmed && !r.EndTime.After(cutoff) {
			r.Status = domain.StatusCompleted
			n++
		}
	}
	return n, nil
}

type memNotificationRepo struct {
	seq           int64
	notifications map[int64]*domain.Notification
}

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{notifications: map[int64]*domain.Notification{}}
}

func (m *memNotificationRepo) Create(n *domain.Notification) error {
	m.seq++
	n.ID = m.seq
	n.CreatedAt = time.Now()
	m.notifications[n.ID] = n
	return nil
}

func (m *memNotificationRepo) GetByID(id int64) (*domain.Notification, error) {
	if n, ok := m.notifications[id]; ok {
		return n, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memNotificationRepo) ListByUser(userID int64, unreadOnly bool) ([]*domain.Notification, error) {
	out := []*domain.Notification{}
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memNotificationRepo) MarkRead(id int64) error {
	n, ok := m.notifications[id]
	if !ok {
		return domain.ErrNotFound
	}
	n.Read = true
	return nil
}

func (m *memNotificationRepo) Delete(id int64) error { delete(m.notifications, id); return nil }

type memLocker struct {
	held map[string]string
}

func newMemLocker() *memLocker { return &memLocker{held: map[string]string{}} }

func (m *memLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	if _, taken := m.held[key]; taken {
		return "", false, nil
	}
	m.held[key] = key + "-token"
	return m.held[key], true, nil
}

func (m *memLocker) ReleaseLock(_ context.Context, key, token string) error {
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}
