package service

import (
	"context"
	"sort"
	"time"

	"github.com/reservespace/backend/internal/domain"
)

// In-memory repositories shared by the service tests.

type memUserRepo struct {
	seq   int64
	users map[int64]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[int64]*domain.User{}}
}

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
	u.UpdatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *memUserRepo) Delete(id int64) error {
	delete(m.users, id)
	return nil
}

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

func newMemSpaceRepo() *memSpaceRepo {
	return &memSpaceRepo{spaces: map[int64]*domain.Space{}}
}

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

func (m *memSpaceRepo) Delete(id int64) error {
	delete(m.spaces, id)
	return nil
}

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

func (m *memReservationRepo) Delete(id int64) error {
	delete(m.reservations, id)
	return nil
}

func (m *memReservationRepo) ListByUser(userID int64) ([]*domain.Reservation, error) {
	out := []*domain.Reservation{}
	for _, r := range m.reservations {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
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
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
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

func (m *memNotificationRepo) Delete(id int64) error {
	delete(m.notifications, id)
	return nil
}

// memLocker is a single-process stand-in for the Redis lock.
type memLocker struct {
	held    map[string]string
	failErr error
}

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]string{}}
}

func (m *memLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	if m.failErr != nil {
		return "", false, m.failErr
	}
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
