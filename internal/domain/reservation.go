package domain

import (
	"math"
	"time"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "PENDING"
	StatusConfirmed ReservationStatus = "CONFIRMED"
	StatusCancelled ReservationStatus = "CANCELLED"
	StatusCompleted ReservationStatus = "COMPLETED"
)

// ParseReservationStatus validates a raw status string. Returns "" for
// unknown values.
func ParseReservationStatus(raw string) ReservationStatus {
	switch ReservationStatus(raw) {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return ReservationStatus(raw)
	default:
		return ""
	}
}

// Reservation is a booking of a Space for a time interval. Space name and
// requester identity are denormalized at creation time so later edits to the
// space or user do not rewrite booking history.
type Reservation struct {
	ID         int64
	SpaceID    int64
	SpaceName  string
	UserID     int64
	UserName   string
	UserEmail  string
	UserPhone  string
	StartTime  time.Time
	EndTime    time.Time
	Status     ReservationStatus
	TotalPrice float64
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Overlaps reports whether the reservation's [start, end) interval intersects
// [start, end).
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartTime.Before(end) && r.EndTime.After(start)
}

// BillableHours returns the duration rounded up to whole hours, minimum one.
// Pricing uses the hour as the billing unit, matching the rate card.
func BillableHours(start, end time.Time) float64 {
	minutes := end.Sub(start).Minutes()
	hours := math.Ceil(minutes / 60.0)
	if hours < 1 {
		hours = 1
	}
	return hours
}

// ReservationFilter narrows administrative listings. Zero values mean "no
// filter".
type ReservationFilter struct {
	SpaceID int64
	UserID  int64
	Status  ReservationStatus
	Start   time.Time
	End     time.Time
}

// ReservationRepository defines data access for reservations.
type ReservationRepository interface {
	Create(r *Reservation) error
	GetByID(id int64) (*Reservation, error)
	Update(r *Reservation) error
	Delete(id int64) error
	ListByUser(userID int64) ([]*Reservation, error)
	List(filter ReservationFilter) ([]*Reservation, error)
	// FindConflicting returns non-CANCELLED reservations on the space whose
	// intervals intersect [start, end).
	FindConflicting(spaceID int64, start, end time.Time) ([]*Reservation, error)
	// MarkCompleted promotes CONFIRMED reservations ending at or before the
	// cutoff to COMPLETED and returns how many rows changed.
	MarkCompleted(cutoff time.Time) (int64, error)
}
