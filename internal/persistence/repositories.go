package persistence

import (
	"context"
	"time"

	"github.com/example/roombook/internal/booking"
)

// EmployeeRepository exposes read-only directory lookups. Employee records are
// provisioned by a separate process and never mutated here.
type EmployeeRepository interface {
	GetEmployee(ctx context.Context, id int64) (Employee, error)
	ListEmployeesByIDs(ctx context.Context, ids []int64) ([]Employee, error)
	ListEmployeesByNames(ctx context.Context, names []string) ([]Employee, error)
	SearchEmployees(ctx context.Context, query string, limit int) ([]Employee, error)
}

// BookingSort selects the ordering applied to booking listings.
type BookingSort string

const (
	// BookingSortStartAsc orders bookings by start time ascending.
	BookingSortStartAsc BookingSort = "start_asc"
	// BookingSortStartDesc orders bookings by start time descending.
	BookingSortStartDesc BookingSort = "start_desc"
)

// BookingFilter narrows booking listings. StartsAfter/StartsBefore bound the
// booking start time (half-open: start >= StartsAfter, start < StartsBefore).
// Page is 1-based; PageSize <= 0 disables pagination.
type BookingFilter struct {
	State        *booking.State
	RequesterID  *int64
	StartsAfter  *time.Time
	StartsBefore *time.Time
	Page         int
	PageSize     int
	Sort         BookingSort
}

// BookingRepository stores reservations together with their participant sets.
type BookingRepository interface {
	// CreateBooking inserts the booking if and only if no active booking in
	// the same room overlaps its interval. The overlap check and the insert
	// execute in one transaction; a losing concurrent writer receives
	// ErrConflict.
	CreateBooking(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	// UpdateBooking replaces the mutable fields and the participant set.
	// The requester and creation timestamp are never changed.
	UpdateBooking(ctx context.Context, b Booking) error
	// UpdateBookingState transitions the approval state only.
	UpdateBookingState(ctx context.Context, id string, state booking.State, updatedAt time.Time) error
	DeleteBooking(ctx context.Context, id string) error
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	// ListOverlapping returns bookings in the room whose interval overlaps
	// [start, end) and whose state is not in excludeStates.
	ListOverlapping(ctx context.Context, room string, start, end time.Time, excludeStates []booking.State) ([]Booking, error)
}

// AccountRepository exposes credential lookups for authentication.
type AccountRepository interface {
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	GetAccount(ctx context.Context, employeeID int64) (Account, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
