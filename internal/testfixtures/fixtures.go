package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/roombook/internal/booking"
	"github.com/example/roombook/internal/persistence"
)

var (
	employeeCounter uint64
	bookingCounter  uint64
	sessionCounter  uint64
)

var referenceTime = time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

var employeeNames = []string{
	"สมชาย ใจดี",
	"สมหญิง รักงาน",
	"วิชัย มั่นคง",
	"อรทัย สุขสันต์",
	"ประเสริฐ เจริญผล",
}

// --------------------------- Employee fixtures ---------------------------

// EmployeeOption configures a generated employee fixture.
type EmployeeOption func(*persistence.Employee)

// NewEmployeeFixture returns a deterministic directory employee. Names cycle
// through a small Thai roster so listings read naturally in tests.
func NewEmployeeFixture(opts ...EmployeeOption) persistence.Employee {
	idx := atomic.AddUint64(&employeeCounter, 1)
	fixture := persistence.Employee{
		ID:         int64(idx),
		Name:       employeeNames[(idx-1)%uint64(len(employeeNames))],
		Department: "ฝ่ายปฏิบัติการ",
		Title:      "เจ้าหน้าที่",
		Phone:      fmt.Sprintf("02-000-%04d", idx),
		Email:      fmt.Sprintf("emp%03d@example.co.th", idx),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEmployeeID overrides the generated employee id.
func WithEmployeeID(id int64) EmployeeOption {
	return func(f *persistence.Employee) {
		f.ID = id
	}
}

// WithEmployeeName overrides the generated display name.
func WithEmployeeName(name string) EmployeeOption {
	return func(f *persistence.Employee) {
		f.Name = name
	}
}

// WithEmployeeEmail overrides the generated email address.
func WithEmployeeEmail(email string) EmployeeOption {
	return func(f *persistence.Employee) {
		f.Email = email
	}
}

// ---------------------------- Account fixtures ---------------------------

// AccountOption configures a generated account fixture.
type AccountOption func(*persistence.Account)

// NewAccountFixture returns a login account for the given employee. The
// password hash defaults to a placeholder; tests that exercise real
// verification supply a bcrypt hash via WithAccountPasswordHash.
func NewAccountFixture(employee persistence.Employee, opts ...AccountOption) persistence.Account {
	fixture := persistence.Account{
		EmployeeID:   employee.ID,
		Email:        employee.Email,
		PasswordHash: fmt.Sprintf("hash-%d", employee.ID),
		IsAdmin:      false,
		CreatedAt:    referenceTime,
		UpdatedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAccountAdmin marks the account as an administrator.
func WithAccountAdmin() AccountOption {
	return func(f *persistence.Account) {
		f.IsAdmin = true
	}
}

// WithAccountPasswordHash overrides the stored password hash.
func WithAccountPasswordHash(hash string) AccountOption {
	return func(f *persistence.Account) {
		f.PasswordHash = hash
	}
}

// ---------------------------- Booking fixtures ---------------------------

// BookingOption configures a generated booking fixture.
type BookingOption func(*persistence.Booking)

// NewBookingFixture returns a pending booking for the given requester. Each
// fixture occupies its own one-hour slot on the reference day so defaults
// never conflict with each other.
func NewBookingFixture(requesterID int64, opts ...BookingOption) persistence.Booking {
	idx := atomic.AddUint64(&bookingCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := persistence.Booking{
		ID:             fmt.Sprintf("booking-%03d", idx),
		RequesterID:    requesterID,
		Room:           "ห้องประชุม 1",
		Start:          start,
		End:            start.Add(time.Hour),
		ParticipantIDs: []int64{requesterID},
		Purpose:        "ประชุมทีม",
		State:          booking.StatePending,
		CreatedAt:      referenceTime,
		UpdatedAt:      referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBookingID overrides the generated booking id.
func WithBookingID(id string) BookingOption {
	return func(f *persistence.Booking) {
		f.ID = id
	}
}

// WithBookingRoom overrides the booked room.
func WithBookingRoom(room string) BookingOption {
	return func(f *persistence.Booking) {
		f.Room = room
	}
}

// WithBookingInterval sets the booked interval.
func WithBookingInterval(start, end time.Time) BookingOption {
	return func(f *persistence.Booking) {
		f.Start = start
		f.End = end
	}
}

// WithBookingState overrides the approval state.
func WithBookingState(state booking.State) BookingOption {
	return func(f *persistence.Booking) {
		f.State = state
	}
}

// WithBookingParticipants replaces the participant ids.
func WithBookingParticipants(ids ...int64) BookingOption {
	return func(f *persistence.Booking) {
		f.ParticipantIDs = ids
	}
}

// ---------------------------- Session fixtures ---------------------------

// SessionOption configures a generated session fixture.
type SessionOption func(*persistence.Session)

// NewSessionFixture returns an unexpired session for the given employee.
func NewSessionFixture(employeeID int64, opts ...SessionOption) persistence.Session {
	idx := atomic.AddUint64(&sessionCounter, 1)
	fixture := persistence.Session{
		ID:         fmt.Sprintf("session-%03d", idx),
		EmployeeID: employeeID,
		Token:      fmt.Sprintf("token-%03d", idx),
		ExpiresAt:  referenceTime.Add(24 * time.Hour),
		CreatedAt:  referenceTime,
		UpdatedAt:  referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionToken overrides the generated token.
func WithSessionToken(token string) SessionOption {
	return func(f *persistence.Session) {
		f.Token = token
	}
}

// WithSessionExpiry overrides the expiry instant.
func WithSessionExpiry(at time.Time) SessionOption {
	return func(f *persistence.Session) {
		f.ExpiresAt = at
	}
}
