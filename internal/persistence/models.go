package persistence

import (
	"time"

	"github.com/example/roombook/internal/booking"
)

// Employee is a read-only directory record provisioned outside this service.
type Employee struct {
	ID         int64
	Name       string
	Department string
	Title      string
	Phone      string
	Email      string
}

// Booking represents a room reservation stored in persistence.
type Booking struct {
	ID             string
	RequesterID    int64
	Room           string
	Start          time.Time
	End            time.Time
	ParticipantIDs []int64
	Purpose        string
	Equipment      string
	Remark         string
	State          booking.State
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Account carries the sign-in credentials attached to an employee.
type Account struct {
	EmployeeID   int64
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authentication session persisted for an employee.
type Session struct {
	ID         string
	EmployeeID int64
	Token      string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	RevokedAt  *time.Time
}
