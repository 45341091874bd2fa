package application

import (
	"strconv"
	"strings"
	"time"

	"github.com/example/roombook/internal/booking"
)

// PurposeOther is the purpose value that requires a caller supplied free-text
// purpose instead.
const PurposeOther = "อื่น ๆ"

// Principal represents the authenticated employee invoking a service method.
type Principal struct {
	EmployeeID int64
	IsAdmin    bool
}

// ParticipantRef identifies a meeting participant either by directory ID or
// by exact display name. Exactly one of the two fields is set.
type ParticipantRef struct {
	ID   int64
	Name string
}

// ByID reports whether the reference carries a directory ID.
func (r ParticipantRef) ByID() bool {
	return r.ID != 0
}

// ParseParticipantRef interprets a caller supplied participant string. Values
// of the form "id:<number>" resolve by directory ID; anything else resolves
// by exact name.
func ParseParticipantRef(value string) (ParticipantRef, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ParticipantRef{}, false
	}
	if rest, ok := strings.CutPrefix(trimmed, "id:"); ok {
		id, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
		if err != nil || id <= 0 {
			return ParticipantRef{}, false
		}
		return ParticipantRef{ID: id}, true
	}
	return ParticipantRef{Name: trimmed}, true
}

// Employee is the directory view exposed by application services.
type Employee struct {
	ID         int64
	Name       string
	Department string
	Title      string
	Phone      string
	Email      string
}

// Participant is the denormalized participant entry on a booking view.
type Participant struct {
	ID   int64
	Name string
}

// Booking is the denormalized reservation view returned to callers.
type Booking struct {
	ID            string
	RequesterID   int64
	RequesterName string
	Room          string
	Start         time.Time
	End           time.Time
	Purpose       string
	Equipment     string
	Remark        string
	State         booking.State
	StateLabel    string
	Participants  []Participant
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BookingInput captures caller provided reservation fields. Date uses the
// layout 2006-01-02 and the times use 15:04, both interpreted in the
// service's configured timezone.
type BookingInput struct {
	Room          string
	Date          string
	TimeIn        string
	TimeOut       string
	Purpose       string
	CustomPurpose string
	Equipment     string
	Remark        string
	Participants  []string
}

// CreateBookingParams wraps the data required to create a booking.
type CreateBookingParams struct {
	Principal Principal
	Input     BookingInput
}

// UpdateBookingParams wraps the data required to update an existing booking.
type UpdateBookingParams struct {
	Principal Principal
	BookingID string
	Input     BookingInput
}

// BookingResult carries a booking mutation outcome. Warning is set when the
// mutation succeeded but a side effect such as email delivery did not.
type BookingResult struct {
	Booking Booking
	Warning string
}

// ListBookingsParams wraps the data required to list bookings. From and To
// bound the booking start time when set.
type ListBookingsParams struct {
	Principal Principal
	State     *booking.State
	Mine      bool
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	Newest    bool
}

// LoginParams captures the data required to authenticate an employee.
type LoginParams struct {
	Email    string
	Password string
}

// LoginResult captures the outcome of a successful login.
type LoginResult struct {
	Employee  Employee
	IsAdmin   bool
	Token     string
	ExpiresAt time.Time
}
