package booking

// State represents the approval stage of a booking.
type State string

const (
	// StatePending marks a booking awaiting administrator review.
	StatePending State = "pending"
	// StateApproved marks a booking confirmed by an administrator.
	StateApproved State = "approved"
	// StateRejected marks a booking declined by an administrator.
	StateRejected State = "rejected"
	// StateCancelled marks a booking withdrawn by its requester.
	StateCancelled State = "cancelled"
)

// Valid reports whether the state is one of the known approval stages.
func (s State) Valid() bool {
	switch s {
	case StatePending, StateApproved, StateRejected, StateCancelled:
		return true
	}
	return false
}

// Terminal reports whether the state removes the booking from active
// consideration. Terminal bookings never participate in conflict checks and
// are hidden from the public display view.
func (s State) Terminal() bool {
	return s == StateRejected || s == StateCancelled
}

// Label returns the Thai display label shown to end users.
func (s State) Label() string {
	switch s {
	case StatePending:
		return "รออนุมัติ"
	case StateApproved:
		return "อนุมัติ"
	case StateRejected:
		return "ไม่อนุมัติ"
	case StateCancelled:
		return "ยกเลิก"
	}
	return string(s)
}

// CanApprove reports whether an administrator may approve from this state.
func (s State) CanApprove() bool {
	return s == StatePending
}

// CanReject reports whether an administrator may reject from this state.
func (s State) CanReject() bool {
	return s == StatePending
}

// CanCancel reports whether the requester may cancel from this state.
func (s State) CanCancel() bool {
	return s == StatePending || s == StateApproved
}
