package booking

import "time"

// Interval describes the room occupancy claimed by a booking.
type Interval struct {
	BookingID string
	Room      string
	Start     time.Time
	End       time.Time
	State     State
}

// Conflict details an overlapping booking that blocks a candidate request.
type Conflict struct {
	WithBookingID string
	Room          string
	Start         time.Time
	End           time.Time
}

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) share any instant. Touching boundaries do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// DetectConflicts identifies existing intervals that block the candidate.
// Intervals in a terminal state never conflict, and a booking never conflicts
// with itself (relevant when re-checking an edited booking).
func DetectConflicts(existing []Interval, candidate Interval) []Conflict {
	if candidate.Room == "" || !candidate.Start.Before(candidate.End) {
		return nil
	}

	var conflicts []Conflict
	for _, iv := range existing {
		if iv.BookingID != "" && iv.BookingID == candidate.BookingID {
			continue
		}
		if iv.Room != candidate.Room {
			continue
		}
		if iv.State.Terminal() {
			continue
		}
		if !Overlaps(iv.Start, iv.End, candidate.Start, candidate.End) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			WithBookingID: iv.BookingID,
			Room:          iv.Room,
			Start:         iv.Start,
			End:           iv.End,
		})
	}
	return conflicts
}
