package booking

import (
	"testing"
	"time"
)

func interval(t *testing.T, id, room string, startHour, endHour int, state State) Interval {
	t.Helper()
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return Interval{
		BookingID: id,
		Room:      room,
		Start:     day.Add(time.Duration(startHour) * time.Hour),
		End:       day.Add(time.Duration(endHour) * time.Hour),
		State:     state,
	}
}

func TestOverlaps_HalfOpenSemantics(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		aStart time.Time
		aEnd   time.Time
		bStart time.Time
		bEnd   time.Time
		want   bool
	}{
		{"identical", base, base.Add(time.Hour), base, base.Add(time.Hour), true},
		{"partial overlap", base, base.Add(time.Hour), base.Add(30 * time.Minute), base.Add(90 * time.Minute), true},
		{"contained", base, base.Add(2 * time.Hour), base.Add(30 * time.Minute), base.Add(time.Hour), true},
		{"adjacent after", base, base.Add(time.Hour), base.Add(time.Hour), base.Add(2 * time.Hour), false},
		{"adjacent before", base.Add(time.Hour), base.Add(2 * time.Hour), base, base.Add(time.Hour), false},
		{"disjoint", base, base.Add(time.Hour), base.Add(3 * time.Hour), base.Add(4 * time.Hour), false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
				t.Fatalf("Overlaps = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDetectConflicts_SameRoomOverlap(t *testing.T) {
	t.Parallel()

	existing := []Interval{
		interval(t, "b-1", "ห้องประชุม 1", 9, 10, StateApproved),
		interval(t, "b-2", "ห้องประชุม 2", 9, 10, StateApproved),
	}

	conflicts := DetectConflicts(existing, interval(t, "", "ห้องประชุม 1", 9, 11, StatePending))
	if len(conflicts) != 1 {
		t.Fatalf("expected one conflict, got %d", len(conflicts))
	}
	if conflicts[0].WithBookingID != "b-1" {
		t.Fatalf("expected conflict with b-1, got %s", conflicts[0].WithBookingID)
	}
}

func TestDetectConflicts_TerminalStatesNeverConflict(t *testing.T) {
	t.Parallel()

	existing := []Interval{
		interval(t, "b-1", "ห้องประชุม 1", 9, 10, StateCancelled),
		interval(t, "b-2", "ห้องประชุม 1", 9, 10, StateRejected),
	}

	if conflicts := DetectConflicts(existing, interval(t, "", "ห้องประชุม 1", 9, 10, StatePending)); conflicts != nil {
		t.Fatalf("expected no conflicts, got %v", conflicts)
	}
}

func TestDetectConflicts_AdjacentBookingsAllowed(t *testing.T) {
	t.Parallel()

	existing := []Interval{interval(t, "b-1", "ห้องประชุม 1", 9, 10, StateApproved)}

	if conflicts := DetectConflicts(existing, interval(t, "", "ห้องประชุม 1", 10, 11, StatePending)); conflicts != nil {
		t.Fatalf("adjacent booking must not conflict, got %v", conflicts)
	}
}

func TestDetectConflicts_IgnoresSelf(t *testing.T) {
	t.Parallel()

	existing := []Interval{interval(t, "b-1", "ห้องประชุม 1", 9, 10, StateApproved)}

	if conflicts := DetectConflicts(existing, interval(t, "b-1", "ห้องประชุม 1", 9, 10, StateApproved)); conflicts != nil {
		t.Fatalf("booking must not conflict with itself, got %v", conflicts)
	}
}

func TestStateTransitions(t *testing.T) {
	t.Parallel()

	if !StatePending.CanApprove() || !StatePending.CanReject() {
		t.Fatal("pending bookings must be approvable and rejectable")
	}
	if StateApproved.CanApprove() || StateCancelled.CanReject() {
		t.Fatal("only pending bookings may be approved or rejected")
	}
	if !StatePending.CanCancel() || !StateApproved.CanCancel() {
		t.Fatal("pending and approved bookings must be cancellable")
	}
	if StateCancelled.CanCancel() || StateRejected.CanCancel() {
		t.Fatal("terminal bookings must not be cancellable")
	}
	if !StateRejected.Terminal() || !StateCancelled.Terminal() {
		t.Fatal("rejected and cancelled are terminal")
	}
	if StatePending.Terminal() || StateApproved.Terminal() {
		t.Fatal("pending and approved are active")
	}
}

func TestStateLabels(t *testing.T) {
	t.Parallel()

	labels := map[State]string{
		StatePending:   "รออนุมัติ",
		StateApproved:  "อนุมัติ",
		StateRejected:  "ไม่อนุมัติ",
		StateCancelled: "ยกเลิก",
	}
	for state, want := range labels {
		if got := state.Label(); got != want {
			t.Fatalf("Label(%s) = %q, want %q", state, got, want)
		}
	}
}
