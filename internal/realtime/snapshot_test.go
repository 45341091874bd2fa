package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/roombook/internal/booking"
	"github.com/example/roombook/internal/persistence"
)

type stubBookingLister struct {
	bookings []persistence.Booking
	calls    int
}

func (s *stubBookingLister) ListBookings(_ context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	s.calls++
	var out []persistence.Booking
	for _, b := range s.bookings {
		if filter.StartsAfter != nil && b.Start.Before(*filter.StartsAfter) {
			continue
		}
		if filter.StartsBefore != nil && !b.Start.Before(*filter.StartsBefore) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

type stubEmployeeLister struct {
	names map[int64]string
}

func (s *stubEmployeeLister) ListEmployeesByIDs(_ context.Context, ids []int64) ([]persistence.Employee, error) {
	var out []persistence.Employee
	for _, id := range ids {
		if name, ok := s.names[id]; ok {
			out = append(out, persistence.Employee{ID: id, Name: name})
		}
	}
	return out, nil
}

func testBuilder() (*SnapshotBuilder, *stubBookingLister) {
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	lister := &stubBookingLister{bookings: []persistence.Booking{
		{
			ID:             "b-1",
			RequesterID:    1,
			Room:           "ห้องประชุม 1",
			Start:          day.Add(9 * time.Hour),
			End:            day.Add(10*time.Hour + 30*time.Minute),
			ParticipantIDs: []int64{1, 2},
			Purpose:        "ประชุมทีม",
			State:          booking.StateApproved,
		},
		{
			ID:          "b-2",
			RequesterID: 2,
			Room:        "ห้องประชุม 2",
			Start:       day.Add(13 * time.Hour),
			End:         day.Add(14 * time.Hour),
			Purpose:     "อบรมพนักงาน",
			State:       booking.StateCancelled,
		},
		{
			ID:          "b-3",
			RequesterID: 2,
			Room:        "ห้องประชุม 3",
			Start:       day.AddDate(0, 0, 10).Add(9 * time.Hour),
			End:         day.AddDate(0, 0, 10).Add(10 * time.Hour),
			Purpose:     "สัมภาษณ์งาน",
			State:       booking.StatePending,
		},
	}}
	directory := &stubEmployeeLister{names: map[int64]string{
		1: "สมชาย ใจดี",
		2: "สมหญิง รักงาน",
	}}
	return NewSnapshotBuilder(lister, directory, time.UTC, time.Minute), lister
}

func TestSnapshotDay(t *testing.T) {
	t.Parallel()

	builder, _ := testBuilder()
	entries, err := builder.Day(context.Background(), "2024-06-03")
	require.NoError(t, err)

	// The cancelled booking is hidden, the later one is out of the window.
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "b-1", entry.ID)
	assert.Equal(t, "2024-06-03", entry.Date)
	assert.Equal(t, "09:00", entry.TimeIn)
	assert.Equal(t, "10:30", entry.TimeOut)
	assert.Equal(t, "สมชาย ใจดี", entry.Requester)
	assert.Equal(t, []string{"สมชาย ใจดี", "สมหญิง รักงาน"}, entry.Participants)
	assert.Equal(t, "approved", entry.State)
	assert.Equal(t, "อนุมัติ", entry.StateLabel)
}

func TestSnapshotDay_RejectsBadDate(t *testing.T) {
	t.Parallel()

	builder, _ := testBuilder()
	_, err := builder.Day(context.Background(), "03/06/2024")
	require.Error(t, err)
}

func TestSnapshotMonth(t *testing.T) {
	t.Parallel()

	builder, _ := testBuilder()
	entries, err := builder.Month(context.Background(), 2024, time.June)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b-1", entries[0].ID)
	assert.Equal(t, "b-3", entries[1].ID)

	_, err = builder.Month(context.Background(), 2024, time.Month(13))
	require.Error(t, err)
}

func TestSnapshotCacheInvalidation(t *testing.T) {
	t.Parallel()

	builder, lister := testBuilder()
	ctx := context.Background()

	_, err := builder.Day(ctx, "2024-06-03")
	require.NoError(t, err)
	_, err = builder.Day(ctx, "2024-06-03")
	require.NoError(t, err)
	assert.Equal(t, 1, lister.calls, "second read must come from cache")

	builder.Invalidate(time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC))
	_, err = builder.Day(ctx, "2024-06-03")
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls, "invalidation must force a rebuild")
}
