package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/example/roombook/internal/persistence"
)

// BookingEntry is the wire representation of a booking inside a schedule
// snapshot. Times are rendered in the configured timezone.
type BookingEntry struct {
	ID           string   `json:"id"`
	Room         string   `json:"room"`
	Date         string   `json:"date"`
	TimeIn       string   `json:"timeIn"`
	TimeOut      string   `json:"timeOut"`
	Purpose      string   `json:"purpose"`
	Requester    string   `json:"requester"`
	Participants []string `json:"participants"`
	State        string   `json:"state"`
	StateLabel   string   `json:"stateLabel"`
}

// BookingLister captures the booking reads needed to build snapshots.
type BookingLister interface {
	ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error)
}

// EmployeeLister resolves participant and requester names for snapshots.
type EmployeeLister interface {
	ListEmployeesByIDs(ctx context.Context, ids []int64) ([]persistence.Employee, error)
}

// SnapshotBuilder assembles the day and month schedule views pushed to
// connected clients. Snapshots are cached briefly and invalidated whenever a
// booking changes, so a burst of subscribers does not hammer the database.
type SnapshotBuilder struct {
	bookings  BookingLister
	directory EmployeeLister
	location  *time.Location
	cache     *cache.Cache
}

// NewSnapshotBuilder wires dependencies for snapshot assembly.
func NewSnapshotBuilder(bookings BookingLister, directory EmployeeLister, location *time.Location, ttl time.Duration) *SnapshotBuilder {
	if location == nil {
		location = time.UTC
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SnapshotBuilder{
		bookings:  bookings,
		directory: directory,
		location:  location,
		cache:     cache.New(ttl, 2*ttl),
	}
}

// Location returns the timezone snapshots are rendered in.
func (b *SnapshotBuilder) Location() *time.Location {
	return b.location
}

// Day returns the visible bookings for one calendar day, cached.
func (b *SnapshotBuilder) Day(ctx context.Context, date string) ([]BookingEntry, error) {
	day, err := time.ParseInLocation("2006-01-02", date, b.location)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	key := dayKey(day)
	if cached, ok := b.cache.Get(key); ok {
		return cached.([]BookingEntry), nil
	}

	entries, err := b.window(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	b.cache.SetDefault(key, entries)
	return entries, nil
}

// Month returns the visible bookings for one calendar month, cached.
func (b *SnapshotBuilder) Month(ctx context.Context, year int, month time.Month) ([]BookingEntry, error) {
	if year < 1 || month < time.January || month > time.December {
		return nil, fmt.Errorf("invalid month %d-%d", year, month)
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, b.location)
	key := monthKey(first)
	if cached, ok := b.cache.Get(key); ok {
		return cached.([]BookingEntry), nil
	}

	entries, err := b.window(ctx, first, first.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}
	b.cache.SetDefault(key, entries)
	return entries, nil
}

// Invalidate drops the cached snapshots covering the given instants.
func (b *SnapshotBuilder) Invalidate(at ...time.Time) {
	for _, t := range at {
		local := t.In(b.location)
		b.cache.Delete(dayKey(local))
		b.cache.Delete(monthKey(local))
	}
}

func (b *SnapshotBuilder) window(ctx context.Context, from, to time.Time) ([]BookingEntry, error) {
	records, err := b.bookings.ListBookings(ctx, persistence.BookingFilter{
		StartsAfter:  &from,
		StartsBefore: &to,
		Sort:         persistence.BookingSortStartAsc,
	})
	if err != nil {
		return nil, err
	}

	names, err := b.loadNames(ctx, records)
	if err != nil {
		return nil, err
	}

	entries := make([]BookingEntry, 0, len(records))
	for _, record := range records {
		if record.State.Terminal() {
			continue
		}
		entries = append(entries, b.toEntry(record, names))
	}
	return entries, nil
}

func (b *SnapshotBuilder) loadNames(ctx context.Context, records []persistence.Booking) (map[int64]string, error) {
	seen := make(map[int64]struct{})
	var ids []int64
	collect := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, record := range records {
		collect(record.RequesterID)
		for _, id := range record.ParticipantIDs {
			collect(id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	employees, err := b.directory.ListEmployeesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(employees))
	for _, employee := range employees {
		names[employee.ID] = employee.Name
	}
	return names, nil
}

func (b *SnapshotBuilder) toEntry(record persistence.Booking, names map[int64]string) BookingEntry {
	start := record.Start.In(b.location)
	end := record.End.In(b.location)

	participants := make([]string, 0, len(record.ParticipantIDs))
	for _, id := range record.ParticipantIDs {
		if name, ok := names[id]; ok {
			participants = append(participants, name)
		}
	}

	return BookingEntry{
		ID:           record.ID,
		Room:         record.Room,
		Date:         start.Format("2006-01-02"),
		TimeIn:       start.Format("15:04"),
		TimeOut:      end.Format("15:04"),
		Purpose:      record.Purpose,
		Requester:    names[record.RequesterID],
		Participants: participants,
		State:        string(record.State),
		StateLabel:   record.State.Label(),
	}
}

func dayKey(t time.Time) string {
	return "day:" + t.Format("2006-01-02")
}

func monthKey(t time.Time) string {
	return "month:" + t.Format("2006-01")
}
