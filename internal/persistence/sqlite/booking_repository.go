package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/roombook/internal/booking"
	"github.com/example/roombook/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
// Timestamps are stored as RFC3339 UTC strings, so lexicographic comparison
// in SQL matches chronological order.
type BookingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const bookingColumns = `id, requester_id, room, start_at, end_at, purpose, equipment, remark, state, created_at, updated_at`

// activeStates are the states that occupy a room for conflict purposes.
const activeStatesClause = `state IN ('pending', 'approved')`

// CreateBooking inserts the booking after verifying no active booking in the
// same room overlaps its interval. The check and the insert run in a single
// write transaction; the transaction starts with an immediate lock, so a
// concurrent writer for the same slot waits and then fails the check.
func (r *BookingRepository) CreateBooking(ctx context.Context, b persistence.Booking) error {
	if b.ID == "" || b.Room == "" || !b.Start.Before(b.End) {
		return persistence.ErrConstraintViolation
	}
	if !b.State.Valid() {
		return persistence.ErrConstraintViolation
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var overlapping int
		err := r.helper.QueryRowTx(tx, `
			SELECT COUNT(1) FROM bookings
			WHERE room = ? AND `+activeStatesClause+`
			  AND start_at < ? AND end_at > ?
		`, b.Room, formatTime(b.End), formatTime(b.Start)).Scan(&overlapping)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if overlapping > 0 {
			return persistence.ErrConflict
		}

		if err := insertBooking(tx, r.helper, b); err != nil {
			return err
		}
		return replaceParticipants(tx, r.helper, b.ID, b.ParticipantIDs)
	})
	if err != nil {
		return err
	}
	return nil
}

// GetBooking retrieves a booking with its participant IDs.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	row := r.helper.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)

	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Booking{}, persistence.ErrNotFound
		}
		return persistence.Booking{}, r.mapper.MapError(err)
	}

	b.ParticipantIDs, err = r.listParticipants(ctx, id)
	if err != nil {
		return persistence.Booking{}, err
	}
	return b, nil
}

// UpdateBooking replaces the mutable fields and the participant set. The
// requester and creation timestamp stored in the database are preserved.
func (r *BookingRepository) UpdateBooking(ctx context.Context, b persistence.Booking) error {
	if b.ID == "" || b.Room == "" || !b.Start.Before(b.End) {
		return persistence.ErrConstraintViolation
	}
	if !b.State.Valid() {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(tx, `
			UPDATE bookings
			SET room = ?, start_at = ?, end_at = ?, purpose = ?, equipment = ?, remark = ?, state = ?, updated_at = ?
			WHERE id = ?
		`,
			b.Room,
			formatTime(b.Start),
			formatTime(b.End),
			b.Purpose,
			b.Equipment,
			b.Remark,
			string(b.State),
			formatTime(b.UpdatedAt),
			b.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}

		return replaceParticipants(tx, r.helper, b.ID, b.ParticipantIDs)
	})
}

// UpdateBookingState transitions the approval state only.
func (r *BookingRepository) UpdateBookingState(ctx context.Context, id string, state booking.State, updatedAt time.Time) error {
	if !state.Valid() {
		return persistence.ErrConstraintViolation
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE bookings SET state = ?, updated_at = ? WHERE id = ?
	`, string(state), formatTime(updatedAt), id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeleteBooking removes a booking. Participants are removed by cascade.
func (r *BookingRepository) DeleteBooking(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListBookings returns bookings matching the filter with participants loaded.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.State != nil {
		clauses = append(clauses, `state = ?`)
		args = append(args, string(*filter.State))
	}
	if filter.RequesterID != nil {
		clauses = append(clauses, `requester_id = ?`)
		args = append(args, *filter.RequesterID)
	}
	if filter.StartsAfter != nil {
		clauses = append(clauses, `start_at >= ?`)
		args = append(args, formatTime(*filter.StartsAfter))
	}
	if filter.StartsBefore != nil {
		clauses = append(clauses, `start_at < ?`)
		args = append(args, formatTime(*filter.StartsBefore))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}

	switch filter.Sort {
	case persistence.BookingSortStartDesc:
		query += ` ORDER BY start_at DESC, id`
	default:
		query += ` ORDER BY start_at ASC, id`
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.PageSize, (page-1)*filter.PageSize)
	}

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	bookings, err := collectBookings(rows)
	if err != nil {
		return nil, err
	}
	return r.attachParticipants(ctx, bookings)
}

// ListOverlapping returns bookings in the room whose interval overlaps
// [start, end) and whose state is not in excludeStates.
func (r *BookingRepository) ListOverlapping(ctx context.Context, room string, start, end time.Time, excludeStates []booking.State) ([]persistence.Booking, error) {
	query := `
		SELECT ` + bookingColumns + ` FROM bookings
		WHERE room = ? AND start_at < ? AND end_at > ?
	`
	args := []any{room, formatTime(end), formatTime(start)}

	if len(excludeStates) > 0 {
		query += ` AND state NOT IN (` + placeholders(len(excludeStates)) + `)`
		for _, state := range excludeStates {
			args = append(args, string(state))
		}
	}
	query += ` ORDER BY start_at ASC, id`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	bookings, err := collectBookings(rows)
	if err != nil {
		return nil, err
	}
	return r.attachParticipants(ctx, bookings)
}

func (r *BookingRepository) listParticipants(ctx context.Context, bookingID string) ([]int64, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT employee_id FROM booking_participants
		WHERE booking_id = ? ORDER BY position
	`, bookingID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *BookingRepository) attachParticipants(ctx context.Context, bookings []persistence.Booking) ([]persistence.Booking, error) {
	for i := range bookings {
		ids, err := r.listParticipants(ctx, bookings[i].ID)
		if err != nil {
			return nil, err
		}
		bookings[i].ParticipantIDs = ids
	}
	return bookings, nil
}

func insertBooking(tx *sql.Tx, helper *QueryHelper, b persistence.Booking) error {
	mapper := NewErrorMapper()
	_, err := helper.ExecTx(tx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID,
		b.RequesterID,
		b.Room,
		formatTime(b.Start),
		formatTime(b.End),
		b.Purpose,
		b.Equipment,
		b.Remark,
		string(b.State),
		formatTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
	)
	if err != nil {
		return mapper.MapError(err)
	}
	return nil
}

func replaceParticipants(tx *sql.Tx, helper *QueryHelper, bookingID string, participantIDs []int64) error {
	mapper := NewErrorMapper()

	if _, err := helper.ExecTx(tx,
		`DELETE FROM booking_participants WHERE booking_id = ?`, bookingID); err != nil {
		return mapper.MapError(err)
	}

	seen := make(map[int64]struct{}, len(participantIDs))
	position := 0
	for _, employeeID := range participantIDs {
		if _, ok := seen[employeeID]; ok {
			continue
		}
		seen[employeeID] = struct{}{}

		if _, err := helper.ExecTx(tx, `
			INSERT INTO booking_participants (booking_id, employee_id, position)
			VALUES (?, ?, ?)
		`, bookingID, employeeID, position); err != nil {
			return mapper.MapError(err)
		}
		position++
	}
	return nil
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var (
		b          persistence.Booking
		state      string
		startStr   string
		endStr     string
		createdStr string
		updatedStr string
	)

	err := row.Scan(
		&b.ID,
		&b.RequesterID,
		&b.Room,
		&startStr,
		&endStr,
		&b.Purpose,
		&b.Equipment,
		&b.Remark,
		&state,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return persistence.Booking{}, err
	}

	b.State = booking.State(state)
	if b.Start, err = parseTime(startStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse start_at: %w", err)
	}
	if b.End, err = parseTime(endStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse end_at: %w", err)
	}
	if b.CreatedAt, err = parseTime(createdStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if b.UpdatedAt, err = parseTime(updatedStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return b, nil
}

func collectBookings(rows *sql.Rows) ([]persistence.Booking, error) {
	var bookings []persistence.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
