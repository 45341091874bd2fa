package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/example/roombook/internal/booking"
	"github.com/example/roombook/internal/persistence"
)

// BookingStore captures the persistence interactions needed by the service.
type BookingStore interface {
	CreateBooking(ctx context.Context, b persistence.Booking) error
	GetBooking(ctx context.Context, id string) (persistence.Booking, error)
	UpdateBooking(ctx context.Context, b persistence.Booking) error
	UpdateBookingState(ctx context.Context, id string, state booking.State, updatedAt time.Time) error
	DeleteBooking(ctx context.Context, id string) error
	ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error)
}

// ChangePublisher is told after each mutation which instants were affected so
// connected clients can refresh the matching day and month views.
type ChangePublisher interface {
	PublishBookingChange(ctx context.Context, at ...time.Time)
}

// NotificationKind identifies the lifecycle event behind an email.
type NotificationKind string

const (
	NotificationCreated   NotificationKind = "created"
	NotificationApproved  NotificationKind = "approved"
	NotificationRejected  NotificationKind = "rejected"
	NotificationCancelled NotificationKind = "cancelled"
	NotificationUpdated   NotificationKind = "updated"
)

// Notification carries everything the mail dispatcher needs to compose and
// send a lifecycle email.
type Notification struct {
	Kind       NotificationKind
	Booking    Booking
	Recipients []Employee
}

// Notifier delivers lifecycle notifications. It returns false when delivery
// could not be confirmed; the mutation itself is never rolled back for that.
type Notifier interface {
	Notify(ctx context.Context, n Notification) bool
}

// WarningNotifyFailed is surfaced on otherwise successful results when the
// notification email could not be sent.
const WarningNotifyFailed = "บันทึกข้อมูลสำเร็จ แต่ไม่สามารถส่งอีเมลแจ้งเตือนได้"

// BookingServiceConfig carries the tunable pieces of the booking service.
type BookingServiceConfig struct {
	Rooms       []string
	Location    *time.Location
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// BookingService orchestrates validation, persistence, realtime publication
// and notification for the booking lifecycle.
type BookingService struct {
	store     BookingStore
	directory EmployeeDirectory
	publisher ChangePublisher
	notifier  Notifier

	rooms       []string
	location    *time.Location
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService wires dependencies for booking operations.
func NewBookingService(store BookingStore, directory EmployeeDirectory, publisher ChangePublisher, notifier Notifier, cfg BookingServiceConfig) *BookingService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = func() string { return "" }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &BookingService{
		store:       store,
		directory:   directory,
		publisher:   publisher,
		notifier:    notifier,
		rooms:       cfg.Rooms,
		location:    cfg.Location,
		idGenerator: cfg.IDGenerator,
		now:         cfg.Now,
		logger:      defaultLogger(cfg.Logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CreateBooking validates the request, reserves the slot and fans out the
// created notification. A conflicting active booking yields ErrConflict.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (result BookingResult, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("booking store not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateBooking",
		"requester_id", params.Principal.EmployeeID,
		"room", params.Input.Room,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "booking creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", result.Booking.ID).InfoContext(ctx, "booking created")
	}()

	start, end, purpose, vErr := s.validateInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	participants, err := resolveParticipants(ctx, s.directory, params.Principal.EmployeeID, params.Input.Participants)
	if err != nil {
		return
	}

	now := s.now()
	record := persistence.Booking{
		ID:             s.idGenerator(),
		RequesterID:    params.Principal.EmployeeID,
		Room:           params.Input.Room,
		Start:          start,
		End:            end,
		ParticipantIDs: employeeIDs(participants),
		Purpose:        purpose,
		Equipment:      strings.TrimSpace(params.Input.Equipment),
		Remark:         strings.TrimSpace(params.Input.Remark),
		State:          booking.StatePending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err = mapBookingRepoError(s.store.CreateBooking(ctx, record)); err != nil {
		return
	}

	s.publishChange(ctx, record.Start)

	view := s.toView(record, employeeMap(participants))
	result = BookingResult{Booking: view}
	if !s.notify(ctx, Notification{Kind: NotificationCreated, Booking: view, Recipients: toEmployees(participants)}) {
		result.Warning = WarningNotifyFailed
	}
	return
}

// GetBooking returns the denormalized view of a single booking.
func (s *BookingService) GetBooking(ctx context.Context, id string) (Booking, error) {
	if s == nil || s.store == nil {
		return Booking{}, fmt.Errorf("booking store not configured")
	}

	record, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return Booking{}, mapBookingRepoError(err)
	}

	employees, err := s.loadEmployees(ctx, []persistence.Booking{record})
	if err != nil {
		return Booking{}, err
	}
	return s.toView(record, employees), nil
}

// ApproveBooking moves a pending booking to approved. Approvers only.
func (s *BookingService) ApproveBooking(ctx context.Context, principal Principal, id string) (BookingResult, error) {
	return s.transition(ctx, principal, id, booking.StateApproved, NotificationApproved)
}

// RejectBooking moves a pending booking to rejected. Approvers only.
// Rejected bookings stay on record but no longer occupy the room.
func (s *BookingService) RejectBooking(ctx context.Context, principal Principal, id string) (BookingResult, error) {
	return s.transition(ctx, principal, id, booking.StateRejected, NotificationRejected)
}

// CancelBooking lets the requester withdraw a pending or approved booking.
func (s *BookingService) CancelBooking(ctx context.Context, principal Principal, id string) (BookingResult, error) {
	return s.transition(ctx, principal, id, booking.StateCancelled, NotificationCancelled)
}

func (s *BookingService) transition(ctx context.Context, principal Principal, id string, target booking.State, kind NotificationKind) (result BookingResult, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("booking store not configured")
		return
	}

	logger := s.loggerWith(ctx, "TransitionBooking",
		"booking_id", id,
		"target_state", string(target),
		"principal_id", principal.EmployeeID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "state transition failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "state transition applied")
	}()

	record, err := s.store.GetBooking(ctx, id)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	switch target {
	case booking.StateApproved:
		if !principal.IsAdmin {
			err = ErrUnauthorized
			return
		}
		if !record.State.CanApprove() {
			err = ErrInvalidTransition
			return
		}
	case booking.StateRejected:
		if !principal.IsAdmin {
			err = ErrUnauthorized
			return
		}
		if !record.State.CanReject() {
			err = ErrInvalidTransition
			return
		}
	case booking.StateCancelled:
		if record.RequesterID != principal.EmployeeID {
			err = ErrUnauthorized
			return
		}
		if !record.State.CanCancel() {
			err = ErrInvalidTransition
			return
		}
	default:
		err = ErrInvalidTransition
		return
	}

	updatedAt := s.now()
	if err = mapBookingRepoError(s.store.UpdateBookingState(ctx, id, target, updatedAt)); err != nil {
		return
	}
	record.State = target
	record.UpdatedAt = updatedAt

	s.publishChange(ctx, record.Start)

	employees, err := s.loadEmployees(ctx, []persistence.Booking{record})
	if err != nil {
		return
	}
	view := s.toView(record, employees)

	result = BookingResult{Booking: view}
	if !s.notify(ctx, Notification{Kind: kind, Booking: view, Recipients: recipientsFor(record, employees)}) {
		result.Warning = WarningNotifyFailed
	}
	return
}

// UpdateBooking edits a non-terminal booking. An edit by the requester drops
// the booking back to pending for re-approval; an approver's edit keeps the
// current state. The availability check runs on create only.
func (s *BookingService) UpdateBooking(ctx context.Context, params UpdateBookingParams) (result BookingResult, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("booking store not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateBooking",
		"booking_id", params.BookingID,
		"principal_id", params.Principal.EmployeeID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "booking update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking updated")
	}()

	existing, err := s.store.GetBooking(ctx, params.BookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	principal := params.Principal
	if existing.RequesterID != principal.EmployeeID && !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if existing.State.Terminal() {
		err = ErrInvalidTransition
		return
	}

	start, end, purpose, vErr := s.validateInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	participants, err := resolveParticipants(ctx, s.directory, existing.RequesterID, params.Input.Participants)
	if err != nil {
		return
	}

	updated := existing
	updated.Room = params.Input.Room
	updated.Start = start
	updated.End = end
	updated.ParticipantIDs = employeeIDs(participants)
	updated.Purpose = purpose
	updated.Equipment = strings.TrimSpace(params.Input.Equipment)
	updated.Remark = strings.TrimSpace(params.Input.Remark)
	updated.UpdatedAt = s.now()
	if !principal.IsAdmin {
		updated.State = booking.StatePending
	}

	if err = mapBookingRepoError(s.store.UpdateBooking(ctx, updated)); err != nil {
		return
	}

	s.publishChange(ctx, existing.Start, updated.Start)

	view := s.toView(updated, employeeMap(participants))
	result = BookingResult{Booking: view}
	if !s.notify(ctx, Notification{Kind: NotificationUpdated, Booking: view, Recipients: toEmployees(participants)}) {
		result.Warning = WarningNotifyFailed
	}
	return
}

// DeleteBooking removes a booking entirely. The requester or an approver may
// delete; unlike cancellation this erases the record.
func (s *BookingService) DeleteBooking(ctx context.Context, principal Principal, id string) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("booking store not configured")
	}

	logger := s.loggerWith(ctx, "DeleteBooking",
		"booking_id", id,
		"principal_id", principal.EmployeeID,
	)

	record, err := s.store.GetBooking(ctx, id)
	if err != nil {
		err = mapBookingRepoError(err)
		logger.ErrorContext(ctx, "booking delete failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if record.RequesterID != principal.EmployeeID && !principal.IsAdmin {
		logger.ErrorContext(ctx, "booking delete failed", "error", ErrUnauthorized, "error_kind", ErrorKind(ErrUnauthorized))
		return ErrUnauthorized
	}

	if err := mapBookingRepoError(s.store.DeleteBooking(ctx, id)); err != nil {
		logger.ErrorContext(ctx, "booking delete failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	s.publishChange(ctx, record.Start)

	// The record is gone either way; a failed notification is only logged.
	if employees, lookupErr := s.loadEmployees(ctx, []persistence.Booking{record}); lookupErr == nil {
		view := s.toView(record, employees)
		if !s.notify(ctx, Notification{Kind: NotificationCancelled, Booking: view, Recipients: recipientsFor(record, employees)}) {
			logger.WarnContext(ctx, "booking delete notification unconfirmed")
		}
	}

	logger.InfoContext(ctx, "booking deleted")
	return nil
}

// ListBookings enumerates bookings for dashboards. Mine restricts the listing
// to the principal's own requests.
func (s *BookingService) ListBookings(ctx context.Context, params ListBookingsParams) ([]Booking, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("booking store not configured")
	}

	filter := persistence.BookingFilter{
		State:        params.State,
		StartsAfter:  params.From,
		StartsBefore: params.To,
		Page:         params.Page,
		PageSize:     params.PageSize,
		Sort:         persistence.BookingSortStartAsc,
	}
	if params.Newest {
		filter.Sort = persistence.BookingSortStartDesc
	}
	if params.Mine {
		requesterID := params.Principal.EmployeeID
		filter.RequesterID = &requesterID
	}

	records, err := s.store.ListBookings(ctx, filter)
	if err != nil {
		return nil, mapBookingRepoError(err)
	}
	return s.toViews(ctx, records)
}

// DaySchedule returns the visible bookings for one calendar day. Rejected and
// cancelled bookings are not part of the public schedule.
func (s *BookingService) DaySchedule(ctx context.Context, date string) ([]Booking, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("booking store not configured")
	}

	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), s.location)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("date", "รูปแบบวันที่ไม่ถูกต้อง")
		return nil, vErr
	}

	return s.scheduleWindow(ctx, day, day.AddDate(0, 0, 1))
}

// MonthSchedule returns the visible bookings for one calendar month.
func (s *BookingService) MonthSchedule(ctx context.Context, year int, month time.Month) ([]Booking, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("booking store not configured")
	}
	if year < 1 || month < time.January || month > time.December {
		vErr := &ValidationError{}
		vErr.add("month", "รูปแบบเดือนไม่ถูกต้อง")
		return nil, vErr
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, s.location)
	return s.scheduleWindow(ctx, first, first.AddDate(0, 1, 0))
}

func (s *BookingService) scheduleWindow(ctx context.Context, from, to time.Time) ([]Booking, error) {
	records, err := s.store.ListBookings(ctx, persistence.BookingFilter{
		StartsAfter:  &from,
		StartsBefore: &to,
		Sort:         persistence.BookingSortStartAsc,
	})
	if err != nil {
		return nil, mapBookingRepoError(err)
	}

	visible := records[:0:0]
	for _, record := range records {
		if record.State.Terminal() {
			continue
		}
		visible = append(visible, record)
	}
	return s.toViews(ctx, visible)
}

func (s *BookingService) validateInput(input BookingInput) (start, end time.Time, purpose string, vErr *ValidationError) {
	vErr = &ValidationError{}

	room := strings.TrimSpace(input.Room)
	if room == "" {
		vErr.add("room", "กรุณาเลือกห้องประชุม")
	} else if len(s.rooms) > 0 && !slices.Contains(s.rooms, room) {
		vErr.add("room", "ไม่พบห้องประชุมที่เลือก")
	}

	day, dayErr := time.ParseInLocation("2006-01-02", strings.TrimSpace(input.Date), s.location)
	if dayErr != nil {
		vErr.add("date", "รูปแบบวันที่ไม่ถูกต้อง")
	}

	timeIn, inErr := time.Parse("15:04", strings.TrimSpace(input.TimeIn))
	if inErr != nil {
		vErr.add("time_in", "รูปแบบเวลาเริ่มไม่ถูกต้อง")
	}
	timeOut, outErr := time.Parse("15:04", strings.TrimSpace(input.TimeOut))
	if outErr != nil {
		vErr.add("time_out", "รูปแบบเวลาสิ้นสุดไม่ถูกต้อง")
	}

	if dayErr == nil && inErr == nil && outErr == nil {
		start = time.Date(day.Year(), day.Month(), day.Day(), timeIn.Hour(), timeIn.Minute(), 0, 0, s.location)
		end = time.Date(day.Year(), day.Month(), day.Day(), timeOut.Hour(), timeOut.Minute(), 0, 0, s.location)
		if !start.Before(end) {
			vErr.add("time", "เวลาเริ่มต้องมาก่อนเวลาสิ้นสุด")
		}
	}

	purpose = strings.TrimSpace(input.Purpose)
	if purpose == "" {
		vErr.add("purpose", "กรุณาระบุวัตถุประสงค์")
	} else if purpose == PurposeOther {
		custom := strings.TrimSpace(input.CustomPurpose)
		if custom == "" {
			vErr.add("custom_purpose", "กรุณาระบุวัตถุประสงค์เพิ่มเติม")
		}
		purpose = custom
	}

	return start, end, purpose, vErr
}

func (s *BookingService) publishChange(ctx context.Context, at ...time.Time) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishBookingChange(ctx, at...)
}

func (s *BookingService) notify(ctx context.Context, n Notification) bool {
	if s.notifier == nil {
		return true
	}
	return s.notifier.Notify(ctx, n)
}

func (s *BookingService) loadEmployees(ctx context.Context, records []persistence.Booking) (map[int64]persistence.Employee, error) {
	if s.directory == nil {
		return nil, nil
	}

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

	employees, err := s.directory.ListEmployeesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return employeeMap(employees), nil
}

func (s *BookingService) toViews(ctx context.Context, records []persistence.Booking) ([]Booking, error) {
	employees, err := s.loadEmployees(ctx, records)
	if err != nil {
		return nil, err
	}

	views := make([]Booking, 0, len(records))
	for _, record := range records {
		views = append(views, s.toView(record, employees))
	}
	return views, nil
}

func (s *BookingService) toView(record persistence.Booking, employees map[int64]persistence.Employee) Booking {
	view := Booking{
		ID:          record.ID,
		RequesterID: record.RequesterID,
		Room:        record.Room,
		Start:       record.Start.In(s.location),
		End:         record.End.In(s.location),
		Purpose:     record.Purpose,
		Equipment:   record.Equipment,
		Remark:      record.Remark,
		State:       record.State,
		StateLabel:  record.State.Label(),
		CreatedAt:   record.CreatedAt.In(s.location),
		UpdatedAt:   record.UpdatedAt.In(s.location),
	}
	if requester, ok := employees[record.RequesterID]; ok {
		view.RequesterName = requester.Name
	}
	for _, id := range record.ParticipantIDs {
		participant := Participant{ID: id}
		if employee, ok := employees[id]; ok {
			participant.Name = employee.Name
		}
		view.Participants = append(view.Participants, participant)
	}
	return view
}

func recipientsFor(record persistence.Booking, employees map[int64]persistence.Employee) []Employee {
	ids := append([]int64{record.RequesterID}, record.ParticipantIDs...)
	seen := make(map[int64]struct{}, len(ids))
	var recipients []Employee
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if employee, ok := employees[id]; ok {
			recipients = append(recipients, toEmployee(employee))
		}
	}
	return recipients
}

func employeeIDs(employees []persistence.Employee) []int64 {
	ids := make([]int64, 0, len(employees))
	for _, employee := range employees {
		ids = append(ids, employee.ID)
	}
	return ids
}

func employeeMap(employees []persistence.Employee) map[int64]persistence.Employee {
	m := make(map[int64]persistence.Employee, len(employees))
	for _, employee := range employees {
		m[employee.ID] = employee
	}
	return m
}

func toEmployees(records []persistence.Employee) []Employee {
	employees := make([]Employee, 0, len(records))
	for _, record := range records {
		employees = append(employees, toEmployee(record))
	}
	return employees
}

func mapBookingRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConflict) {
		return ErrConflict
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("time", "เวลาเริ่มต้องมาก่อนเวลาสิ้นสุด")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("participants", "ไม่พบรายชื่อในระบบ")
		return vErr
	}
	return err
}
