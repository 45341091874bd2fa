package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/roombook/internal/application"
	"github.com/example/roombook/internal/booking"
)

type bookingService interface {
	CreateBooking(ctx context.Context, params application.CreateBookingParams) (application.BookingResult, error)
	GetBooking(ctx context.Context, id string) (application.Booking, error)
	UpdateBooking(ctx context.Context, params application.UpdateBookingParams) (application.BookingResult, error)
	DeleteBooking(ctx context.Context, principal application.Principal, id string) error
	ListBookings(ctx context.Context, params application.ListBookingsParams) ([]application.Booking, error)
	ApproveBooking(ctx context.Context, principal application.Principal, id string) (application.BookingResult, error)
	RejectBooking(ctx context.Context, principal application.Principal, id string) (application.BookingResult, error)
	CancelBooking(ctx context.Context, principal application.Principal, id string) (application.BookingResult, error)
}

type BookingHandler struct {
	service   bookingService
	responder responder
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{service: service, responder: newResponder(defaultLogger(logger))}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	result, err := h.service.CreateBooking(r.Context(), application.CreateBookingParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderResult(r.Context(), w, result, http.StatusCreated)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	record, err := h.service.GetBooking(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(record)})
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	result, err := h.service.UpdateBooking(r.Context(), application.UpdateBookingParams{
		Principal: principal,
		BookingID: id,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderResult(r.Context(), w, result, http.StatusOK)
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteBooking(r.Context(), principal, id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := buildListParams(r.URL.Query(), principal)

	bookings, err := h.service.ListBookings(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: toBookingDTOs(bookings)})
}

// Transition serves the approve, reject and cancel actions under
// /bookings/{id}/{action}.
func (h *BookingHandler) Transition(w http.ResponseWriter, r *http.Request, action string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var (
		result application.BookingResult
		err    error
	)
	switch action {
	case "approve":
		result, err = h.service.ApproveBooking(r.Context(), principal, id)
	case "reject":
		result, err = h.service.RejectBooking(r.Context(), principal, id)
	case "cancel":
		result, err = h.service.CancelBooking(r.Context(), principal, id)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, transitionResponse{
		Success: true,
		Message: result.Warning,
	})
}

func (h *BookingHandler) renderResult(ctx context.Context, w http.ResponseWriter, result application.BookingResult, status int) {
	h.responder.writeJSON(ctx, w, status, bookingResponse{
		Booking: toBookingDTO(result.Booking),
		Warning: result.Warning,
	})
}

type bookingRequest struct {
	Room          string   `json:"room"`
	Date          string   `json:"date"`
	TimeIn        string   `json:"time_in"`
	TimeOut       string   `json:"time_out"`
	Purpose       string   `json:"purpose"`
	CustomPurpose string   `json:"custom_purpose"`
	Equipment     string   `json:"equipment"`
	Remark        string   `json:"remark"`
	Participants  []string `json:"participants"`
}

func (r bookingRequest) toInput() application.BookingInput {
	return application.BookingInput{
		Room:          strings.TrimSpace(r.Room),
		Date:          strings.TrimSpace(r.Date),
		TimeIn:        strings.TrimSpace(r.TimeIn),
		TimeOut:       strings.TrimSpace(r.TimeOut),
		Purpose:       strings.TrimSpace(r.Purpose),
		CustomPurpose: strings.TrimSpace(r.CustomPurpose),
		Equipment:     strings.TrimSpace(r.Equipment),
		Remark:        strings.TrimSpace(r.Remark),
		Participants:  append([]string(nil), r.Participants...),
	}
}

type bookingResponse struct {
	Booking bookingDTO `json:"booking"`
	Warning string     `json:"warning,omitempty"`
}

type transitionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type listBookingsResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

type bookingDTO struct {
	ID            string           `json:"id"`
	RequesterID   int64            `json:"requester_id"`
	RequesterName string           `json:"requester_name"`
	Room          string           `json:"room"`
	Date          string           `json:"date"`
	TimeIn        string           `json:"time_in"`
	TimeOut       string           `json:"time_out"`
	Purpose       string           `json:"purpose"`
	Equipment     string           `json:"equipment,omitempty"`
	Remark        string           `json:"remark,omitempty"`
	State         string           `json:"state"`
	StateLabel    string           `json:"state_label"`
	Participants  []participantDTO `json:"participants"`
	CreatedAt     string           `json:"created_at"`
	UpdatedAt     string           `json:"updated_at"`
}

type participantDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type employeeDTO struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department,omitempty"`
	Title      string `json:"title,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
}

func toEmployeeDTO(employee application.Employee) employeeDTO {
	return employeeDTO{
		ID:         employee.ID,
		Name:       employee.Name,
		Department: employee.Department,
		Title:      employee.Title,
		Phone:      employee.Phone,
		Email:      employee.Email,
	}
}

func toBookingDTO(record application.Booking) bookingDTO {
	participants := make([]participantDTO, 0, len(record.Participants))
	for _, participant := range record.Participants {
		participants = append(participants, participantDTO{ID: participant.ID, Name: participant.Name})
	}

	return bookingDTO{
		ID:            record.ID,
		RequesterID:   record.RequesterID,
		RequesterName: record.RequesterName,
		Room:          record.Room,
		Date:          record.Start.Format("2006-01-02"),
		TimeIn:        record.Start.Format("15:04"),
		TimeOut:       record.End.Format("15:04"),
		Purpose:       record.Purpose,
		Equipment:     record.Equipment,
		Remark:        record.Remark,
		State:         string(record.State),
		StateLabel:    record.StateLabel,
		Participants:  participants,
		CreatedAt:     record.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     record.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toBookingDTOs(records []application.Booking) []bookingDTO {
	out := make([]bookingDTO, 0, len(records))
	for _, record := range records {
		out = append(out, toBookingDTO(record))
	}
	return out
}

func buildListParams(values url.Values, principal application.Principal) application.ListBookingsParams {
	params := application.ListBookingsParams{Principal: principal}

	if state := booking.State(strings.TrimSpace(values.Get("state"))); state != "" && state.Valid() {
		params.State = &state
	}
	if requester := strings.TrimSpace(values.Get("requester")); requester == "me" {
		params.Mine = true
	}
	if from := parseQueryTime(values.Get("from")); from != nil {
		params.From = from
	}
	if to := parseQueryTime(values.Get("to")); to != nil {
		params.To = to
	}
	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 0 {
		params.Page = page
	}
	if size, err := strconv.Atoi(values.Get("page_size")); err == nil && size > 0 {
		params.PageSize = size
	}
	if values.Get("sort") == "start_desc" {
		params.Newest = true
	}

	return params
}

func parseQueryTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return &ts
	}
	if ts, err := time.Parse("2006-01-02", value); err == nil {
		return &ts
	}
	return nil
}
