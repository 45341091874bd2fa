package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/roombook/internal/realtime"
)

var (
	errInvalidScheduleDate  = errors.New("รูปแบบวันที่ไม่ถูกต้อง ต้องเป็น YYYY-MM-DD")
	errInvalidScheduleMonth = errors.New("ปีหรือเดือนไม่ถูกต้อง")
)

type scheduleSource interface {
	Day(ctx context.Context, date string) ([]realtime.BookingEntry, error)
	Month(ctx context.Context, year int, month time.Month) ([]realtime.BookingEntry, error)
}

// ScheduleHandler serves the denormalized day and month snapshots used by the
// kiosk display. It reads from the same cached builder the realtime hub uses,
// so polling clients and websocket subscribers see identical payloads.
type ScheduleHandler struct {
	source    scheduleSource
	responder responder
}

func NewScheduleHandler(source scheduleSource, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{source: source, responder: newResponder(defaultLogger(logger))}
}

// Day serves GET /schedule/api/schedule?date=YYYY-MM-DD.
func (h *ScheduleHandler) Day(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.source == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if _, err := time.Parse("2006-01-02", date); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleDate)
		return
	}

	entries, err := h.source.Day(r.Context(), date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, dayScheduleResponse{
		Date:     date,
		Bookings: entriesOrEmpty(entries),
	})
}

// Month serves GET /schedule/api/meetings?year=&month=.
func (h *ScheduleHandler) Month(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.source == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	year, errYear := strconv.Atoi(r.URL.Query().Get("year"))
	month, errMonth := strconv.Atoi(r.URL.Query().Get("month"))
	if errYear != nil || errMonth != nil || year < 1 || month < 1 || month > 12 {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleMonth)
		return
	}

	entries, err := h.source.Month(r.Context(), year, time.Month(month))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, monthScheduleResponse{
		Year:     year,
		Month:    month,
		Meetings: entriesOrEmpty(entries),
	})
}

func entriesOrEmpty(entries []realtime.BookingEntry) []realtime.BookingEntry {
	if entries == nil {
		return []realtime.BookingEntry{}
	}
	return entries
}

type dayScheduleResponse struct {
	Date     string                  `json:"date"`
	Bookings []realtime.BookingEntry `json:"bookings"`
}

type monthScheduleResponse struct {
	Year     int                     `json:"year"`
	Month    int                     `json:"month"`
	Meetings []realtime.BookingEntry `json:"meetings"`
}
