package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/roombook/internal/application"
)

var (
	errBadRequestBody      = errors.New("รูปแบบคำขอไม่ถูกต้อง")
	errInvalidBookingID    = errors.New("รหัสการจองไม่ถูกต้อง")
	errMissingSessionToken = errors.New("กรุณาเข้าสู่ระบบก่อนใช้งาน")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "คุณไม่มีสิทธิ์ดำเนินการนี้",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "ไม่พบข้อมูลที่ต้องการ"})
	case errors.Is(err, application.ErrConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "BOOKING_CONFLICT",
			Message:   "ห้องประชุมถูกจองในช่วงเวลาดังกล่าวแล้ว",
		})
	case errors.Is(err, application.ErrInvalidTransition):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "BOOKING_INVALID_STATE",
			Message:   "สถานะปัจจุบันของการจองไม่รองรับการดำเนินการนี้",
		})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_INVALID_CREDENTIALS",
			Message:   "อีเมลหรือรหัสผ่านไม่ถูกต้อง",
		})
	case errors.Is(err, application.ErrSessionExpired), errors.Is(err, application.ErrSessionRevoked):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   "เซสชันหมดอายุ กรุณาเข้าสู่ระบบใหม่",
		})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			// Service validation messages are already localized.
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "ข้อมูลที่กรอกไม่ถูกต้อง",
				Errors:  vErr.FieldErrors,
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "เกิดข้อผิดพลาดภายในระบบ"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "รูปแบบคำขอไม่ถูกต้อง"
	case http.StatusUnauthorized:
		return "กรุณาเข้าสู่ระบบก่อนใช้งาน"
	case http.StatusForbidden:
		return "คุณไม่มีสิทธิ์ดำเนินการนี้"
	case http.StatusNotFound:
		return "ไม่พบข้อมูลที่ต้องการ"
	case http.StatusConflict:
		return "คำขอขัดแย้งกับข้อมูลปัจจุบัน"
	case http.StatusUnprocessableEntity:
		return "ข้อมูลที่กรอกไม่ถูกต้อง"
	default:
		return "เกิดข้อผิดพลาดภายในระบบ"
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
