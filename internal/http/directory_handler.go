package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/roombook/internal/application"
)

type directoryService interface {
	Search(ctx context.Context, query string) ([]application.Employee, error)
}

type DirectoryHandler struct {
	service   directoryService
	responder responder
}

func NewDirectoryHandler(service directoryService, logger *slog.Logger) *DirectoryHandler {
	return &DirectoryHandler{service: service, responder: newResponder(defaultLogger(logger))}
}

// Search serves GET /employees?query= for the participant picker.
func (h *DirectoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	employees, err := h.service.Search(r.Context(), query)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]employeeDTO, 0, len(employees))
	for _, employee := range employees {
		out = append(out, toEmployeeDTO(employee))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEmployeesResponse{Employees: out})
}

type listEmployeesResponse struct {
	Employees []employeeDTO `json:"employees"`
}
