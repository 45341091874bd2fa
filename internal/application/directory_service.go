package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/roombook/internal/persistence"
)

// EmployeeDirectory captures the read-only directory lookups used by services.
type EmployeeDirectory interface {
	GetEmployee(ctx context.Context, id int64) (persistence.Employee, error)
	ListEmployeesByIDs(ctx context.Context, ids []int64) ([]persistence.Employee, error)
	ListEmployeesByNames(ctx context.Context, names []string) ([]persistence.Employee, error)
	SearchEmployees(ctx context.Context, query string, limit int) ([]persistence.Employee, error)
}

// DirectoryService exposes employee directory lookups to the outer layers.
type DirectoryService struct {
	directory   EmployeeDirectory
	searchLimit int
	logger      *slog.Logger
}

// NewDirectoryService wires dependencies for directory lookups.
func NewDirectoryService(directory EmployeeDirectory, searchLimit int, logger *slog.Logger) *DirectoryService {
	if searchLimit <= 0 {
		searchLimit = 20
	}
	return &DirectoryService{
		directory:   directory,
		searchLimit: searchLimit,
		logger:      defaultLogger(logger),
	}
}

func (s *DirectoryService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DirectoryService", operation, attrs...)
}

// GetEmployee retrieves a single directory entry.
func (s *DirectoryService) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	if s == nil || s.directory == nil {
		return Employee{}, fmt.Errorf("directory not configured")
	}

	record, err := s.directory.GetEmployee(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, err
	}
	return toEmployee(record), nil
}

// Search returns directory entries whose name contains query, for the
// participant picker. A numeric query also matches employee ids by prefix.
// A blank query returns nothing.
func (s *DirectoryService) Search(ctx context.Context, query string) ([]Employee, error) {
	if s == nil || s.directory == nil {
		return nil, fmt.Errorf("directory not configured")
	}

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "Search", "query_length", len(trimmed))

	records, err := s.directory.SearchEmployees(ctx, trimmed, s.searchLimit)
	if err != nil {
		logger.ErrorContext(ctx, "directory search failed", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	employees := make([]Employee, 0, len(records))
	for _, record := range records {
		employees = append(employees, toEmployee(record))
	}
	return employees, nil
}

func toEmployee(record persistence.Employee) Employee {
	return Employee{
		ID:         record.ID,
		Name:       record.Name,
		Department: record.Department,
		Title:      record.Title,
		Phone:      record.Phone,
		Email:      record.Email,
	}
}

// resolveParticipants turns caller supplied participant strings into directory
// records. The requester is always part of the resolved set, listed first; a
// requester absent from the directory is NotFound. Unknown participant
// references produce a field level validation error.
func resolveParticipants(ctx context.Context, directory EmployeeDirectory, requesterID int64, values []string) ([]persistence.Employee, error) {
	refs := make([]ParticipantRef, 0, len(values))
	var invalid []string
	for _, value := range values {
		ref, ok := ParseParticipantRef(value)
		if !ok {
			if strings.TrimSpace(value) != "" {
				invalid = append(invalid, strings.TrimSpace(value))
			}
			continue
		}
		refs = append(refs, ref)
	}

	if len(invalid) > 0 {
		vErr := &ValidationError{}
		vErr.add("participants", fmt.Sprintf("ไม่สามารถอ่านรายชื่อผู้เข้าร่วม: %s", strings.Join(invalid, ", ")))
		return nil, vErr
	}

	ids := []int64{requesterID}
	var names []string
	for _, ref := range refs {
		if ref.ByID() {
			ids = append(ids, ref.ID)
		} else {
			names = append(names, ref.Name)
		}
	}

	byID, err := directory.ListEmployeesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	var byName []persistence.Employee
	if len(names) > 0 {
		byName, err = directory.ListEmployeesByNames(ctx, names)
		if err != nil {
			return nil, err
		}
	}

	found := make(map[int64]persistence.Employee, len(byID)+len(byName))
	foundNames := make(map[string]struct{}, len(byName))
	for _, record := range byID {
		found[record.ID] = record
	}
	for _, record := range byName {
		found[record.ID] = record
		foundNames[record.Name] = struct{}{}
	}

	if _, ok := found[requesterID]; !ok {
		return nil, ErrNotFound
	}

	var missing []string
	for _, ref := range refs {
		if ref.ByID() {
			if _, ok := found[ref.ID]; !ok {
				missing = append(missing, fmt.Sprintf("id:%d", ref.ID))
			}
			continue
		}
		if _, ok := foundNames[ref.Name]; !ok {
			missing = append(missing, ref.Name)
		}
	}
	if len(missing) > 0 {
		vErr := &ValidationError{}
		vErr.add("participants", fmt.Sprintf("ไม่พบรายชื่อในระบบ: %s", strings.Join(missing, ", ")))
		return nil, vErr
	}

	// Requester first, then the remaining participants in request order.
	ordered := make([]persistence.Employee, 0, len(found))
	seen := map[int64]struct{}{requesterID: {}}
	ordered = append(ordered, found[requesterID])
	appendRecord := func(record persistence.Employee) {
		if _, ok := seen[record.ID]; ok {
			return
		}
		seen[record.ID] = struct{}{}
		ordered = append(ordered, record)
	}
	for _, ref := range refs {
		if ref.ByID() {
			appendRecord(found[ref.ID])
			continue
		}
		for _, record := range byName {
			if record.Name == ref.Name {
				appendRecord(record)
			}
		}
	}
	return ordered, nil
}
