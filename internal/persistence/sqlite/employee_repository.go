package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/example/roombook/internal/persistence"
)

// EmployeeRepository implements persistence.EmployeeRepository using SQLite.
// The employee table is read-only from this service's point of view.
type EmployeeRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewEmployeeRepository creates a new SQLite employee repository.
func NewEmployeeRepository(pool *ConnectionPool) *EmployeeRepository {
	return &EmployeeRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const employeeColumns = `id, name, department, title, phone, email`

// GetEmployee retrieves an employee by ID.
func (r *EmployeeRepository) GetEmployee(ctx context.Context, id int64) (persistence.Employee, error) {
	row := r.helper.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)

	employee, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Employee{}, persistence.ErrNotFound
		}
		return persistence.Employee{}, r.mapper.MapError(err)
	}
	return employee, nil
}

// ListEmployeesByIDs retrieves all employees whose IDs appear in ids.
// Missing IDs are silently omitted; the caller decides whether that matters.
func (r *EmployeeRepository) ListEmployeesByIDs(ctx context.Context, ids []int64) ([]persistence.Employee, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id IN (` +
		placeholders(len(ids)) + `) ORDER BY id`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	return collectEmployees(rows)
}

// ListEmployeesByNames retrieves all employees whose exact name appears in
// names. Duplicate names return every matching record.
func (r *EmployeeRepository) ListEmployeesByNames(ctx context.Context, names []string) ([]persistence.Employee, error) {
	if len(names) == 0 {
		return nil, nil
	}

	args := make([]any, len(names))
	for i, name := range names {
		args[i] = strings.TrimSpace(name)
	}

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE name IN (` +
		placeholders(len(names)) + `) ORDER BY id`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	return collectEmployees(rows)
}

// SearchEmployees returns employees whose name contains query, ordered by
// name. A numeric query additionally matches employee ids by prefix. A
// limit <= 0 returns all matches.
func (r *EmployeeRepository) SearchEmployees(ctx context.Context, query string, limit int) ([]persistence.Employee, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, nil
	}

	where := `name LIKE ? ESCAPE '\'`
	args := []any{"%" + escapeLike(trimmed) + "%"}
	if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		where += ` OR CAST(id AS TEXT) LIKE ?`
		args = append(args, trimmed+"%")
	}

	sqlQuery := `SELECT ` + employeeColumns + ` FROM employees WHERE ` + where + ` ORDER BY name, id`
	if limit > 0 {
		sqlQuery += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.helper.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	return collectEmployees(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (persistence.Employee, error) {
	var e persistence.Employee
	err := row.Scan(&e.ID, &e.Name, &e.Department, &e.Title, &e.Phone, &e.Email)
	return e, err
}

func collectEmployees(rows *sql.Rows) ([]persistence.Employee, error) {
	var employees []persistence.Employee
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}
	return employees, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}
