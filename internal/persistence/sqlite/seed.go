package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/roombook/internal/persistence"
)

// SeedDirectory loads the employee directory and its login accounts. The
// directory is reference data owned by the organization, so seeding upserts
// employees and accounts by employee id and leaves unlisted rows alone.
// Password changes go through re-seeding with a fresh hash.
func SeedDirectory(ctx context.Context, pool *ConnectionPool, employees []persistence.Employee, accounts []persistence.Account) error {
	if pool == nil {
		return fmt.Errorf("connection pool is required")
	}

	return pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, employee := range employees {
			if employee.ID <= 0 {
				return fmt.Errorf("employee id must be positive: %+v", employee)
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO employees (id, name, department, title, phone, email)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					name = excluded.name,
					department = excluded.department,
					title = excluded.title,
					phone = excluded.phone,
					email = excluded.email`,
				employee.ID, employee.Name, employee.Department, employee.Title, employee.Phone, employee.Email,
			)
			if err != nil {
				return fmt.Errorf("seed employee %d: %w", employee.ID, err)
			}
		}

		for _, account := range accounts {
			if account.EmployeeID <= 0 || account.Email == "" || account.PasswordHash == "" {
				return fmt.Errorf("account requires employee id, email and password hash: employee %d", account.EmployeeID)
			}
			isAdmin := 0
			if account.IsAdmin {
				isAdmin = 1
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO accounts (employee_id, email, password_hash, is_admin, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(employee_id) DO UPDATE SET
					email = excluded.email,
					password_hash = excluded.password_hash,
					is_admin = excluded.is_admin,
					updated_at = excluded.updated_at`,
				account.EmployeeID, account.Email, account.PasswordHash, isAdmin,
				formatTime(account.CreatedAt), formatTime(account.UpdatedAt),
			)
			if err != nil {
				return fmt.Errorf("seed account for employee %d: %w", account.EmployeeID, err)
			}
		}

		return nil
	})
}
