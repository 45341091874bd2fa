package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/roombook/internal/persistence"
)

// AccountRepository implements persistence.AccountRepository using SQLite.
type AccountRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAccountRepository creates a new SQLite account repository.
func NewAccountRepository(pool *ConnectionPool) *AccountRepository {
	return &AccountRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const accountColumns = `employee_id, email, password_hash, is_admin, created_at, updated_at`

// GetAccountByEmail retrieves an account by its email address. Lookups are
// case-insensitive.
func (r *AccountRepository) GetAccountByEmail(ctx context.Context, email string) (persistence.Account, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return persistence.Account{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE lower(email) = ?`, normalized)
	return r.scanAccount(row)
}

// GetAccount retrieves the account attached to an employee.
func (r *AccountRepository) GetAccount(ctx context.Context, employeeID int64) (persistence.Account, error) {
	row := r.helper.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE employee_id = ?`, employeeID)
	return r.scanAccount(row)
}

func (r *AccountRepository) scanAccount(row *sql.Row) (persistence.Account, error) {
	var (
		account    persistence.Account
		isAdmin    int
		createdStr string
		updatedStr string
	)

	err := row.Scan(
		&account.EmployeeID,
		&account.Email,
		&account.PasswordHash,
		&isAdmin,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Account{}, persistence.ErrNotFound
		}
		return persistence.Account{}, r.mapper.MapError(err)
	}

	account.IsAdmin = isAdmin != 0
	if account.CreatedAt, err = parseTime(createdStr); err != nil {
		return persistence.Account{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if account.UpdatedAt, err = parseTime(updatedStr); err != nil {
		return persistence.Account{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return account, nil
}
