package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/roombook/internal/persistence"
	"github.com/example/roombook/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool      *sqlite.ConnectionPool
	Employees *sqlite.EmployeeRepository
	Bookings  *sqlite.BookingRepository
	Accounts  *sqlite.AccountRepository
	Sessions  *sqlite.SessionRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a migrated harness over a temporary database
// file. Cleanup is registered with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "roombook.db")

	pool, err := sqlite.NewConnectionPool(path)
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate database: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:      pool,
		Employees: sqlite.NewEmployeeRepository(pool),
		Bookings:  sqlite.NewBookingRepository(pool),
		Accounts:  sqlite.NewAccountRepository(pool),
		Sessions:  sqlite.NewSessionRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedDirectory loads employees and accounts into the harness database.
func (h *SQLiteHarness) SeedDirectory(tb testing.TB, employees []persistence.Employee, accounts []persistence.Account) {
	tb.Helper()

	if err := sqlite.SeedDirectory(context.Background(), h.Pool, employees, accounts); err != nil {
		tb.Fatalf("failed to seed directory: %v", err)
	}
}
