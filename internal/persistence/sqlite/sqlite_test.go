package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/roombook/internal/persistence"
)

func openTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	pool, err := NewConnectionPool(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	if err := Migrate(context.Background(), pool); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return pool
}

func seedEmployee(t *testing.T, pool *ConnectionPool, id int64, name string) {
	t.Helper()

	_, err := pool.DB().Exec(`
		INSERT INTO employees (id, name, department, title, phone, email)
		VALUES (?, ?, 'ฝ่ายบริหาร', '', '', ?)
	`, id, name, name+"@example.co.th")
	if err != nil {
		t.Fatalf("failed to seed employee %d: %v", id, err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()

	pool := openTestPool(t)
	if err := pool.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	if err := Migrate(context.Background(), pool); err != nil {
		t.Fatalf("second migration run failed: %v", err)
	}
}

func TestWithRetry_RecoversFromTransientLock(t *testing.T) {
	t.Parallel()

	helper := NewRetryHelper(RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      4 * time.Millisecond,
		BackoffFactor: 2.0,
	})

	attempts := 0
	err := helper.WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry failed: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}

	// Domain errors are not transient and must surface immediately.
	attempts = 0
	err = helper.WithRetry(context.Background(), func() error {
		attempts++
		return persistence.ErrConflict
	})
	if !errors.Is(err, persistence.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	t.Parallel()

	pool := openTestPool(t)
	seedEmployee(t, pool, 1, "สมชาย ใจดี")
	repo := NewSessionRepository(pool)
	ctx := context.Background()

	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	session := persistence.Session{
		ID:         "sess-1",
		EmployeeID: 1,
		Token:      "token-abc",
		ExpiresAt:  now.Add(24 * time.Hour),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := repo.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := repo.GetSession(ctx, "token-abc")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.EmployeeID != 1 || !got.ExpiresAt.Equal(session.ExpiresAt) {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.RevokedAt != nil {
		t.Fatal("new session must not be revoked")
	}

	revokedAt := now.Add(time.Hour)
	if err := repo.RevokeSession(ctx, "token-abc", revokedAt); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}

	got, err = repo.GetSession(ctx, "token-abc")
	if err != nil {
		t.Fatalf("GetSession after revoke failed: %v", err)
	}
	if got.RevokedAt == nil || !got.RevokedAt.Equal(revokedAt) {
		t.Fatalf("expected revoked_at %v, got %v", revokedAt, got.RevokedAt)
	}

	if err := repo.DeleteExpiredSessions(ctx, now.Add(48*time.Hour)); err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if _, err := repo.GetSession(ctx, "token-abc"); err != persistence.ErrNotFound {
		t.Fatalf("expected ErrNotFound after expiry cleanup, got %v", err)
	}
}

func TestSessionRepository_DuplicateToken(t *testing.T) {
	t.Parallel()

	pool := openTestPool(t)
	seedEmployee(t, pool, 1, "สมชาย ใจดี")
	repo := NewSessionRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC()
	base := persistence.Session{
		ID:         "sess-1",
		EmployeeID: 1,
		Token:      "token-dup",
		ExpiresAt:  now.Add(time.Hour),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := repo.CreateSession(ctx, base); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	dup := base
	dup.ID = "sess-2"
	if _, err := repo.CreateSession(ctx, dup); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestEmployeeRepository_Lookups(t *testing.T) {
	t.Parallel()

	pool := openTestPool(t)
	seedEmployee(t, pool, 1, "สมชาย ใจดี")
	seedEmployee(t, pool, 2, "สมหญิง รักงาน")
	seedEmployee(t, pool, 3, "วิชัย สุขใจ")
	repo := NewEmployeeRepository(pool)
	ctx := context.Background()

	got, err := repo.GetEmployee(ctx, 2)
	if err != nil {
		t.Fatalf("GetEmployee failed: %v", err)
	}
	if got.Name != "สมหญิง รักงาน" {
		t.Fatalf("unexpected employee: %+v", got)
	}

	if _, err := repo.GetEmployee(ctx, 99); err != persistence.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	byIDs, err := repo.ListEmployeesByIDs(ctx, []int64{1, 3, 99})
	if err != nil {
		t.Fatalf("ListEmployeesByIDs failed: %v", err)
	}
	if len(byIDs) != 2 {
		t.Fatalf("expected 2 employees, got %d", len(byIDs))
	}

	byNames, err := repo.ListEmployeesByNames(ctx, []string{"สมชาย ใจดี", "ไม่มีคนนี้"})
	if err != nil {
		t.Fatalf("ListEmployeesByNames failed: %v", err)
	}
	if len(byNames) != 1 || byNames[0].ID != 1 {
		t.Fatalf("unexpected name lookup result: %+v", byNames)
	}

	matches, err := repo.SearchEmployees(ctx, "สม", 10)
	if err != nil {
		t.Fatalf("SearchEmployees failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches for prefix, got %d", len(matches))
	}

	if matches, err = repo.SearchEmployees(ctx, "   ", 10); err != nil || matches != nil {
		t.Fatalf("blank query must return nothing, got %v, %v", matches, err)
	}
}

func TestEmployeeRepository_SearchByNumericQuery(t *testing.T) {
	t.Parallel()

	pool := openTestPool(t)
	seedEmployee(t, pool, 101, "สมชาย ใจดี")
	seedEmployee(t, pool, 1012, "สมหญิง รักงาน")
	seedEmployee(t, pool, 205, "วิชัย สุขใจ")
	repo := NewEmployeeRepository(pool)
	ctx := context.Background()

	// An id digit string matches employee ids by prefix even though the
	// digits appear in no name.
	matches, err := repo.SearchEmployees(ctx, "101", 10)
	if err != nil {
		t.Fatalf("SearchEmployees failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected ids 101 and 1012, got %+v", matches)
	}
	for _, m := range matches {
		if m.ID != 101 && m.ID != 1012 {
			t.Fatalf("unexpected match: %+v", m)
		}
	}

	matches, err = repo.SearchEmployees(ctx, "205", 10)
	if err != nil {
		t.Fatalf("SearchEmployees failed: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != 205 {
		t.Fatalf("expected exact id match, got %+v", matches)
	}

	if matches, err = repo.SearchEmployees(ctx, "9", 10); err != nil || matches != nil {
		t.Fatalf("unmatched numeric query must return nothing, got %v, %v", matches, err)
	}
}

func TestAccountRepository_GetByEmail(t *testing.T) {
	t.Parallel()

	pool := openTestPool(t)
	seedEmployee(t, pool, 1, "สมชาย ใจดี")

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := pool.DB().Exec(`
		INSERT INTO accounts (employee_id, email, password_hash, is_admin, created_at, updated_at)
		VALUES (1, 'Somchai@Example.co.th', 'hash', 1, ?, ?)
	`, now, now)
	if err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}

	repo := NewAccountRepository(pool)
	ctx := context.Background()

	account, err := repo.GetAccountByEmail(ctx, "somchai@example.co.th")
	if err != nil {
		t.Fatalf("GetAccountByEmail failed: %v", err)
	}
	if account.EmployeeID != 1 || !account.IsAdmin {
		t.Fatalf("unexpected account: %+v", account)
	}

	if _, err := repo.GetAccountByEmail(ctx, "missing@example.co.th"); err != persistence.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	account, err = repo.GetAccount(ctx, 1)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if account.Email != "Somchai@Example.co.th" {
		t.Fatalf("unexpected email: %s", account.Email)
	}
}
