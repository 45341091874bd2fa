package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

type migrationStep struct {
	version int
	name    string
	sql     string
}

var migrationSteps = []migrationStep{
	{
		version: 1,
		name:    "create_employees",
		sql: `
			CREATE TABLE employees (
				id         INTEGER PRIMARY KEY,
				name       TEXT NOT NULL,
				department TEXT NOT NULL DEFAULT '',
				title      TEXT NOT NULL DEFAULT '',
				phone      TEXT NOT NULL DEFAULT '',
				email      TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX idx_employees_name ON employees (name);
		`,
	},
	{
		version: 2,
		name:    "create_accounts",
		sql: `
			CREATE TABLE accounts (
				employee_id   INTEGER PRIMARY KEY REFERENCES employees (id),
				email         TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				is_admin      INTEGER NOT NULL DEFAULT 0,
				created_at    TEXT NOT NULL,
				updated_at    TEXT NOT NULL
			);
		`,
	},
	{
		version: 3,
		name:    "create_sessions",
		sql: `
			CREATE TABLE sessions (
				id          TEXT PRIMARY KEY,
				employee_id INTEGER NOT NULL REFERENCES employees (id),
				token       TEXT NOT NULL UNIQUE,
				expires_at  TEXT NOT NULL,
				created_at  TEXT NOT NULL,
				updated_at  TEXT NOT NULL,
				revoked_at  TEXT
			);
			CREATE INDEX idx_sessions_employee ON sessions (employee_id);
		`,
	},
	{
		version: 4,
		name:    "create_bookings",
		sql: `
			CREATE TABLE bookings (
				id           TEXT PRIMARY KEY,
				requester_id INTEGER NOT NULL REFERENCES employees (id),
				room         TEXT NOT NULL,
				start_at     TEXT NOT NULL,
				end_at       TEXT NOT NULL,
				purpose      TEXT NOT NULL,
				equipment    TEXT NOT NULL DEFAULT '',
				remark       TEXT NOT NULL DEFAULT '',
				state        TEXT NOT NULL,
				created_at   TEXT NOT NULL,
				updated_at   TEXT NOT NULL,
				CHECK (start_at < end_at),
				CHECK (state IN ('pending', 'approved', 'rejected', 'cancelled'))
			);
			CREATE INDEX idx_bookings_room_start ON bookings (room, start_at);
			CREATE INDEX idx_bookings_requester ON bookings (requester_id);
			CREATE INDEX idx_bookings_state ON bookings (state);
		`,
	},
	{
		version: 5,
		name:    "create_booking_participants",
		sql: `
			CREATE TABLE booking_participants (
				booking_id  TEXT NOT NULL REFERENCES bookings (id) ON DELETE CASCADE,
				employee_id INTEGER NOT NULL REFERENCES employees (id),
				position    INTEGER NOT NULL,
				PRIMARY KEY (booking_id, employee_id)
			);
			CREATE INDEX idx_booking_participants_employee ON booking_participants (employee_id);
		`,
	},
}

// Migrate applies all pending schema migrations in order. Applied versions
// are recorded in schema_migrations; re-running is a no-op.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	_, err := pool.DB().ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	for _, step := range migrationSteps {
		applied, err := migrationApplied(ctx, pool, step.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		err = pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(step.sql); err != nil {
				return fmt.Errorf("migration %d (%s) failed: %w", step.version, step.name, err)
			}
			if _, err := tx.Exec(
				`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`,
				step.version, step.name,
			); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", step.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func migrationApplied(ctx context.Context, pool *ConnectionPool, version int) (bool, error) {
	var count int
	err := pool.DB().QueryRowContext(ctx,
		`SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %d: %w", version, err)
	}
	return count > 0, nil
}
