package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations holds the ordered schema history. Each entry runs at most
// once; applied versions are tracked in schema_migrations.
var migrations = []struct {
	version int
	name    string
	stmts   []string
}{
	{
		version: 1,
		name:    "core tables",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				display_name TEXT NOT NULL,
				mobile TEXT,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL CHECK (role IN ('admin', 'user')),
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS sports (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				description TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS schedules (
				id TEXT PRIMARY KEY,
				sport_id TEXT NOT NULL REFERENCES sports(id),
				venue TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT NOT NULL
					CHECK (end_time > start_time),
				max_players INTEGER NOT NULL
					CHECK (max_players BETWEEN 1 AND 100),
				equipment TEXT,
				created_by_admin_id TEXT NOT NULL REFERENCES users(id),
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_schedules_start_time ON schedules(start_time)`,
			`CREATE INDEX IF NOT EXISTS idx_schedules_sport_id ON schedules(sport_id)`,
			`CREATE INDEX IF NOT EXISTS idx_schedules_venue ON schedules(venue COLLATE NOCASE)`,
		},
	},
	{
		version: 2,
		name:    "bookings",
		stmts: []string{
			// A row holds either a registered user or a guest, never
			// both and never neither.
			`CREATE TABLE IF NOT EXISTS bookings (
				id TEXT PRIMARY KEY,
				schedule_id TEXT NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
				user_id TEXT REFERENCES users(id),
				guest_name TEXT,
				guest_mobile TEXT,
				created_at TEXT NOT NULL,
				CHECK ((user_id IS NULL) <> (guest_name IS NULL))
			)`,
			// One spot per user per schedule. Guests are exempt, so the
			// index is partial.
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_user_once
				ON bookings(schedule_id, user_id) WHERE user_id IS NOT NULL`,
			`CREATE INDEX IF NOT EXISTS idx_bookings_schedule_id ON bookings(schedule_id)`,
		},
	},
	{
		version: 3,
		name:    "revoked tokens",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS revoked_tokens (
				token TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				revoked_at TEXT NOT NULL,
				expires_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_revoked_tokens_expires_at ON revoked_tokens(expires_at)`,
		},
	},
}

// migrate brings the schema up to the latest version. Each migration
// runs in its own transaction, so a failure leaves the recorded version
// consistent with the applied statements.
func (cp *ConnectionPool) migrate(ctx context.Context) error {
	_, err := cp.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current sql.NullInt64
	if err := cp.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if current.Valid && m.version <= int(current.Int64) {
			continue
		}
		err := cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
				}
			}
			_, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}
