// Package migrations applies the disposition schema to a Postgres or
// MySQL database, numbered and run in order the way the teacher's
// sqlite migrations package grew the bead schema incrementally.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one forward-only schema step. Postgres and MySQL often
// need different DDL (SERIAL vs AUTO_INCREMENT, JSONB vs JSON, FILTER
// support, etc.) so each migration carries both dialect's statements.
type Migration struct {
	Version  int
	Name     string
	Postgres string
	MySQL    string
}

// All is the ordered migration set. Add new entries at the end; never
// edit or reorder an already-released one.
var All = []Migration{
	migration001Companies,
	migration002Contacts,
	migration003DispositionHistory,
	migration004OwnershipChanges,
	migration005CampaignAssignments,
	migration006TAMSnapshots,
	migration007BridgeJobs,
}

const createMigrationsTablePostgres = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createMigrationsTableMySQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Dialect picks which of Migration's two DDL strings and which
// migrations-table DDL to use. It mirrors the seam used elsewhere in
// the store layer (internal/eligibility.Dialect) rather than
// introducing a parallel one.
type Dialect int

const (
	Postgres Dialect = iota
	MySQL
)

// Run applies every migration in All that isn't already recorded in
// schema_migrations, in order, each inside its own transaction.
func Run(ctx context.Context, db *sql.DB, d Dialect) error {
	createTable := createMigrationsTablePostgres
	if d == MySQL {
		createTable = createMigrationsTableMySQL
	}
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[int]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, m := range All {
		if applied[m.Version] {
			continue
		}
		stmt := m.Postgres
		if d == MySQL {
			stmt = m.MySQL
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		recordQuery := `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`
		if d == MySQL {
			recordQuery = `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`
		}
		if _, err := tx.ExecContext(ctx, recordQuery, m.Version, m.Name); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}
