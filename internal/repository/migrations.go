package repository

import (
	"database/sql"
	"fmt"
)

type migration struct {
	version  int
	name     string
	sqlite   string
	postgres string
}

// Migrations are append-only; each entry holds the DDL for both dialects.
var migrations = []migration{
	{
		version: 1,
		name:    "create_posts_table",
		sqlite: `
			CREATE TABLE IF NOT EXISTS posts (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				text TEXT NOT NULL,
				media TEXT NOT NULL DEFAULT '[]',
				platforms TEXT NOT NULL,
				scheduled_for TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'draft',
				post_results TEXT,
				error_message TEXT,
				posted_at TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_posts_status_scheduled_for
			ON posts(status, scheduled_for, id);
		`,
		postgres: `
			CREATE TABLE IF NOT EXISTS posts (
				id BIGSERIAL PRIMARY KEY,
				text TEXT NOT NULL,
				media TEXT NOT NULL DEFAULT '[]',
				platforms TEXT NOT NULL,
				scheduled_for TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'draft',
				post_results TEXT,
				error_message TEXT,
				posted_at TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_posts_status_scheduled_for
			ON posts(status, scheduled_for, id);
		`,
	},
	{
		version: 2,
		name:    "create_campaigns_tables",
		sqlite: `
			CREATE TABLE IF NOT EXISTS campaigns (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				start_date TEXT NOT NULL DEFAULT '',
				end_date TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'active',
				created_at TEXT NOT NULL
			);
			CREATE TABLE IF NOT EXISTS post_campaigns (
				post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
				campaign_id INTEGER NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
				PRIMARY KEY (post_id, campaign_id)
			);
		`,
		postgres: `
			CREATE TABLE IF NOT EXISTS campaigns (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				start_date TEXT NOT NULL DEFAULT '',
				end_date TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'active',
				created_at TEXT NOT NULL
			);
			CREATE TABLE IF NOT EXISTS post_campaigns (
				post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
				campaign_id BIGINT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
				PRIMARY KEY (post_id, campaign_id)
			);
		`,
	},
	{
		version: 3,
		name:    "create_publish_history_table",
		sqlite: `
			CREATE TABLE IF NOT EXISTS publish_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
				platform TEXT NOT NULL,
				success INTEGER NOT NULL DEFAULT 0,
				external_id TEXT NOT NULL DEFAULT '',
				error_kind TEXT NOT NULL DEFAULT '',
				error_message TEXT NOT NULL DEFAULT '',
				attempts INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_publish_history_post_id ON publish_history(post_id, id);
		`,
		postgres: `
			CREATE TABLE IF NOT EXISTS publish_history (
				id BIGSERIAL PRIMARY KEY,
				post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
				platform TEXT NOT NULL,
				success INTEGER NOT NULL DEFAULT 0,
				external_id TEXT NOT NULL DEFAULT '',
				error_kind TEXT NOT NULL DEFAULT '',
				error_message TEXT NOT NULL DEFAULT '',
				attempts INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_publish_history_post_id ON publish_history(post_id, id);
		`,
	},
}

// Migrate applies pending migrations for the dialect. Each migration runs in
// its own transaction and is recorded in schema_migrations.
func Migrate(db *sql.DB, dialect Dialect) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	currentVersion := 0
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		stmt := m.sqlite
		if dialect == DialectPostgres {
			stmt = m.postgres
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec(stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.version, m.name, err)
		}

		if _, err := tx.Exec(rebind(dialect, "INSERT INTO schema_migrations (version, name) VALUES (?, ?)"), m.version, m.name); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}
	}

	return nil
}
