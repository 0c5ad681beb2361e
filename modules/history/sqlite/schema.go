package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS issued_links (
		token      TEXT    PRIMARY KEY,
		chat_id    INTEGER NOT NULL,
		file_name  TEXT    NOT NULL DEFAULT '',
		media_type TEXT    NOT NULL DEFAULT '',
		file_size  INTEGER NOT NULL DEFAULT 0,
		issued_at  TEXT    NOT NULL,
		expires_at TEXT    NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_issued_links_chat ON issued_links(chat_id, issued_at DESC)`,

	`CREATE INDEX IF NOT EXISTS idx_issued_links_expiry ON issued_links(expires_at)`,
}

// migrate creates or updates the database schema to the latest version.
func migrate(db *sql.DB) error {
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("history: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("history: read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("history: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("history: record schema version: %w", err)
	}

	return nil
}
