package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// applyMigrations applies every embedded migration that has not been recorded yet
func applyMigrations(db *sql.DB) error {
	// fs.ReadDir returns entries sorted by filename
	files, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	// Create migrations table if it doesn't exist
	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS schema_migrations (
            filename TEXT PRIMARY KEY,
            query TEXT,
            applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );
    `)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, file := range files {
		if path.Ext(file.Name()) != ".sql" {
			continue
		}

		// Check if migration has already been applied
		var exists bool
		err = db.QueryRow("SELECT 1 FROM schema_migrations WHERE filename = ?", file.Name()).Scan(&exists)
		if err != sql.ErrNoRows && err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if exists {
			continue
		}

		migrationSQL, err := migrationFiles.ReadFile(path.Join("migrations", file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file.Name(), err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %s: %w", file.Name(), err)
		}

		if _, err = tx.Exec(string(migrationSQL)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %s: %w", file.Name(), err)
		}

		if _, err = tx.Exec("INSERT INTO schema_migrations (filename, query) VALUES (?, ?)", file.Name(), string(migrationSQL)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", file.Name(), err)
		}

		if err = tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", file.Name(), err)
		}
	}

	return nil
}
