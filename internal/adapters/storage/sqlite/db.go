package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open abre (o crea) la base SQLite en path y asegura el schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// un solo writer; WAL deja leer mientras tanto
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS medicines (
		id                  TEXT    PRIMARY KEY,
		name                TEXT    NOT NULL,
		tablets             INTEGER NOT NULL,
		scheduled_at        TEXT    NOT NULL,
		email               TEXT    NOT NULL,
		reminder_status     TEXT    NOT NULL DEFAULT '',
		reminder_at         TEXT    NULL,
		reminder_updated_at TEXT    NULL,
		created_at          TEXT    NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS medicines_scheduled_at_idx ON medicines (scheduled_at)`,
	`CREATE INDEX IF NOT EXISTS medicines_reminder_status_idx ON medicines (reminder_status)`,
}

// Migrate crea la tabla y los índices si no existen.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}
