package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open abre una conexión pool a Postgres usando pgx (database/sql).
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	// defaults razonables para MVP (ajustable luego)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS medicines (
	id                  TEXT PRIMARY KEY,
	name                TEXT        NOT NULL,
	tablets             INTEGER     NOT NULL,
	scheduled_at        TIMESTAMPTZ NOT NULL,
	email               TEXT        NOT NULL,
	reminder_status     TEXT        NOT NULL DEFAULT '',
	reminder_at         TIMESTAMPTZ NULL,
	reminder_updated_at TIMESTAMPTZ NULL,
	created_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS medicines_scheduled_at_idx ON medicines (scheduled_at);
CREATE INDEX IF NOT EXISTS medicines_reminder_status_idx ON medicines (reminder_status);
`

// Migrate crea la tabla si no existe. Es idempotente.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
