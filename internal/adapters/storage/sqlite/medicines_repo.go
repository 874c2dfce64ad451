package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"medicine-reminder/internal/domain/medicines"
)

// Las horas se guardan como TEXT en UTC con ancho fijo, así ORDER BY sobre el
// string coincide con el orden cronológico.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const medicineColumns = `
	id, name, tablets, scheduled_at, email,
	reminder_status, reminder_at, reminder_updated_at,
	created_at
`

type MedicinesRepo struct {
	db *sql.DB
}

func NewMedicinesRepo(db *sql.DB) *MedicinesRepo {
	return &MedicinesRepo{db: db}
}

func (r *MedicinesRepo) Create(ctx context.Context, m medicines.Medicine) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medicines (`+medicineColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID,
		m.Name,
		m.Tablets,
		formatTime(m.Time),
		m.Email,
		string(m.ReminderStatus),
		formatNullTime(m.ReminderAt),
		formatNullTime(m.ReminderUpdatedAt),
		formatTime(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert medicine: %w", err)
	}
	return nil
}

func (r *MedicinesRepo) GetByID(ctx context.Context, id string) (medicines.Medicine, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = ?`, strings.TrimSpace(id))
	m, err := scanMedicine(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return medicines.Medicine{}, medicines.ErrNotFound
		}
		return medicines.Medicine{}, err
	}
	return m, nil
}

func (r *MedicinesRepo) List(ctx context.Context) ([]medicines.Medicine, error) {
	return r.query(ctx, `SELECT `+medicineColumns+` FROM medicines ORDER BY scheduled_at ASC, created_at ASC`)
}

func (r *MedicinesRepo) ListPendingReminders(ctx context.Context) ([]medicines.Medicine, error) {
	return r.query(ctx, `
		SELECT `+medicineColumns+`
		FROM medicines
		WHERE reminder_status IN (?, ?)
		ORDER BY scheduled_at ASC
	`, string(medicines.ReminderPending), string(medicines.ReminderFiring))
}

func (r *MedicinesRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM medicines WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete medicine: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return medicines.ErrNotFound
	}
	return nil
}

func (r *MedicinesRepo) UpdateReminderStatus(ctx context.Context, id string, status medicines.ReminderStatus, reminderAt *time.Time, updatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE medicines
		SET reminder_status = ?,
		    reminder_at = COALESCE(?, reminder_at),
		    reminder_updated_at = ?
		WHERE id = ?
	`, string(status), formatNullTime(reminderAt), formatTime(updatedAt), id)
	if err != nil {
		return fmt.Errorf("update reminder status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return medicines.ErrNotFound
	}
	return nil
}

func (r *MedicinesRepo) query(ctx context.Context, q string, args ...any) ([]medicines.Medicine, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query medicines: %w", err)
	}
	defer rows.Close()

	out := make([]medicines.Medicine, 0)
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMedicine(s scanner) (medicines.Medicine, error) {
	var m medicines.Medicine
	var status, scheduledAt, createdAt string
	var reminderAt, reminderUpdatedAt sql.NullString

	if err := s.Scan(
		&m.ID,
		&m.Name,
		&m.Tablets,
		&scheduledAt,
		&m.Email,
		&status,
		&reminderAt,
		&reminderUpdatedAt,
		&createdAt,
	); err != nil {
		return medicines.Medicine{}, err
	}

	var err error
	if m.Time, err = time.Parse(timeLayout, scheduledAt); err != nil {
		return medicines.Medicine{}, fmt.Errorf("parse scheduled_at: %w", err)
	}
	if m.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return medicines.Medicine{}, fmt.Errorf("parse created_at: %w", err)
	}
	if m.ReminderAt, err = parseNullTime(reminderAt); err != nil {
		return medicines.Medicine{}, fmt.Errorf("parse reminder_at: %w", err)
	}
	if m.ReminderUpdatedAt, err = parseNullTime(reminderUpdatedAt); err != nil {
		return medicines.Medicine{}, fmt.Errorf("parse reminder_updated_at: %w", err)
	}
	m.ReminderStatus = medicines.ReminderStatus(status)
	return m, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
