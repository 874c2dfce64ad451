package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"medicine-reminder/internal/domain/medicines"
)

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
		INSERT INTO medicines (`+medicineColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		m.ID,
		m.Name,
		m.Tablets,
		m.Time,
		m.Email,
		string(m.ReminderStatus),
		toNullTime(m.ReminderAt),
		toNullTime(m.ReminderUpdatedAt),
		m.CreatedAt,
	)
	return err
}

func (r *MedicinesRepo) GetByID(ctx context.Context, id string) (medicines.Medicine, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medicines.Medicine{}, medicines.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = $1`, id)
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
		WHERE reminder_status IN ($1, $2)
		ORDER BY scheduled_at ASC
	`, string(medicines.ReminderPending), string(medicines.ReminderFiring))
}

func (r *MedicinesRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM medicines WHERE id = $1`, strings.TrimSpace(id))
	if err != nil {
		return err
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
		SET reminder_status = $2,
		    reminder_at = COALESCE($3, reminder_at),
		    reminder_updated_at = $4
		WHERE id = $1
	`, id, string(status), toNullTime(reminderAt), updatedAt)
	if err != nil {
		return err
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
		return nil, err
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
	var status string
	var reminderAt, reminderUpdatedAt sql.NullTime

	if err := s.Scan(
		&m.ID,
		&m.Name,
		&m.Tablets,
		&m.Time,
		&m.Email,
		&status,
		&reminderAt,
		&reminderUpdatedAt,
		&m.CreatedAt,
	); err != nil {
		return medicines.Medicine{}, err
	}

	m.ReminderStatus = medicines.ReminderStatus(status)
	m.ReminderAt = fromNullTime(reminderAt)
	m.ReminderUpdatedAt = fromNullTime(reminderUpdatedAt)
	return m, nil
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
