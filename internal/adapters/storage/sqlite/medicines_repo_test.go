package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"medicine-reminder/internal/domain/medicines"
)

func newTestRepo(t *testing.T) *MedicinesRepo {
	t.Helper()

	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "medicines.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewMedicinesRepo(db)
}

func TestMedicinesRepo_CreateGetList(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2030, 6, 15, 9, 0, 0, 0, time.UTC)
	ba := time.FixedZone("ART", -3*60*60)

	// 08:00 ART == 11:00 UTC: debe quedar después de 10:00 UTC
	items := []medicines.Medicine{
		{ID: "late", Name: "C", Tablets: 1, Time: time.Date(2030, 6, 15, 8, 0, 0, 0, ba), Email: "c@b.com", CreatedAt: base},
		{ID: "early", Name: "A", Tablets: 2, Time: base, Email: "a@b.com", CreatedAt: base},
		{ID: "mid", Name: "B", Tablets: 3, Time: base.Add(time.Hour), Email: "b@b.com", CreatedAt: base},
	}
	for _, m := range items {
		if err := r.Create(ctx, m); err != nil {
			t.Fatalf("create %s: %v", m.ID, err)
		}
	}

	got, err := r.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 || got[0].ID != "early" || got[1].ID != "mid" || got[2].ID != "late" {
		t.Fatalf("expected ascending order, got %+v", got)
	}

	m, err := r.GetByID(ctx, "early")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m.Name != "A" || m.Tablets != 2 || !m.Time.Equal(base) || m.ReminderAt != nil {
		t.Fatalf("unexpected round trip: %+v", m)
	}

	if _, err := r.GetByID(ctx, "missing"); !errors.Is(err, medicines.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMedicinesRepo_ReminderStatusLifecycle(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2030, 6, 15, 9, 0, 0, 0, time.UTC)

	_ = r.Create(ctx, medicines.Medicine{ID: "a", Name: "A", Tablets: 1, Time: base, Email: "a@b.com", CreatedAt: base})
	_ = r.Create(ctx, medicines.Medicine{ID: "b", Name: "B", Tablets: 1, Time: base, Email: "b@b.com", CreatedAt: base})

	fireAt := base.Add(-5 * time.Minute)
	if err := r.UpdateReminderStatus(ctx, "a", medicines.ReminderPending, &fireAt, base); err != nil {
		t.Fatalf("update a: %v", err)
	}
	if err := r.UpdateReminderStatus(ctx, "b", medicines.ReminderFiring, &fireAt, base); err != nil {
		t.Fatalf("update b: %v", err)
	}

	pending, err := r.ListPendingReminders(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected pending+firing entries, got %d", len(pending))
	}

	// reminder_at nil conserva el valor previo
	if err := r.UpdateReminderStatus(ctx, "a", medicines.ReminderFired, nil, base.Add(time.Minute)); err != nil {
		t.Fatalf("update fired: %v", err)
	}
	a, _ := r.GetByID(ctx, "a")
	if a.ReminderStatus != medicines.ReminderFired || a.ReminderAt == nil || !a.ReminderAt.Equal(fireAt) {
		t.Fatalf("unexpected reminder fields: %+v", a)
	}

	pending, _ = r.ListPendingReminders(ctx)
	if len(pending) != 1 || pending[0].ID != "b" {
		t.Fatalf("expected only b pending, got %+v", pending)
	}

	if err := r.UpdateReminderStatus(ctx, "zzz", medicines.ReminderFired, nil, base); !errors.Is(err, medicines.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMedicinesRepo_Delete(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2030, 6, 15, 9, 0, 0, 0, time.UTC)

	_ = r.Create(ctx, medicines.Medicine{ID: "a", Name: "A", Tablets: 1, Time: base, Email: "a@b.com", CreatedAt: base})
	if err := r.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := r.Delete(ctx, "a"); !errors.Is(err, medicines.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
