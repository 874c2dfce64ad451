package medicines

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, m Medicine) error
	GetByID(ctx context.Context, id string) (Medicine, error)
	// List devuelve todas las entradas ordenadas por Time ascendente.
	List(ctx context.Context) ([]Medicine, error)
	Delete(ctx context.Context, id string) error

	UpdateReminderStatus(ctx context.Context, id string, status ReminderStatus, reminderAt *time.Time, updatedAt time.Time) error
	// ListPendingReminders devuelve las entradas cuyo recordatorio quedó en
	// pending o firing (lo que un reinicio pudo haber perdido).
	ListPendingReminders(ctx context.Context) ([]Medicine, error)
}
