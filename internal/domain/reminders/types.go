package reminders

import (
	"context"
	"time"

	"medicine-reminder/internal/domain/medicines"
)

// Reminder es el ScheduledReminder: vive solo en memoria del scheduler y
// referencia la entrada por id. El estado durable se replica vía Recorder.
type Reminder struct {
	EntryID   string
	FireAt    time.Time
	Status    medicines.ReminderStatus
	Attempts  int
	LastError string
	DoneAt    time.Time

	entry medicines.Medicine // snapshot al momento de Schedule
	index int                // posición en el heap, -1 si no está encolado
}

// Recorder persiste las transiciones (lo implementan los repos).
type Recorder interface {
	UpdateReminderStatus(ctx context.Context, id string, status medicines.ReminderStatus, reminderAt *time.Time, updatedAt time.Time) error
}

// PendingSource es de dónde se reconstruye el set pendiente tras un reinicio.
type PendingSource interface {
	ListPendingReminders(ctx context.Context) ([]medicines.Medicine, error)
}

// RecoveryReport resume una pasada de Recover/Resync.
type RecoveryReport struct {
	Scheduled int // reprogramados
	Known     int // ya estaban en memoria
	Cancelled int // vencidos durante la caída o con resultado desconocido
	Ignored   int
}
