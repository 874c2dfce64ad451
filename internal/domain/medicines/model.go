package medicines

import "time"

// ReminderStatus es el estado durable del recordatorio asociado a una entrada.
// @Enum pending, firing, fired, failed, cancelled, skipped
type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderFiring    ReminderStatus = "firing"
	ReminderFired     ReminderStatus = "fired"
	ReminderFailed    ReminderStatus = "failed"
	ReminderCancelled ReminderStatus = "cancelled"

	// ReminderSkipped no es un estado de ScheduledReminder: indica que la hora
	// de disparo ya había pasado al aceptar la entrada y no se programó nada.
	ReminderSkipped ReminderStatus = "skipped"
)

// Terminal indica si el estado ya no admite transiciones.
func (s ReminderStatus) Terminal() bool {
	switch s {
	case ReminderFired, ReminderFailed, ReminderCancelled, ReminderSkipped:
		return true
	default:
		return false
	}
}

// Medicine es una entrada persistida: qué tomar, cuántas pastillas, cuándo
// y a quién avisar.
type Medicine struct {
	ID string

	Name    string
	Tablets int
	Time    time.Time // hora canónica en la que vence la toma
	Email   string

	ReminderStatus    ReminderStatus
	ReminderAt        *time.Time // Time - leadTime
	ReminderUpdatedAt *time.Time

	CreatedAt time.Time
}

// ReminderState es lo que el scheduler informa sobre una entrada.
type ReminderState struct {
	Status ReminderStatus
	FireAt time.Time
}

func (m *Medicine) applyReminder(st ReminderState) {
	m.ReminderStatus = st.Status
	if !st.FireAt.IsZero() {
		at := st.FireAt
		m.ReminderAt = &at
	}
}
