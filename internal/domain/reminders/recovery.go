package reminders

import (
	"context"
	"fmt"

	"medicine-reminder/internal/domain/medicines"
)

// Recover reconstruye el set pendiente al arrancar. Lo que quedó pending con
// hora futura se reprograma; lo que venció durante la caída, o estaba en
// firing (no sabemos si el envío salió), se marca cancelled: nunca se manda
// un aviso atrasado ni uno que pudo haberse mandado ya.
func (s *Scheduler) Recover(ctx context.Context, src PendingSource) (RecoveryReport, error) {
	return s.adopt(ctx, src, true)
}

// Resync es la pasada periódica: solo adopta entradas pending con hora futura
// que este proceso no conoce (p.ej. creadas por otra instancia sobre el mismo
// store). No toca las vencidas: pueden estar en manos de otro proceso.
func (s *Scheduler) Resync(ctx context.Context, src PendingSource) (RecoveryReport, error) {
	return s.adopt(ctx, src, false)
}

func (s *Scheduler) adopt(ctx context.Context, src PendingSource, startup bool) (RecoveryReport, error) {
	var rep RecoveryReport

	items, err := src.ListPendingReminders(ctx)
	if err != nil {
		return rep, fmt.Errorf("list pending reminders: %w", err)
	}

	now := s.now()
	for _, m := range items {
		if _, known := s.Lookup(m.ID); known {
			rep.Known++
			continue
		}

		fireAt := m.Time.Add(-s.leadTime)
		lost := m.ReminderStatus == medicines.ReminderFiring || !fireAt.After(now)

		switch {
		case !lost:
			s.Schedule(ctx, m)
			rep.Scheduled++
		case startup:
			s.record(ctx, m.ID, medicines.ReminderCancelled, fireAt)
			s.log.Warn("reminder lost across restart", map[string]any{
				"entry_id":    m.ID,
				"fire_at":     fireAt,
				"prev_status": m.ReminderStatus,
				"status":      medicines.ReminderCancelled,
			})
			rep.Cancelled++
		default:
			rep.Ignored++
		}
	}

	s.log.Info("reminders recovered", map[string]any{
		"startup":   startup,
		"scheduled": rep.Scheduled,
		"known":     rep.Known,
		"cancelled": rep.Cancelled,
		"ignored":   rep.Ignored,
	})
	return rep, nil
}
