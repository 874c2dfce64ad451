package console

import (
	"context"

	"medicine-reminder/internal/platform/logger"
	"medicine-reminder/internal/ports/notify"
)

// Notifier escribe el aviso en el log en vez de enviarlo. Útil en desarrollo.
type Notifier struct {
	log logger.Logger
}

func New(log logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{log: log.With(map[string]any{"notifier": "console"})}
}

func (n *Notifier) Send(ctx context.Context, msg notify.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.log.Info("reminder delivered", map[string]any{
		"to":      msg.To,
		"subject": msg.Subject,
		"body":    msg.Text,
	})
	return nil
}
