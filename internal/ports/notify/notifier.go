package notify

import (
	"context"
	"errors"
)

var (
	ErrNotConfigured      = errors.New("notifier not configured")
	ErrTransport          = errors.New("notifier transport error")
	ErrInvalidDestination = errors.New("invalid destination")
)

// Message es el contenido ya compuesto de un aviso.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Notifier entrega un mensaje a una dirección. Debe soportar llamadas
// concurrentes: el scheduler dispara varios envíos a la vez.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Kind clasifica un error de envío para logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrInvalidDestination):
		return "invalid_destination"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "unknown"
	}
}

// Permanent indica que reintentar no tiene sentido.
func Permanent(err error) bool {
	return errors.Is(err, ErrInvalidDestination) || errors.Is(err, ErrNotConfigured)
}
