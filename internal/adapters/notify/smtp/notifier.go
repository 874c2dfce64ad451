package smtp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"medicine-reminder/internal/ports/notify"
)

const (
	DefaultHost    = "smtp.gmail.com"
	DefaultPort    = 587
	DefaultTimeout = 30 * time.Second
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	// From vacío usa User, igual que la cuenta de Gmail de la que se envía.
	From    string
	Timeout time.Duration
}

// Notifier envía cada aviso en su propia conexión SMTP autenticada.
type Notifier struct {
	cfg Config
}

func New(cfg Config) (*Notifier, error) {
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.User = strings.TrimSpace(cfg.User)
	cfg.From = strings.TrimSpace(cfg.From)

	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	if cfg.User == "" || cfg.Password == "" {
		return nil, fmt.Errorf("%w: smtp user and password are required", notify.ErrNotConfigured)
	}
	return &Notifier{cfg: cfg}, nil
}

func (n *Notifier) Send(ctx context.Context, msg notify.Message) error {
	m, err := n.buildMessage(msg)
	if err != nil {
		return err
	}

	c, err := mail.NewClient(n.cfg.Host, n.clientOptions()...)
	if err != nil {
		return fmt.Errorf("%w: smtp client: %v", notify.ErrNotConfigured, err)
	}

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("smtp send: %w", ctxErr)
		}
		if isRecipientRejected(err) {
			return fmt.Errorf("%w: %v", notify.ErrInvalidDestination, err)
		}
		return fmt.Errorf("%w: %v", notify.ErrTransport, err)
	}
	return nil
}

func (n *Notifier) buildMessage(msg notify.Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(n.cfg.From); err != nil {
		return nil, fmt.Errorf("%w: from %q: %v", notify.ErrNotConfigured, n.cfg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("%w: to %q: %v", notify.ErrInvalidDestination, msg.To, err)
	}
	m.Subject(msg.Subject)

	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	case msg.HTML != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
	}
	return m, nil
}

func (n *Notifier) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
		mail.WithTimeout(n.cfg.Timeout),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.cfg.User),
		mail.WithPassword(n.cfg.Password),
	}
	if n.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	return opts
}

// isRecipientRejected detecta un 5xx en RCPT TO: reintentar no va a cambiar nada.
func isRecipientRejected(err error) bool {
	var se *mail.SendError
	if !errors.As(err, &se) {
		return false
	}
	return se.Reason == mail.ErrSMTPRcptTo && !se.IsTemp()
}
