package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"medicine-reminder/internal/platform/httpclient"
	"medicine-reminder/internal/ports/notify"
)

// payload es lo que recibe el endpoint configurado.
type payload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`
}

// Notifier publica cada aviso como JSON contra una URL (relay propio,
// servicio transaccional, etc.).
type Notifier struct {
	url     string
	headers map[string]string
	client  *httpclient.Client
}

func New(url string, headers map[string]string, client *httpclient.Client) (*Notifier, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("%w: webhook url is required", notify.ErrNotConfigured)
	}
	if client == nil {
		client = httpclient.New(0)
	}
	return &Notifier{url: url, headers: headers, client: client}, nil
}

func (n *Notifier) Send(ctx context.Context, msg notify.Message) error {
	err := n.client.DoJSON(ctx, http.MethodPost, n.url, n.headers, payload{
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}, nil)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("webhook send: %w", err)
	}
	switch httpclient.StatusCode(err) {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %v", notify.ErrInvalidDestination, err)
	default:
		return fmt.Errorf("%w: %v", notify.ErrTransport, err)
	}
}
