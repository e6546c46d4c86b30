package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// RestMailer sends email through an HTTP mail provider.
type RestMailer struct {
	client *resty.Client
	from   string
}

func NewRestMailer(baseURL, apiKey, from string) *RestMailer {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetTimeout(10 * time.Second)
	return &RestMailer{client: client, from: from}
}

var _ Mailer = (*RestMailer)(nil)

func (m *RestMailer) Send(ctx context.Context, to, subject, text, html string) error {
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"from":    m.from,
			"to":      to,
			"subject": subject,
			"text":    text,
			"html":    html,
		}).
		Post("/messages")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("mail provider returned %s", resp.Status())
	}
	return nil
}

// LogMailer logs instead of sending. Used when no mail provider is
// configured, typically local development.
type LogMailer struct {
	Log *slog.Logger
}

var _ Mailer = (*LogMailer)(nil)

func (m *LogMailer) Send(_ context.Context, to, subject, _, _ string) error {
	log := m.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("email suppressed (no mail provider configured)", "to", to, "subject", subject)
	return nil
}
