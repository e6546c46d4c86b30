package notify

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/konsultanku/backend/internal/models"
)

// Sink delivers in-app notifications. Implementations are best-effort:
// callers log a returned error and move on, they never fail the lifecycle
// operation that triggered the notification.
type Sink interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Mailer sends one transactional email.
type Mailer interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

type SendNotificationArgs struct {
	Notification models.Notification `json:"notification"`
}

func (SendNotificationArgs) Kind() string { return "send_notification" }

type SendEmailArgs struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

func (SendEmailArgs) Kind() string { return "send_email" }

// InsertJobFunc enqueues a background job. Provided by main as a closure
// over river.Client.Insert.
type InsertJobFunc func(ctx context.Context, args river.JobArgs) error

// Dispatcher queues notifications and emails as River jobs so delivery
// happens off the request path.
type Dispatcher struct {
	insert InsertJobFunc
	log    *slog.Logger
}

func NewDispatcher(insert InsertJobFunc, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{insert: insert, log: log}
}

var _ Sink = (*Dispatcher)(nil)

func (d *Dispatcher) Notify(ctx context.Context, n models.Notification) error {
	return d.insert(ctx, SendNotificationArgs{Notification: n})
}

// Email queues a transactional email.
func (d *Dispatcher) Email(ctx context.Context, to, subject, text, html string) error {
	return d.insert(ctx, SendEmailArgs{To: to, Subject: subject, Text: text, HTML: html})
}

// NoopSink discards notifications. Used in tests.
type NoopSink struct{}

func (NoopSink) Notify(context.Context, models.Notification) error { return nil }
