package notify

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/konsultanku/backend/internal/models"
)

// NotificationStore persists delivered notifications.
type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
}

// NotificationWorker persists queued notifications so recipients see them
// on their next fetch.
type NotificationWorker struct {
	river.WorkerDefaults[SendNotificationArgs]
	store NotificationStore
	log   *slog.Logger
}

func NewNotificationWorker(store NotificationStore, log *slog.Logger) *NotificationWorker {
	if log == nil {
		log = slog.Default()
	}
	return &NotificationWorker{store: store, log: log}
}

func (w *NotificationWorker) Work(ctx context.Context, job *river.Job[SendNotificationArgs]) error {
	n := job.Args.Notification
	if err := w.store.Insert(ctx, &n); err != nil {
		w.log.Error("persist notification failed", "recipient_id", n.RecipientID, "category", n.Category, "error", err)
		return err
	}
	return nil
}

// EmailWorker hands queued emails to the mail provider.
type EmailWorker struct {
	river.WorkerDefaults[SendEmailArgs]
	mailer Mailer
	log    *slog.Logger
}

func NewEmailWorker(mailer Mailer, log *slog.Logger) *EmailWorker {
	if log == nil {
		log = slog.Default()
	}
	return &EmailWorker{mailer: mailer, log: log}
}

func (w *EmailWorker) Work(ctx context.Context, job *river.Job[SendEmailArgs]) error {
	a := job.Args
	if err := w.mailer.Send(ctx, a.To, a.Subject, a.Text, a.HTML); err != nil {
		w.log.Error("send email failed", "to", a.To, "subject", a.Subject, "error", err)
		return err
	}
	return nil
}
