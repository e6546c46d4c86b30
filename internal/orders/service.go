package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/konsultanku/backend/internal/models"
	"github.com/konsultanku/backend/internal/notify"
	"github.com/konsultanku/backend/internal/pricing"
	"github.com/konsultanku/backend/internal/wallet"
)

// Sentinel errors surfaced to callers. Handlers map these onto HTTP codes.
var (
	ErrOrderNotFound    = errOrderNotFound
	ErrPaymentNotFound  = errPaymentNotFound
	ErrAlreadyOngoing   = errors.New("order already has an active consultant")
	ErrOrderConflict    = errOrderConflict
	ErrPaymentConflict  = errPaymentConflict
	ErrInvalidOrderType = errors.New("order type must be chat or request")
	ErrNoArtifacts      = errors.New("at least one resolution file is required")
)

// Store is the order/payment/assignment persistence interface the lifecycle
// service needs. The pgx Repository implements it; tests use an in-memory
// version.
type Store interface {
	CreateOrderWithPayment(ctx context.Context, o *models.Order, p *models.Payment) error
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListOrdersByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Order, error)
	ListOrdersByConsultant(ctx context.Context, consultantID uuid.UUID) ([]*models.Order, error)
	MarkOngoing(ctx context.Context, orderID, consultantID uuid.UUID) (*models.Order, error)
	MarkReady(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	MarkCompleted(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	CompletePayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	UpsertActiveAssignment(ctx context.Context, a *models.Assignment) error
	CompleteAssignment(ctx context.Context, orderID uuid.UUID) error
	ListAssignmentsByConsultant(ctx context.Context, consultantID uuid.UUID) ([]*models.Assignment, error)
	InsertArtifacts(ctx context.Context, orderID uuid.UUID, refs []models.ArtifactRef) error
	ListArtifacts(ctx context.Context, orderID uuid.UUID) ([]*models.ArtifactRef, error)
}

// UserDirectory resolves a user for notification/email addressing.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// EmailSender queues one transactional email, best effort.
type EmailSender interface {
	Email(ctx context.Context, to, subject, text, html string) error
}

type Service interface {
	CreatePayment(ctx context.Context, clientID uuid.UUID, title, orderType string, price int64, originalOrderID *uuid.UUID, scheduledAt *time.Time) (*models.Order, *models.Payment, error)
	ConfirmPayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	Assign(ctx context.Context, orderID, consultantID uuid.UUID) (*models.Order, error)
	Deliver(ctx context.Context, orderID uuid.UUID, refs []models.ArtifactRef) (*models.Order, error)
	Complete(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListOrdersFor(ctx context.Context, userID uuid.UUID, role string) ([]*models.Order, error)
	Artifacts(ctx context.Context, orderID uuid.UUID) ([]*models.ArtifactRef, error)
	ListAssignments(ctx context.Context, consultantID uuid.UUID) ([]*models.Assignment, error)
}

type service struct {
	store  Store
	wallet wallet.Service
	sink   notify.Sink
	emails EmailSender
	users  UserDirectory
	log    *slog.Logger
}

// NewService wires the lifecycle coordinator. emails and users may be nil;
// completion then skips the email side effect.
func NewService(store Store, walletSvc wallet.Service, sink notify.Sink, emails EmailSender, users UserDirectory, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{store: store, wallet: walletSvc, sink: sink, emails: emails, users: users, log: log}
}

var _ Service = (*service)(nil)

// CreatePayment records the funding event and opens the order it pays for.
// Chat orders enter at pending, asynchronous request orders at awaiting.
func (s *service) CreatePayment(ctx context.Context, clientID uuid.UUID, title, orderType string, price int64, originalOrderID *uuid.UUID, scheduledAt *time.Time) (*models.Order, *models.Payment, error) {
	if price <= 0 {
		return nil, nil, pricing.ErrInvalidPrice
	}
	var status string
	switch orderType {
	case models.OrderTypeChat:
		status = models.OrderStatusPending
	case models.OrderTypeRequest:
		status = models.OrderStatusAwaiting
	default:
		return nil, nil, ErrInvalidOrderType
	}

	o := &models.Order{
		ID:          uuid.New(),
		ClientID:    clientID,
		ServiceName: title,
		Type:        orderType,
		Status:      status,
		ScheduledAt: scheduledAt,
	}
	p := &models.Payment{
		ID:              uuid.New(),
		OrderID:         o.ID,
		Price:           price,
		Title:           title,
		Status:          models.PaymentStatusPending,
		OriginalOrderID: originalOrderID,
	}
	// One transaction: a rejected payment must not leave an orphan order.
	if err := s.store.CreateOrderWithPayment(ctx, o, p); err != nil {
		return nil, nil, err
	}
	return o, p, nil
}

// ConfirmPayment flips the payment to completed. A follow-up payment also
// closes the original engagement it extends: Complete is idempotent and the
// credit is deduplicated per order, so the cascade cannot double-pay. The
// confirmation itself has persisted by the time the cascade runs, so a
// cascade failure is logged rather than surfaced; the confirm succeeded.
func (s *service) ConfirmPayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	p, err := s.store.CompletePayment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if p.OriginalOrderID != nil {
		if _, err := s.Complete(ctx, *p.OriginalOrderID); err != nil {
			s.log.Warn("closing original order failed", "order_id", orderID, "original_order_id", *p.OriginalOrderID, "error", err)
		}
	}
	return p, nil
}

// Assign binds a consultant to the order and moves it to ongoing.
func (s *service) Assign(ctx context.Context, orderID, consultantID uuid.UUID) (*models.Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != models.OrderStatusPending && o.Status != models.OrderStatusAwaiting {
		return nil, ErrAlreadyOngoing
	}

	// The conditional status flip is the authoritative guard; only after it
	// wins does the assignment row get written.
	o, err = s.store.MarkOngoing(ctx, orderID, consultantID)
	if errors.Is(err, errOrderConflict) {
		return nil, ErrAlreadyOngoing
	}
	if err != nil {
		return nil, err
	}
	a := &models.Assignment{
		OrderID:          orderID,
		ConsultantID:     consultantID,
		ClientID:         o.ClientID,
		ServiceExpertise: o.ServiceName,
		Status:           models.AssignmentStatusOngoing,
	}
	if err := s.store.UpsertActiveAssignment(ctx, a); err != nil {
		return nil, err
	}

	s.notifyBestEffort(ctx, models.Notification{
		RecipientID: consultantID, SenderID: o.ClientID, Role: models.RoleConsultant,
		Category: models.NotifyOrderAssigned, OrderID: &orderID,
		Title: "New engagement assigned",
		Body:  fmt.Sprintf("You have been assigned to %q.", o.ServiceName),
	})
	s.notifyBestEffort(ctx, models.Notification{
		RecipientID: o.ClientID, SenderID: consultantID, Role: models.RoleClient,
		Category: models.NotifyOrderAssigned, OrderID: &orderID,
		Title: "Consultant assigned",
		Body:  fmt.Sprintf("A consultant has taken your %q order.", o.ServiceName),
	})
	return o, nil
}

// Deliver records the uploaded resolution file references and marks the
// order ready for completion.
func (s *service) Deliver(ctx context.Context, orderID uuid.UUID, refs []models.ArtifactRef) (*models.Order, error) {
	if len(refs) == 0 {
		return nil, ErrNoArtifacts
	}
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// Only asynchronous request orders pass through ready; chat orders
	// complete directly from ongoing.
	if o.Type != models.OrderTypeRequest {
		return nil, ErrInvalidOrderType
	}
	if err := s.store.InsertArtifacts(ctx, orderID, refs); err != nil {
		return nil, err
	}
	o, err = s.store.MarkReady(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.notifyBestEffort(ctx, models.Notification{
		RecipientID: o.ClientID, Role: models.RoleClient,
		Category: models.NotifyOrderDelivered, OrderID: &orderID,
		Title: "Resolution files ready",
		Body:  fmt.Sprintf("Your %q order has %d file(s) ready for review.", o.ServiceName, len(refs)),
	})
	return o, nil
}

// Complete closes the order and credits the consultant's share. Calling it
// again for an already-completed order returns the order unchanged and
// emits no side effects.
func (s *service) Complete(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == models.OrderStatusCompleted {
		return o, nil
	}

	p, err := s.store.GetPaymentByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PaymentStatusCompleted {
		return nil, ErrPaymentNotFound
	}

	share, err := pricing.ConsultantShare(p.Price, p.Title, o.Type)
	if err != nil {
		return nil, err
	}

	// Credit before the status flip. The deposit is deduplicated per order,
	// so a retry after a failed flip cannot double-pay, while a failed
	// credit leaves the order open and the whole operation retryable.
	if o.ConsultantID != nil && share > 0 {
		if _, err := s.wallet.Credit(ctx, *o.ConsultantID, share, orderID); err != nil {
			return nil, err
		}
	}

	o, err = s.store.MarkCompleted(ctx, orderID)
	if errors.Is(err, errOrderConflict) {
		// Lost a race with a concurrent completion; the credit above is
		// deduplicated anyway, so just report the settled order.
		return s.store.GetOrder(ctx, orderID)
	}
	if err != nil {
		return nil, err
	}
	if err := s.store.CompleteAssignment(ctx, orderID); err != nil {
		return nil, err
	}

	if o.ConsultantID == nil {
		s.log.Warn("completed order has no consultant, no credit to apply", "order_id", orderID)
		return o, nil
	}

	s.notifyBestEffort(ctx, models.Notification{
		RecipientID: *o.ConsultantID, SenderID: o.ClientID, Role: models.RoleConsultant,
		Category: models.NotifyWalletCredited, OrderID: &orderID,
		Title: "Engagement completed",
		Body:  fmt.Sprintf("Order %q is complete; %d was credited to your wallet.", o.ServiceName, share),
	})
	s.emailBestEffort(ctx, *o.ConsultantID, o, share)
	return o, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.store.GetOrder(ctx, orderID)
}

// ListOrdersFor returns the orders visible to a user: clients see what they
// bought, consultants what they are assigned to.
func (s *service) ListOrdersFor(ctx context.Context, userID uuid.UUID, role string) ([]*models.Order, error) {
	if role == models.RoleConsultant {
		return s.store.ListOrdersByConsultant(ctx, userID)
	}
	return s.store.ListOrdersByClient(ctx, userID)
}

func (s *service) Artifacts(ctx context.Context, orderID uuid.UUID) ([]*models.ArtifactRef, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.ListArtifacts(ctx, orderID)
}

func (s *service) ListAssignments(ctx context.Context, consultantID uuid.UUID) ([]*models.Assignment, error) {
	return s.store.ListAssignmentsByConsultant(ctx, consultantID)
}

// notifyBestEffort logs and swallows notification failures; a lost
// notification must never fail the financial operation that caused it.
func (s *service) notifyBestEffort(ctx context.Context, n models.Notification) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Notify(ctx, n); err != nil {
		s.log.Warn("notification dispatch failed", "recipient_id", n.RecipientID, "category", n.Category, "error", err)
	}
}

func (s *service) emailBestEffort(ctx context.Context, consultantID uuid.UUID, o *models.Order, share int64) {
	if s.emails == nil || s.users == nil {
		return
	}
	u, err := s.users.GetByID(ctx, consultantID)
	if err != nil {
		s.log.Warn("email lookup failed", "consultant_id", consultantID, "error", err)
		return
	}
	subject := "Your engagement is complete"
	text := fmt.Sprintf("Order %q is complete. %d has been credited to your wallet.", o.ServiceName, share)
	html := fmt.Sprintf("<p>Order <b>%s</b> is complete. <b>%d</b> has been credited to your wallet.</p>", o.ServiceName, share)
	if err := s.emails.Email(ctx, u.Email, subject, text, html); err != nil {
		s.log.Warn("email dispatch failed", "to", u.Email, "error", err)
	}
}
