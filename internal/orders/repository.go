package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/konsultanku/backend/internal/models"
)

var (
	errOrderNotFound   = errors.New("order not found")
	errPaymentNotFound = errors.New("payment not found")
	errOrderConflict   = errors.New("order not in a valid state for this transition")
	errPaymentConflict = errors.New("payment is not pending")
)

const orderColumns = "id, client_id, consultant_id, service_name, type, status, scheduled_at, created_at, updated_at"

const paymentColumns = "id, order_id, price, title, status, original_order_id, created_at, updated_at"

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.ClientID, &o.ConsultantID, &o.ServiceName, &o.Type, &o.Status, &o.ScheduledAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Price, &p.Title, &p.Status, &p.OriginalOrderID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateOrderWithPayment inserts the order and its funding payment in one
// transaction, so a rejected payment row cannot strand an orphan order. A
// follow-up's original_order_id is checked against orders first; a dangling
// reference reports order-not-found instead of a raw FK violation.
func (r *Repository) CreateOrderWithPayment(ctx context.Context, o *models.Order, p *models.Payment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if p.OriginalOrderID != nil {
		var exists bool
		err := tx.QueryRow(ctx, `SELECT true FROM orders WHERE id = $1`, *p.OriginalOrderID).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			return errOrderNotFound
		}
		if err != nil {
			return err
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (id, client_id, service_name, type, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, o.ID, o.ClientID, o.ServiceName, o.Type, o.Status, o.ScheduledAt).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO payments (id, order_id, price, title, status, original_order_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, p.ID, p.OrderID, p.Price, p.Title, p.Status, p.OriginalOrderID).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id = $1
	`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errOrderNotFound
	}
	return o, err
}

func (r *Repository) ListOrdersByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Order, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE client_id = $1 ORDER BY created_at DESC`, clientID)
}

func (r *Repository) ListOrdersByConsultant(ctx context.Context, consultantID uuid.UUID) ([]*models.Order, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE consultant_id = $1 ORDER BY created_at DESC`, consultantID)
}

func (r *Repository) listOrders(ctx context.Context, query string, arg any) ([]*models.Order, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// MarkOngoing binds the consultant and advances the order out of its entry
// state. The status guard keeps the transition monotonic: an order that is
// already ongoing, ready or completed is left untouched.
func (r *Repository) MarkOngoing(ctx context.Context, orderID, consultantID uuid.UUID) (*models.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `
		UPDATE orders SET status = $1, consultant_id = $2, updated_at = now()
		WHERE id = $3 AND status IN ($4, $5)
		RETURNING `+orderColumns+`
	`, models.OrderStatusOngoing, consultantID, orderID, models.OrderStatusPending, models.OrderStatusAwaiting))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.classifyOrder(ctx, orderID)
	}
	return o, err
}

// MarkReady advances an ongoing (or still awaiting) request order once
// resolution files are recorded.
func (r *Repository) MarkReady(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `
		UPDATE orders SET status = $1, updated_at = now()
		WHERE id = $2 AND status IN ($3, $4)
		RETURNING `+orderColumns+`
	`, models.OrderStatusReady, orderID, models.OrderStatusAwaiting, models.OrderStatusOngoing))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.classifyOrder(ctx, orderID)
	}
	return o, err
}

// MarkCompleted is terminal; the guard makes a repeat call a conflict
// instead of a rewrite.
func (r *Repository) MarkCompleted(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `
		UPDATE orders SET status = $1, updated_at = now()
		WHERE id = $2 AND status <> $1
		RETURNING `+orderColumns+`
	`, models.OrderStatusCompleted, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.classifyOrder(ctx, orderID)
	}
	return o, err
}

func (r *Repository) classifyOrder(ctx context.Context, orderID uuid.UUID) error {
	var status string
	err := r.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return errOrderNotFound
	}
	if err != nil {
		return err
	}
	return errOrderConflict
}

func (r *Repository) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE order_id = $1
	`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errPaymentNotFound
	}
	return p, err
}

// CompletePayment flips a pending payment to completed. Price and title are
// immutable; only the status moves, and only once.
func (r *Repository) CompletePayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `
		UPDATE payments SET status = $1, updated_at = now()
		WHERE order_id = $2 AND status = $3
		RETURNING `+paymentColumns+`
	`, models.PaymentStatusCompleted, orderID, models.PaymentStatusPending))
	if errors.Is(err, pgx.ErrNoRows) {
		var status string
		err := r.pool.QueryRow(ctx, `SELECT status FROM payments WHERE order_id = $1`, orderID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errPaymentNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, errPaymentConflict
	}
	return p, err
}

// UpsertActiveAssignment creates or reactivates the single assignment row
// for an order. The unique index on order_id keeps it at most one.
func (r *Repository) UpsertActiveAssignment(ctx context.Context, a *models.Assignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO assignments (id, order_id, consultant_id, client_id, service_expertise, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO UPDATE
		SET consultant_id = EXCLUDED.consultant_id, status = EXCLUDED.status, updated_at = now()
		RETURNING id, created_at, updated_at
	`, a.ID, a.OrderID, a.ConsultantID, a.ClientID, a.ServiceExpertise, models.AssignmentStatusOngoing).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *Repository) CompleteAssignment(ctx context.Context, orderID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE assignments SET status = $1, updated_at = now()
		WHERE order_id = $2 AND status <> $1
	`, models.AssignmentStatusCompleted, orderID)
	return err
}

func (r *Repository) ListAssignmentsByConsultant(ctx context.Context, consultantID uuid.UUID) ([]*models.Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, consultant_id, client_id, service_expertise, status, created_at, updated_at
		FROM assignments WHERE consultant_id = $1 ORDER BY created_at DESC
	`, consultantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Assignment
	for rows.Next() {
		var a models.Assignment
		if err := rows.Scan(&a.ID, &a.OrderID, &a.ConsultantID, &a.ClientID, &a.ServiceExpertise, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}

func (r *Repository) InsertArtifacts(ctx context.Context, orderID uuid.UUID, refs []models.ArtifactRef) error {
	for i := range refs {
		refs[i].ID = uuid.New()
		refs[i].OrderID = orderID
		err := r.pool.QueryRow(ctx, `
			INSERT INTO order_artifacts (id, order_id, url, name, size_bytes)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at
		`, refs[i].ID, orderID, refs[i].URL, refs[i].Name, refs[i].SizeBytes).Scan(&refs[i].CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) ListArtifacts(ctx context.Context, orderID uuid.UUID) ([]*models.ArtifactRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, url, name, size_bytes, created_at
		FROM order_artifacts WHERE order_id = $1 ORDER BY created_at
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.ArtifactRef
	for rows.Next() {
		var a models.ArtifactRef
		if err := rows.Scan(&a.ID, &a.OrderID, &a.URL, &a.Name, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}
