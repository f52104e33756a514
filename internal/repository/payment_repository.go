package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/elearning-backend/internal/database"
	"github.com/stemsi/elearning-backend/internal/model"
)

// PaymentRepository handles payment data access.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// StaleCount is the number of unpaid payments of one gateway older than a cutoff.
type StaleCount struct {
	Gateway model.Gateway
	Count   int
	Oldest  time.Time
}

const paymentColumns = `id, order_id, payment_id, user_id, course_id, amount, date, status, gateway, chapa_tx_ref`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	err := row.Scan(&p.ID, &p.OrderID, &p.PaymentID, &p.UserID, &p.CourseID,
		&p.Amount, &p.Date, &p.Status, &p.Gateway, &p.ChapaTxRef)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new unpaid payment.
func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO payments (order_id, user_id, course_id, amount, status, gateway, chapa_tx_ref)
		 VALUES ($1, $2, $3, $4, FALSE, $5, $6)
		 RETURNING id, date, status`,
		p.OrderID, p.UserID, p.CourseID, p.Amount, p.Gateway, p.ChapaTxRef,
	).Scan(&p.ID, &p.Date, &p.Status)
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	return scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
}

// GetByTxRefForUser retrieves the user's payment with the given Chapa reference.
func (r *PaymentRepository) GetByTxRefForUser(ctx context.Context, userID int64, txRef string) (*model.Payment, error) {
	return scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE chapa_tx_ref = $1 AND user_id = $2`,
		txRef, userID))
}

// ListUnpaidByTxRef returns every unpaid payment carrying the reference.
// More than one row means the reference is ambiguous.
func (r *PaymentRepository) ListUnpaidByTxRef(ctx context.Context, txRef string) ([]model.Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE chapa_tx_ref = $1 AND status = FALSE`, txRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// GetView retrieves the client view of a payment. When userID is non-zero
// the payment must belong to that user.
func (r *PaymentRepository) GetView(ctx context.Context, userID, id int64) (*model.PaymentView, error) {
	v := &model.PaymentView{}
	err := r.pool.QueryRow(ctx,
		`SELECT p.id, p.amount, p.status, p.payment_id, c.title, p.gateway, p.chapa_tx_ref
		 FROM payments p
		 JOIN courses c ON c.id = p.course_id
		 WHERE p.id = $1 AND ($2::bigint = 0 OR p.user_id = $2::bigint)`, id, userID,
	).Scan(&v.ID, &v.Amount, &v.Status, &v.PaymentID, &v.Course, &v.Gateway, &v.ChapaTxRef)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ConfirmAndEnroll flips an unpaid payment to paid and gets-or-creates the
// matching enrollment in one transaction. The update is conditional on
// status = FALSE, so concurrent confirmations of the same payment cannot
// both succeed; the loser gets the stored row back with Newly = false and no
// enrollment side effect. Returns pgx.ErrNoRows when the payment is unknown.
func (r *PaymentRepository) ConfirmAndEnroll(ctx context.Context, paymentID int64, externalID string) (*model.PaymentConfirmation, error) {
	var res *model.PaymentConfirmation

	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		p, err := scanPayment(tx.QueryRow(ctx,
			`UPDATE payments SET status = TRUE, payment_id = $2
			 WHERE id = $1 AND status = FALSE
			 RETURNING `+paymentColumns,
			paymentID, externalID))
		if errors.Is(err, pgx.ErrNoRows) {
			existing, getErr := scanPayment(tx.QueryRow(ctx,
				`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, paymentID))
			if getErr != nil {
				return getErr
			}
			res = &model.PaymentConfirmation{Payment: existing}
			return nil
		}
		if err != nil {
			return err
		}

		enrollment, _, err := getOrCreateEnrollment(ctx, tx, p.UserID, p.CourseID)
		if err != nil {
			return err
		}
		res = &model.PaymentConfirmation{Payment: p, Enrollment: enrollment, Newly: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CountStaleUnpaid groups unpaid payments older than the cutoff by gateway.
func (r *PaymentRepository) CountStaleUnpaid(ctx context.Context, before time.Time) ([]StaleCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT gateway, COUNT(*)::int, MIN(date)
		 FROM payments
		 WHERE status = FALSE AND date < $1
		 GROUP BY gateway
		 ORDER BY gateway`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []StaleCount
	for rows.Next() {
		var sc StaleCount
		if err := rows.Scan(&sc.Gateway, &sc.Count, &sc.Oldest); err != nil {
			return nil, err
		}
		counts = append(counts, sc)
	}
	return counts, rows.Err()
}

// ─── Gateway events ─────────────────────────────────────────────────────

// CreateEvent appends a gateway event to the audit log.
func (r *PaymentRepository) CreateEvent(ctx context.Context, e *model.PaymentGatewayEvent) error {
	payload := e.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO payment_gateway_events (gateway, payment_id, external_ref, event_type, payload, outcome, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, received_at`,
		e.Gateway, e.PaymentID, e.ExternalRef, e.EventType, payload, e.Outcome, e.Error,
	).Scan(&e.ID, &e.ReceivedAt)
}

// ListEvents returns a page of gateway events, newest first, and the total count.
func (r *PaymentRepository) ListEvents(ctx context.Context, limit, offset int) ([]model.PaymentGatewayEvent, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payment_gateway_events`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, gateway, payment_id, external_ref, event_type, payload, outcome, error, received_at
		 FROM payment_gateway_events
		 ORDER BY received_at DESC, id DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := []model.PaymentGatewayEvent{}
	for rows.Next() {
		var e model.PaymentGatewayEvent
		if err := rows.Scan(&e.ID, &e.Gateway, &e.PaymentID, &e.ExternalRef, &e.EventType,
			&e.Payload, &e.Outcome, &e.Error, &e.ReceivedAt); err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}
