package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lapstore/storefront-api/internal/apperr"
	domain "github.com/lapstore/storefront-api/internal/entity"
	"github.com/lapstore/storefront-api/internal/usecase"
)

type MySQLPaymentRepo struct{ db *sql.DB }

func NewMySQLPaymentRepo(db *sql.DB) *MySQLPaymentRepo { return &MySQLPaymentRepo{db: db} }

const paymentCols = `id, order_code, method, amount, status, checkout_url, qr_code,
provider_ref, provider_txn_id, bank_code, expires_at, paid_at, needs_review,
review_reason, refund_amount, refund_reason, refunded_at, created_at, updated_at`

func (r *MySQLPaymentRepo) GetByOrderCode(ctx context.Context, orderCode int64) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE order_code = ?`, orderCode)
	return scanPayment(row)
}

func (r *MySQLPaymentRepo) GetByProviderRef(ctx context.Context, ref string) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE provider_ref = ?`, ref)
	return scanPayment(row)
}

func (r *MySQLPaymentRepo) AttachSession(ctx context.Context, paymentID string, txn domain.PaymentTransaction) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE payments
SET checkout_url = ?, qr_code = ?, provider_ref = ?, expires_at = ?, updated_at = NOW()
WHERE id = ?`,
		txn.CheckoutURL, txn.QRCode, txn.ProviderRef, nullTime(txn.ExpiresAt), paymentID,
	)
	if err != nil {
		return fmt.Errorf("attach session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.New(apperr.NotFound, "payment not found").With("id", paymentID)
	}
	return nil
}

func (r *MySQLPaymentRepo) MarkNeedsReview(ctx context.Context, paymentID, reason string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE payments SET needs_review = 1, review_reason = ?, updated_at = NOW()
WHERE id = ?`,
		reason, paymentID,
	)
	return err
}

// ApplyOutcome performs the guarded payment transition and propagates the
// result to the owning order inside one transaction. The WHERE status guard is
// what keeps reconciliation idempotent and terminal states monotone.
func (r *MySQLPaymentRepo) ApplyOutcome(ctx context.Context, orderCode int64, out usecase.PaymentOutcome) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin outcome tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
UPDATE payments
SET status = ?,
    provider_txn_id = IF(? = '', provider_txn_id, ?),
    bank_code = IF(? = '', bank_code, ?),
    paid_at = COALESCE(?, paid_at),
    updated_at = NOW()
WHERE order_code = ? AND status IN ('PENDING','PROCESSING')`,
		out.Status,
		out.ProviderTxnID, out.ProviderTxnID,
		out.BankCode, out.BankCode,
		nullTime(out.PaidAt),
		orderCode,
	)
	if err != nil {
		return false, fmt.Errorf("update payment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	switch out.Status {
	case domain.PaymentCompleted:
		_, err = tx.ExecContext(ctx, `
UPDATE orders
SET payment_status = 'PAID',
    status = IF(status = 'PENDING', 'PROCESSING', status),
    updated_at = NOW()
WHERE code = ?`, orderCode)
	case domain.PaymentFailed:
		_, err = tx.ExecContext(ctx, `
UPDATE orders SET payment_status = 'FAILED', updated_at = NOW()
WHERE code = ?`, orderCode)
	case domain.PaymentCancelled:
		_, err = tx.ExecContext(ctx, `
UPDATE orders
SET status = IF(status = 'PENDING', 'CANCELLED', status), updated_at = NOW()
WHERE code = ?`, orderCode)
	}
	if err != nil {
		return false, fmt.Errorf("propagate to order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// Refund is guarded on COMPLETED only, so a replayed refund or a racing
// status change falls through with 0 rows.
func (r *MySQLPaymentRepo) Refund(ctx context.Context, orderCode int64, ref domain.PaymentRefund) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin refund tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
UPDATE payments
SET status = 'REFUNDED', refund_amount = ?, refund_reason = ?, refunded_at = ?,
    updated_at = NOW()
WHERE order_code = ? AND status = 'COMPLETED'`,
		ref.Amount, ref.Reason, ref.RefundedAt, orderCode,
	)
	if err != nil {
		return false, fmt.Errorf("update payment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE orders SET status = 'REFUNDED', updated_at = NOW()
WHERE code = ?`, orderCode); err != nil {
		return false, fmt.Errorf("propagate to order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var (
		p            domain.Payment
		checkoutURL  sql.NullString
		qrCode       sql.NullString
		providerRef  sql.NullString
		txnID        sql.NullString
		bankCode     sql.NullString
		expiresAt    sql.NullTime
		paidAt       sql.NullTime
		reason       sql.NullString
		refundAmount sql.NullInt64
		refundReason sql.NullString
		refundedAt   sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.OrderCode, &p.Method, &p.Amount, &p.Status,
		&checkoutURL, &qrCode, &providerRef, &txnID, &bankCode,
		&expiresAt, &paidAt, &p.NeedsReview, &reason,
		&refundAmount, &refundReason, &refundedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "payment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	p.Transaction = domain.PaymentTransaction{
		CheckoutURL:   checkoutURL.String,
		QRCode:        qrCode.String,
		ProviderRef:   providerRef.String,
		ProviderTxnID: txnID.String,
		BankCode:      bankCode.String,
		ExpiresAt:     expiresAt.Time,
		PaidAt:        paidAt.Time,
	}
	p.ReviewReason = reason.String
	if refundedAt.Valid {
		p.Refund = &domain.PaymentRefund{
			Amount:     refundAmount.Int64,
			Reason:     refundReason.String,
			RefundedAt: refundedAt.Time,
		}
	}
	return &p, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

var _ usecase.PaymentRepo = (*MySQLPaymentRepo)(nil)
