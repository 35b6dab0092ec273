package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lapstore/storefront-api/internal/apperr"
	domain "github.com/lapstore/storefront-api/internal/entity"
	"github.com/lapstore/storefront-api/internal/usecase"
)

type MySQLOrderRepo struct{ db *sql.DB }

func NewMySQLOrderRepo(db *sql.DB) *MySQLOrderRepo { return &MySQLOrderRepo{db: db} }

const orderCols = `id, code, user_id, status, payment_status, payment_method,
shipping_method, shipping_cost, discount_total, total_amount, payment_id,
items_json, address_json, coupon_codes_json, created_at, updated_at`

func (r *MySQLOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id = ?`, id)
	return scanOrder(row)
}

func (r *MySQLOrderRepo) GetByCode(ctx context.Context, code int64) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderCols+` FROM orders WHERE code = ?`, code)
	return scanOrder(row)
}

func (r *MySQLOrderRepo) List(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderCols+` FROM orders ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *MySQLOrderRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderCols+` FROM orders WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *MySQLOrderRepo) UpdateStatusIf(ctx context.Context, code int64, from, to domain.OrderStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET status = ?, updated_at = NOW()
WHERE code = ? AND status = ?`,
		to, code, from,
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	// rows == 0 -> nothing matched (either not found or status mismatch)
	return rows > 0, nil
}

func (r *MySQLOrderRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.New(apperr.NotFound, "order not found").With("id", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o         domain.Order
		paymentID sql.NullString
		items     []byte
		address   []byte
		coupons   []byte
	)
	err := row.Scan(
		&o.ID, &o.Code, &o.UserID, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.ShippingMethod, &o.ShippingCost, &o.DiscountTotal, &o.TotalAmount,
		&paymentID, &items, &address, &coupons, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.PaymentID = paymentID.String
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if err := json.Unmarshal(address, &o.Address); err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	if len(coupons) > 0 {
		if err := json.Unmarshal(coupons, &o.CouponCodes); err != nil {
			return nil, fmt.Errorf("decode coupon codes: %w", err)
		}
	}
	return &o, nil
}

func collectOrders(rows *sql.Rows) ([]domain.Order, error) {
	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func marshalJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return b, nil
}

func unmarshalJSON(b []byte, v any) error {
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ usecase.OrderRepo = (*MySQLOrderRepo)(nil)
