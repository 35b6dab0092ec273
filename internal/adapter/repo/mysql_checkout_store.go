package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lapstore/storefront-api/internal/apperr"
	domain "github.com/lapstore/storefront-api/internal/entity"
	"github.com/lapstore/storefront-api/internal/usecase"
)

// MySQLCheckoutStore commits the whole checkout write set in one transaction.
// Stock and coupon usage are conditional updates: 0 rows matched means the
// concurrent winner took the last unit (or the last redemption) first.
type MySQLCheckoutStore struct{ db *sql.DB }

func NewMySQLCheckoutStore(db *sql.DB) *MySQLCheckoutStore { return &MySQLCheckoutStore{db: db} }

func (s *MySQLCheckoutStore) PlaceOrder(ctx context.Context, o *domain.Order, p *domain.Payment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkout tx: %w", err)
	}
	defer tx.Rollback()

	for _, it := range o.Items {
		res, err := tx.ExecContext(ctx, `
UPDATE products SET quantity = quantity - ?, updated_at = NOW()
WHERE id = ? AND quantity >= ?`,
			it.Quantity, it.ProductID, it.Quantity,
		)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return apperr.New(apperr.Conflict, "product out of stock").
				With("productId", it.ProductID).With("requested", it.Quantity)
		}
	}

	for _, code := range o.CouponCodes {
		res, err := tx.ExecContext(ctx, `
UPDATE coupons SET used_count = used_count + 1, updated_at = NOW()
WHERE code = ? AND active = 1 AND (usage_limit = 0 OR used_count < usage_limit)`,
			code,
		)
		if err != nil {
			return fmt.Errorf("increment coupon usage: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return apperr.New(apperr.Conflict, "coupon no longer available").
				With("coupon", code)
		}
		// Conditional insert: the per-user cap is re-checked against committed
		// redemptions, so racing checkouts with the same code cannot both land.
		res, err = tx.ExecContext(ctx, `
INSERT INTO coupon_redemptions (coupon_code, user_id, order_code, created_at)
SELECT c.code, ?, ?, NOW() FROM coupons c
WHERE c.code = ?
  AND (c.per_user_limit = 0 OR (
    SELECT COUNT(*) FROM coupon_redemptions r
    WHERE r.coupon_code = c.code AND r.user_id = ?) < c.per_user_limit)`,
			o.UserID, o.Code, code, o.UserID,
		)
		if err != nil {
			return fmt.Errorf("record redemption: %w", err)
		}
		rows, err = res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return apperr.New(apperr.Conflict, "coupon usage limit reached for user").
				With("coupon", code).With("reason", "user_exhausted")
		}
	}

	items, err := marshalJSON(o.Items)
	if err != nil {
		return err
	}
	address, err := marshalJSON(o.Address)
	if err != nil {
		return err
	}
	coupons, err := marshalJSON(o.CouponCodes)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO orders
  (id, code, user_id, status, payment_status, payment_method, shipping_method,
   shipping_cost, discount_total, total_amount, payment_id, items_json,
   address_json, coupon_codes_json, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,NOW(),NOW())`,
		o.ID, o.Code, o.UserID, o.Status, o.PaymentStatus, o.PaymentMethod,
		o.ShippingMethod, o.ShippingCost, o.DiscountTotal, o.TotalAmount,
		nullStr(o.PaymentID), items, address, coupons,
	); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if p != nil {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO payments
  (id, order_code, method, amount, status, needs_review, created_at, updated_at)
VALUES (?,?,?,?,?,0,NOW(),NOW())`,
			p.ID, p.OrderCode, p.Method, p.Amount, p.Status,
		); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
	}

	// order.placed goes through the outbox: committed with the order, drained
	// to RabbitMQ by the relay, so the fanout cannot be lost to a broker outage.
	event, err := marshalJSON(usecase.OrderPlacedMsg{
		OrderID:   o.ID,
		OrderCode: o.Code,
		UserID:    o.UserID,
		Total:     o.TotalAmount,
		Method:    string(o.PaymentMethod),
	})
	if err != nil {
		return err
	}
	if err := insertOutboxTx(ctx, tx, "order.placed", event); err != nil {
		return err
	}

	return tx.Commit()
}

var _ usecase.CheckoutStore = (*MySQLCheckoutStore)(nil)
