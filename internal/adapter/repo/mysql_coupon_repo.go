package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/lapstore/storefront-api/internal/apperr"
	domain "github.com/lapstore/storefront-api/internal/entity"
	"github.com/lapstore/storefront-api/internal/usecase"
)

type MySQLCouponRepo struct{ db *sql.DB }

func NewMySQLCouponRepo(db *sql.DB) *MySQLCouponRepo { return &MySQLCouponRepo{db: db} }

const couponCols = `code, type, value, max_value, min_order_value, usage_limit,
per_user_limit, used_count, starts_at, ends_at, scope, products_json, active,
public, created_at, updated_at`

func (r *MySQLCouponRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+couponCols+` FROM coupons WHERE code = ?`, domain.NormalizeCouponCode(code))
	return scanCoupon(row)
}

func (r *MySQLCouponRepo) UserRedemptions(ctx context.Context, code, userID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM coupon_redemptions WHERE coupon_code = ? AND user_id = ?`,
		code, userID).Scan(&n)
	return n, err
}

func (r *MySQLCouponRepo) Create(ctx context.Context, c *domain.Coupon) error {
	products, err := marshalJSON(c.Products)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO coupons
  (code, type, value, max_value, min_order_value, usage_limit, per_user_limit,
   used_count, starts_at, ends_at, scope, products_json, active, public,
   created_at, updated_at)
VALUES (?,?,?,?,?,?,?,0,?,?,?,?,?,?,NOW(),NOW())`,
		c.Code, c.Type, c.Value, c.MaxValue, c.MinOrderValue, c.UsageLimit,
		c.PerUserLimit, c.StartsAt, nullTime(c.EndsAt), c.Scope, products,
		c.Active, c.Public,
	)
	if isDuplicate(err) {
		return apperr.New(apperr.Conflict, "coupon code already exists").With("code", c.Code)
	}
	return err
}

func (r *MySQLCouponRepo) Update(ctx context.Context, c *domain.Coupon) error {
	products, err := marshalJSON(c.Products)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE coupons
SET type = ?, value = ?, max_value = ?, min_order_value = ?, usage_limit = ?,
    per_user_limit = ?, starts_at = ?, ends_at = ?, scope = ?, products_json = ?,
    active = ?, public = ?, updated_at = NOW()
WHERE code = ?`,
		c.Type, c.Value, c.MaxValue, c.MinOrderValue, c.UsageLimit,
		c.PerUserLimit, c.StartsAt, nullTime(c.EndsAt), c.Scope, products,
		c.Active, c.Public, c.Code,
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.New(apperr.NotFound, "coupon not found").With("code", c.Code)
	}
	return nil
}

func (r *MySQLCouponRepo) Delete(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM coupons WHERE code = ?`,
		domain.NormalizeCouponCode(code))
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.New(apperr.NotFound, "coupon not found").With("code", code)
	}
	return nil
}

func (r *MySQLCouponRepo) List(ctx context.Context, publicOnly bool, limit, offset int) ([]domain.Coupon, error) {
	q := `SELECT ` + couponCols + ` FROM coupons`
	args := []any{}
	if publicOnly {
		q += ` WHERE public = 1 AND active = 1`
	}
	q += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// ReleaseRedemption undoes a redemption when a coupon is cancelled off an order.
func (r *MySQLCouponRepo) ReleaseRedemption(ctx context.Context, code, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
DELETE FROM coupon_redemptions
WHERE coupon_code = ? AND user_id = ?
LIMIT 1`, code, userID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.New(apperr.NotFound, "no redemption to release").With("code", code)
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE coupons SET used_count = used_count - 1, updated_at = NOW()
WHERE code = ? AND used_count > 0`, code); err != nil {
		return err
	}
	return tx.Commit()
}

func scanCoupon(row rowScanner) (*domain.Coupon, error) {
	var (
		c        domain.Coupon
		endsAt   sql.NullTime
		products []byte
	)
	err := row.Scan(
		&c.Code, &c.Type, &c.Value, &c.MaxValue, &c.MinOrderValue, &c.UsageLimit,
		&c.PerUserLimit, &c.UsedCount, &c.StartsAt, &endsAt, &c.Scope, &products,
		&c.Active, &c.Public, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "coupon not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scan coupon: %w", err)
	}
	c.EndsAt = endsAt.Time
	if len(products) > 0 {
		if err := unmarshalJSON(products, &c.Products); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

var _ usecase.CouponRepo = (*MySQLCouponRepo)(nil)
