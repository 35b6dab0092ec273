package usecase

import (
	"context"
	"time"

	"github.com/lapstore/storefront-api/internal/apperr"
	"github.com/lapstore/storefront-api/internal/discount"
	domain "github.com/lapstore/storefront-api/internal/entity"
)

// CouponResult is the per-coupon discount breakdown returned to the client.
type CouponResult struct {
	Code     string            `json:"code"`
	Type     domain.CouponType `json:"type"`
	Discount int64             `json:"discount"`
}

type ApplyCouponInput struct {
	Code         string
	UserID       string
	Subtotal     int64
	ShippingCost int64
	Items        []domain.OrderItem
}

// ApplyCoupon validates a coupon against an order and computes its discount.
// Pure read path: usage counters are only incremented when the order is placed.
type ApplyCoupon struct {
	coupons CouponRepo
	now     func() time.Time
}

func NewApplyCoupon(coupons CouponRepo) *ApplyCoupon {
	return &ApplyCoupon{coupons: coupons, now: time.Now}
}

func (uc *ApplyCoupon) Apply(ctx context.Context, in ApplyCouponInput) (CouponResult, error) {
	code := domain.NormalizeCouponCode(in.Code)

	cp, err := uc.coupons.GetByCode(ctx, code)
	if err != nil {
		return CouponResult{}, err
	}
	if !cp.Active {
		return CouponResult{}, apperr.New(apperr.Validation, "coupon is not active").
			With("coupon", code).With("reason", "inactive")
	}

	now := uc.now()
	if !cp.WithinWindow(now) {
		reason := "expired"
		if now.Before(cp.StartsAt) {
			reason = "not_started"
		}
		return CouponResult{}, apperr.New(apperr.Validation, "coupon outside validity window").
			With("coupon", code).With("reason", reason)
	}
	if cp.Exhausted() {
		return CouponResult{}, apperr.New(apperr.Validation, "coupon usage limit reached").
			With("coupon", code).With("reason", "exhausted")
	}
	if cp.PerUserLimit > 0 {
		used, err := uc.coupons.UserRedemptions(ctx, code, in.UserID)
		if err != nil {
			return CouponResult{}, apperr.Wrap(apperr.Internal, "coupon usage lookup", err)
		}
		if used >= cp.PerUserLimit {
			return CouponResult{}, apperr.New(apperr.Validation, "coupon usage limit reached for user").
				With("coupon", code).With("reason", "user_exhausted")
		}
	}
	if in.Subtotal < cp.MinOrderValue {
		return CouponResult{}, apperr.New(apperr.Validation, "order below coupon minimum").
			With("coupon", code).With("minOrderValue", cp.MinOrderValue)
	}
	if !cp.AppliesTo(in.Items) {
		return CouponResult{}, apperr.New(apperr.Validation, "coupon does not apply to these items").
			With("coupon", code).With("reason", "scope_mismatch")
	}

	d, err := discount.Compute(cp, in.Subtotal, in.ShippingCost)
	if err != nil {
		// a stored coupon with an unregistered type is corrupt data, not client error
		return CouponResult{}, apperr.Wrap(apperr.Internal, "discount strategy", err).
			With("coupon", code)
	}
	return CouponResult{Code: code, Type: cp.Type, Discount: d}, nil
}
