// Package discount computes coupon discounts as pure functions. Strategies are
// a closed set keyed by coupon type; adding a kind means adding a table entry,
// not touching order logic.
package discount

import (
	"errors"

	domain "github.com/lapstore/storefront-api/internal/entity"
)

var ErrInvalidDiscountType = errors.New("invalid discount type")

// Strategy maps (subtotal, coupon, shippingCost) to a discount amount in VND.
// Implementations must be side-effect free.
type Strategy func(subtotal int64, c *domain.Coupon, shippingCost int64) int64

var strategies = map[domain.CouponType]Strategy{
	domain.CouponPercent:      percentOff,
	domain.CouponAmount:       amountOff,
	domain.CouponFreeShipping: freeShipping,
}

// ForType selects the strategy registered for a coupon type.
func ForType(t domain.CouponType) (Strategy, error) {
	s, ok := strategies[t]
	if !ok {
		return nil, ErrInvalidDiscountType
	}
	return s, nil
}

// Compute is the one-shot form of ForType + apply.
func Compute(c *domain.Coupon, subtotal, shippingCost int64) (int64, error) {
	s, err := ForType(c.Type)
	if err != nil {
		return 0, err
	}
	return s(subtotal, c, shippingCost), nil
}

func percentOff(subtotal int64, c *domain.Coupon, _ int64) int64 {
	d := subtotal * c.Value / 100
	if c.MaxValue > 0 && d > c.MaxValue {
		d = c.MaxValue
	}
	return d
}

// amountOff clamps at the subtotal so a fixed coupon can never push an order
// total negative.
func amountOff(subtotal int64, c *domain.Coupon, _ int64) int64 {
	if c.Value > subtotal {
		return subtotal
	}
	return c.Value
}

func freeShipping(_ int64, _ *domain.Coupon, shippingCost int64) int64 {
	if shippingCost < 0 {
		return 0
	}
	return shippingCost
}
