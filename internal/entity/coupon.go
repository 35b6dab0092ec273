package domain

import (
	"strings"
	"time"
)

type CouponType string

const (
	CouponPercent      CouponType = "PERCENT"
	CouponAmount       CouponType = "AMOUNT"
	CouponFreeShipping CouponType = "FREESHIPPING"
)

type CouponScope string

const (
	ScopeOrder    CouponScope = "order"
	ScopeProduct  CouponScope = "product"
	ScopeShipping CouponScope = "shipping"
)

type Coupon struct {
	Code          string
	Type          CouponType
	Value         int64 // percent points for PERCENT, VND otherwise
	MaxValue      int64 // cap for PERCENT; 0 = uncapped
	MinOrderValue int64
	UsageLimit    int64 // 0 = unlimited
	PerUserLimit  int64 // 0 = unlimited
	UsedCount     int64
	StartsAt      time.Time
	EndsAt        time.Time
	Scope         CouponScope
	Products      []string // product ids the coupon targets when Scope == product
	Active        bool
	Public        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NormalizeCouponCode upper-cases and trims a user-supplied code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// WithinWindow reports whether now falls inside the validity window.
// A zero EndsAt means the coupon never expires.
func (c *Coupon) WithinWindow(now time.Time) bool {
	if now.Before(c.StartsAt) {
		return false
	}
	if !c.EndsAt.IsZero() && now.After(c.EndsAt) {
		return false
	}
	return true
}

func (c *Coupon) Exhausted() bool {
	return c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit
}

// AppliesTo reports whether the coupon's scope matches the given items.
func (c *Coupon) AppliesTo(items []OrderItem) bool {
	if c.Scope != ScopeProduct {
		return true
	}
	for _, it := range items {
		for _, id := range c.Products {
			if it.ProductID == id {
				return true
			}
		}
	}
	return false
}
