package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCouponCode(t *testing.T) {
	assert.Equal(t, "TET2026", NormalizeCouponCode("  tet2026 "))
	assert.Equal(t, "SALE10", NormalizeCouponCode("Sale10"))
}

func TestCouponWithinWindow(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	c := &Coupon{StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)}
	assert.True(t, c.WithinWindow(now))
	assert.False(t, c.WithinWindow(now.Add(-2*time.Hour)))
	assert.False(t, c.WithinWindow(now.Add(2*time.Hour)))

	// zero EndsAt never expires
	c = &Coupon{StartsAt: now.Add(-time.Hour)}
	assert.True(t, c.WithinWindow(now.AddDate(10, 0, 0)))
}

func TestCouponExhausted(t *testing.T) {
	assert.False(t, (&Coupon{UsageLimit: 0, UsedCount: 999}).Exhausted(), "0 means unlimited")
	assert.False(t, (&Coupon{UsageLimit: 10, UsedCount: 9}).Exhausted())
	assert.True(t, (&Coupon{UsageLimit: 10, UsedCount: 10}).Exhausted())
}

func TestCouponAppliesTo(t *testing.T) {
	items := []OrderItem{{ProductID: "p1"}, {ProductID: "p2"}}

	assert.True(t, (&Coupon{Scope: ScopeOrder}).AppliesTo(items))
	assert.True(t, (&Coupon{Scope: ScopeProduct, Products: []string{"p2"}}).AppliesTo(items))
	assert.False(t, (&Coupon{Scope: ScopeProduct, Products: []string{"p9"}}).AppliesTo(items))
}
