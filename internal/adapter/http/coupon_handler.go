package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domain "github.com/lapstore/storefront-api/internal/entity"
	"github.com/lapstore/storefront-api/internal/usecase"
)

// CouponAdminRepo is the write side of coupon management; the storefront only
// reads coupons through the apply use case.
type CouponAdminRepo interface {
	Create(ctx context.Context, c *domain.Coupon) error
	Update(ctx context.Context, c *domain.Coupon) error
	Delete(ctx context.Context, code string) error
	List(ctx context.Context, publicOnly bool, limit, offset int) ([]domain.Coupon, error)
	// ReleaseRedemption backs the storefront's coupon cancel: the redemption row
	// is removed and the usage counter decremented.
	ReleaseRedemption(ctx context.Context, code, userID string) error
}

type CouponHandler struct {
	apply *usecase.ApplyCoupon
	admin CouponAdminRepo
}

func NewCouponHandler(apply *usecase.ApplyCoupon, admin CouponAdminRepo) *CouponHandler {
	return &CouponHandler{apply: apply, admin: admin}
}

type applyCouponReq struct {
	Code         string         `json:"code" binding:"required"`
	UserID       string         `json:"userId" binding:"required"`
	Items        []orderItemReq `json:"items" binding:"required,min=1,dive"`
	ShippingCost int64          `json:"shippingCost" binding:"gte=0"`
}

// ApplyCoupon previews a coupon against a cart without reserving usage.
func (h *CouponHandler) ApplyCoupon(c *gin.Context) {
	var req applyCouponReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	var subtotal int64
	for _, it := range req.Items {
		items = append(items, domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
		subtotal += it.UnitPrice * it.Quantity
	}

	res, err := h.apply.Apply(c.Request.Context(), usecase.ApplyCouponInput{
		Code:         req.Code,
		UserID:       req.UserID,
		Subtotal:     subtotal,
		ShippingCost: req.ShippingCost,
		Items:        items,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type cancelCouponReq struct {
	Code   string `json:"code" binding:"required"`
	UserID string `json:"userId" binding:"required"`
}

// CancelCoupon releases a previously counted redemption, e.g. when the user
// removes a coupon from an order that was cancelled before payment.
func (h *CouponHandler) CancelCoupon(c *gin.Context) {
	var req cancelCouponReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	code := domain.NormalizeCouponCode(req.Code)
	if err := h.admin.ReleaseRedemption(c.Request.Context(), code, req.UserID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code, "released": true})
}

type couponReq struct {
	Code          string    `json:"code" binding:"required"`
	Type          string    `json:"type" binding:"required,oneof=PERCENT AMOUNT FREESHIPPING"`
	Value         int64     `json:"value" binding:"gte=0"`
	MaxValue      int64     `json:"maxValue" binding:"gte=0"`
	MinOrderValue int64     `json:"minOrderValue" binding:"gte=0"`
	UsageLimit    int64     `json:"usageLimit" binding:"gte=0"`
	PerUserLimit  int64     `json:"perUserLimit" binding:"gte=0"`
	StartsAt      time.Time `json:"startsAt"`
	EndsAt        time.Time `json:"endsAt"`
	Scope         string    `json:"scope"`
	Products      []string  `json:"products"`
	Active        bool      `json:"active"`
	Public        bool      `json:"public"`
}

func (r couponReq) toDomain() *domain.Coupon {
	scope := domain.CouponScope(r.Scope)
	if scope == "" {
		scope = domain.ScopeOrder
	}
	return &domain.Coupon{
		Code:          domain.NormalizeCouponCode(r.Code),
		Type:          domain.CouponType(r.Type),
		Value:         r.Value,
		MaxValue:      r.MaxValue,
		MinOrderValue: r.MinOrderValue,
		UsageLimit:    r.UsageLimit,
		PerUserLimit:  r.PerUserLimit,
		StartsAt:      r.StartsAt,
		EndsAt:        r.EndsAt,
		Scope:         scope,
		Products:      r.Products,
		Active:        r.Active,
		Public:        r.Public,
	}
}

func (h *CouponHandler) CreateCoupon(c *gin.Context) {
	var req couponReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cp := req.toDomain()
	if err := h.admin.Create(c.Request.Context(), cp); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": cp.Code})
}

func (h *CouponHandler) UpdateCoupon(c *gin.Context) {
	var req couponReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cp := req.toDomain()
	cp.Code = domain.NormalizeCouponCode(c.Param("code"))
	if err := h.admin.Update(c.Request.Context(), cp); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": cp.Code})
}

func (h *CouponHandler) DeleteCoupon(c *gin.Context) {
	if err := h.admin.Delete(c.Request.Context(), domain.NormalizeCouponCode(c.Param("code"))); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListCoupons returns public coupons for the storefront; ?all=true (admin
// route) includes private and inactive ones.
func (h *CouponHandler) ListCoupons(c *gin.Context) {
	limit, offset := pagination(c)
	publicOnly := c.Query("all") != "true"
	list, err := h.admin.List(c.Request.Context(), publicOnly, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupons": toCouponResps(list), "limit": limit, "offset": offset})
}

type couponResp struct {
	Code          string    `json:"code"`
	Type          string    `json:"type"`
	Value         int64     `json:"value"`
	MaxValue      int64     `json:"maxValue,omitempty"`
	MinOrderValue int64     `json:"minOrderValue,omitempty"`
	UsageLimit    int64     `json:"usageLimit,omitempty"`
	PerUserLimit  int64     `json:"perUserLimit,omitempty"`
	UsedCount     int64     `json:"usedCount"`
	StartsAt      time.Time `json:"startsAt"`
	EndsAt        time.Time `json:"endsAt,omitempty"`
	Scope         string    `json:"scope"`
	Active        bool      `json:"active"`
	Public        bool      `json:"public"`
}

func toCouponResps(coupons []domain.Coupon) []couponResp {
	out := make([]couponResp, 0, len(coupons))
	for _, cp := range coupons {
		out = append(out, couponResp{
			Code:          cp.Code,
			Type:          string(cp.Type),
			Value:         cp.Value,
			MaxValue:      cp.MaxValue,
			MinOrderValue: cp.MinOrderValue,
			UsageLimit:    cp.UsageLimit,
			PerUserLimit:  cp.PerUserLimit,
			UsedCount:     cp.UsedCount,
			StartsAt:      cp.StartsAt,
			EndsAt:        cp.EndsAt,
			Scope:         string(cp.Scope),
			Active:        cp.Active,
			Public:        cp.Public,
		})
	}
	return out
}
