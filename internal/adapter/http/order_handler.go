package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lapstore/storefront-api/internal/apperr"
	domain "github.com/lapstore/storefront-api/internal/entity"
	"github.com/lapstore/storefront-api/internal/usecase"
)

type OrderHandler struct {
	create *usecase.CreateOrder
	orders usecase.OrderRepo
}

func NewOrderHandler(create *usecase.CreateOrder, orders usecase.OrderRepo) *OrderHandler {
	return &OrderHandler{create: create, orders: orders}
}

type orderItemReq struct {
	ProductID string `json:"productId" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
	UnitPrice int64  `json:"unitPrice" binding:"gte=0"`
	Image     string `json:"image"`
}

type addressReq struct {
	FullName string `json:"fullName" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Email    string `json:"email"`
	Street   string `json:"street" binding:"required"`
	Ward     string `json:"ward" binding:"required"`
	District string `json:"district" binding:"required"`
	Province string `json:"province" binding:"required"`
}

type createOrderReq struct {
	UserID         string         `json:"userId" binding:"required"`
	Items          []orderItemReq `json:"items" binding:"required,min=1,dive"`
	Address        addressReq     `json:"address" binding:"required"`
	PaymentMethod  string         `json:"paymentMethod" binding:"required"`
	ShippingMethod string         `json:"shippingMethod" binding:"required"`
	ShippingCost   int64          `json:"shippingCost" binding:"gte=0"`
	CouponCodes    []string       `json:"couponCodes"`
	// TotalAmount is the client's computed total; the server recomputes and
	// rejects on mismatch. Omit (0) to skip the cross-check.
	TotalAmount int64 `json:"totalAmount"`
}

type createOrderResp struct {
	OrderID     string                 `json:"orderId"`
	OrderCode   int64                  `json:"orderCode"`
	Status      string                 `json:"status"`
	Total       int64                  `json:"total"`
	Discount    int64                  `json:"discount"`
	Coupons     []usecase.CouponResult `json:"coupons,omitempty"`
	CheckoutURL string                 `json:"checkoutUrl,omitempty"`
	QRCode      string                 `json:"qrCode,omitempty"`
	Replayed    bool                   `json:"replayed,omitempty"`
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Image:     it.Image,
		})
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	out, err := h.create.Execute(ctx, usecase.CreateOrderInput{
		UserID:         req.UserID,
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
		PaymentMethod:  domain.PaymentMethod(req.PaymentMethod),
		ShippingMethod: domain.ShippingMethod(req.ShippingMethod),
		Address: domain.ShippingAddress{
			FullName: req.Address.FullName,
			Phone:    req.Address.Phone,
			Email:    req.Address.Email,
			Street:   req.Address.Street,
			Ward:     req.Address.Ward,
			District: req.Address.District,
			Province: req.Address.Province,
		},
		Items:        items,
		CouponCodes:  req.CouponCodes,
		ShippingCost: req.ShippingCost,
		TotalAmount:  req.TotalAmount,
	})
	if err != nil {
		fail(c, err)
		return
	}

	ordersPlaced.WithLabelValues(string(out.Order.PaymentMethod)).Inc()

	status := http.StatusCreated
	if out.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, createOrderResp{
		OrderID:     out.Order.ID,
		OrderCode:   out.Order.Code,
		Status:      string(out.Order.Status),
		Total:       out.Order.TotalAmount,
		Discount:    out.Order.DiscountTotal,
		Coupons:     out.CouponResults,
		CheckoutURL: out.CheckoutURL,
		QRCode:      out.QRCode,
		Replayed:    out.Replayed,
	})
}

type orderResp struct {
	ID             string                 `json:"id"`
	Code           int64                  `json:"code"`
	UserID         string                 `json:"userId"`
	Items          []domain.OrderItem     `json:"items"`
	Address        domain.ShippingAddress `json:"address"`
	ShippingMethod string                 `json:"shippingMethod"`
	ShippingCost   int64                  `json:"shippingCost"`
	CouponCodes    []string               `json:"couponCodes,omitempty"`
	DiscountTotal  int64                  `json:"discountTotal"`
	TotalAmount    int64                  `json:"totalAmount"`
	Status         string                 `json:"status"`
	PaymentStatus  string                 `json:"paymentStatus"`
	PaymentMethod  string                 `json:"paymentMethod"`
	CreatedAt      time.Time              `json:"createdAt"`
}

func toOrderResp(o *domain.Order) orderResp {
	return orderResp{
		ID:             o.ID,
		Code:           o.Code,
		UserID:         o.UserID,
		Items:          o.Items,
		Address:        o.Address,
		ShippingMethod: string(o.ShippingMethod),
		ShippingCost:   o.ShippingCost,
		CouponCodes:    o.CouponCodes,
		DiscountTotal:  o.DiscountTotal,
		TotalAmount:    o.TotalAmount,
		Status:         string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		PaymentMethod:  string(o.PaymentMethod),
		CreatedAt:      o.CreatedAt,
	}
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	o, err := h.orders.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResp(o))
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	limit, offset := pagination(c)
	list, err := h.orders.List(c.Request.Context(), limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": toOrderResps(list), "limit": limit, "offset": offset})
}

func (h *OrderHandler) ListOrdersByUser(c *gin.Context) {
	limit, offset := pagination(c)
	list, err := h.orders.ListByUser(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": toOrderResps(list), "limit": limit, "offset": offset})
}

type updateStatusReq struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderStatus is the admin fulfilment endpoint. The transition table in
// the domain is enforced first, then the write is guarded against a concurrent
// status change.
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	o, err := h.orders.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	to := domain.OrderStatus(req.Status)
	if !o.Status.CanTransition(to) {
		fail(c, apperr.Newf(apperr.Conflict, "cannot move order from %s to %s", o.Status, to).
			With("from", string(o.Status)).With("to", string(to)))
		return
	}

	moved, err := h.orders.UpdateStatusIf(c.Request.Context(), o.Code, o.Status, to)
	if err != nil {
		fail(c, err)
		return
	}
	if !moved {
		fail(c, apperr.New(apperr.Conflict, "order status changed concurrently"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": o.Code, "status": string(to)})
}

func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	if err := h.orders.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func toOrderResps(orders []domain.Order) []orderResp {
	out := make([]orderResp, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResp(&orders[i]))
	}
	return out
}

// pagination reads ?limit= and ?offset= with sane bounds.
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
