package domain

import (
	"errors"
	"time"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderRefunded   OrderStatus = "REFUNDED"
)

type OrderPaymentStatus string

const (
	PayPending OrderPaymentStatus = "PENDING"
	PayPaid    OrderPaymentStatus = "PAID"
	PayFailed  OrderPaymentStatus = "FAILED"
)

type PaymentMethod string

const (
	MethodCOD  PaymentMethod = "COD"
	MethodBank PaymentMethod = "BANK"
	MethodMoMo PaymentMethod = "MOMO"
)

// Online reports whether the method needs a provider-side payment session.
func (m PaymentMethod) Online() bool {
	return m == MethodBank || m == MethodMoMo
}

type ShippingMethod string

const (
	ShipStandard ShippingMethod = "standard"
	ShipExpress  ShippingMethod = "express"
)

var (
	ErrEmptyOrder      = errors.New("order has no items")
	ErrInvalidItem     = errors.New("invalid order item")
	ErrInvalidAddress  = errors.New("invalid shipping address")
	ErrInvalidMethod   = errors.New("invalid payment method")
	ErrInvalidShipping = errors.New("invalid shipping method")
)

// OrderItem is a purchase-time snapshot of a product line.
type OrderItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"` // VND
	Image     string `json:"image,omitempty"`
}

type ShippingAddress struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
	Street   string `json:"street"`
	Ward     string `json:"ward"`
	District string `json:"district"`
	Province string `json:"province"`
}

type Order struct {
	ID             string
	Code           int64 // numeric, correlates with the payment provider
	UserID         string
	Items          []OrderItem
	Address        ShippingAddress
	ShippingMethod ShippingMethod
	ShippingCost   int64
	CouponCodes    []string
	DiscountTotal  int64
	TotalAmount    int64
	Status         OrderStatus
	PaymentStatus  OrderPaymentStatus
	PaymentMethod  PaymentMethod
	PaymentID      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Subtotal is the coupon-free sum of line items.
func (o *Order) Subtotal() int64 {
	var sum int64
	for _, it := range o.Items {
		sum += it.UnitPrice * it.Quantity
	}
	return sum
}

func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return ErrEmptyOrder
	}
	for _, it := range o.Items {
		if it.ProductID == "" || it.Quantity < 1 || it.UnitPrice < 0 {
			return ErrInvalidItem
		}
	}
	if err := o.Address.Validate(); err != nil {
		return err
	}
	switch o.PaymentMethod {
	case MethodCOD, MethodBank, MethodMoMo:
	default:
		return ErrInvalidMethod
	}
	switch o.ShippingMethod {
	case ShipStandard, ShipExpress:
	default:
		return ErrInvalidShipping
	}
	return nil
}

func (a ShippingAddress) Validate() error {
	if a.FullName == "" || a.Phone == "" || a.Street == "" ||
		a.Ward == "" || a.District == "" || a.Province == "" {
		return ErrInvalidAddress
	}
	return nil
}

// orderTransitions guards admin status updates; a status can only move forward
// along fulfilment, or sideways into CANCELLED/REFUNDED.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
	OrderDelivered:  {OrderRefunded},
}

func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}
