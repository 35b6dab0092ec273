package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lapstore/storefront-api/internal/apperr"
	domain "github.com/lapstore/storefront-api/internal/entity"
)

type CreateOrderInput struct {
	UserID         string
	IdempotencyKey string
	PaymentMethod  domain.PaymentMethod
	ShippingMethod domain.ShippingMethod
	Address        domain.ShippingAddress
	Items          []domain.OrderItem
	CouponCodes    []string
	ShippingCost   int64
	// TotalAmount is the client-declared total; 0 skips the cross-check.
	TotalAmount int64
}

type CreateOrderOutput struct {
	Order         *domain.Order
	CheckoutURL   string
	QRCode        string
	CouponResults []CouponResult
	Replayed      bool
}

type CreateOrder struct {
	store     CheckoutStore
	orders    OrderRepo
	payments  PaymentRepo
	coupons   *ApplyCoupon
	providers ProviderRegistry
	idem      IdempotencyStore
	events    EventPublisher
	now       func() time.Time
	newID     func() string
}

func NewCreateOrder(
	store CheckoutStore,
	orders OrderRepo,
	payments PaymentRepo,
	coupons *ApplyCoupon,
	providers ProviderRegistry,
	idem IdempotencyStore,
	events EventPublisher,
) *CreateOrder {
	return &CreateOrder{
		store:     store,
		orders:    orders,
		payments:  payments,
		coupons:   coupons,
		providers: providers,
		idem:      idem,
		events:    events,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (uc *CreateOrder) Execute(ctx context.Context, in CreateOrderInput) (*CreateOrderOutput, error) {
	now := uc.now()

	order := &domain.Order{
		ID:             uc.newID(),
		Code:           now.UnixMilli(),
		UserID:         in.UserID,
		Items:          in.Items,
		Address:        in.Address,
		ShippingMethod: in.ShippingMethod,
		ShippingCost:   in.ShippingCost,
		PaymentMethod:  in.PaymentMethod,
		Status:         domain.OrderPending,
		PaymentStatus:  domain.PayPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := order.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.Validation, "invalid order", err)
	}

	// Fast path: same idempotency key returns the previously created order.
	if in.IdempotencyKey != "" {
		if id, ok, _ := uc.idem.Recall(ctx, in.UserID, in.IdempotencyKey); ok {
			prev, err := uc.orders.GetByID(ctx, id)
			if err == nil {
				return &CreateOrderOutput{Order: prev, Replayed: true}, nil
			}
		}
		ok, err := uc.idem.TryLock(ctx, in.UserID, in.IdempotencyKey)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "idempotency lock", err)
		}
		if !ok {
			return nil, apperr.New(apperr.Conflict, "duplicate checkout request").
				With("idempotencyKey", in.IdempotencyKey)
		}
	}

	// abort releases the idempotency key on failures that wrote nothing, so a
	// corrected retry with the same key is not locked out until the TTL expires.
	abort := func(err error) error {
		if in.IdempotencyKey != "" {
			_ = uc.idem.Unlock(ctx, in.UserID, in.IdempotencyKey)
		}
		return err
	}

	subtotal := order.Subtotal()
	var results []CouponResult
	var discountSum int64
	seen := make(map[string]bool, len(in.CouponCodes))
	for _, code := range in.CouponCodes {
		norm := domain.NormalizeCouponCode(code)
		if seen[norm] {
			return nil, abort(apperr.New(apperr.Validation, "coupon applied more than once").
				With("coupon", norm).With("reason", "duplicate"))
		}
		seen[norm] = true

		res, err := uc.coupons.Apply(ctx, ApplyCouponInput{
			Code:         code,
			UserID:       in.UserID,
			Subtotal:     subtotal,
			ShippingCost: in.ShippingCost,
			Items:        order.Items,
		})
		if err != nil {
			return nil, abort(err)
		}
		results = append(results, res)
		order.CouponCodes = append(order.CouponCodes, res.Code)
		discountSum += res.Discount
	}

	total := subtotal + in.ShippingCost - discountSum
	if total < 0 {
		total = 0
	}
	if in.TotalAmount != 0 && in.TotalAmount != total {
		return nil, abort(apperr.New(apperr.Validation, "declared total does not match computed total").
			With("declared", in.TotalAmount).With("computed", total))
	}
	order.DiscountTotal = discountSum
	order.TotalAmount = total

	var payment *domain.Payment
	if order.PaymentMethod.Online() {
		payment = &domain.Payment{
			ID:        uc.newID(),
			OrderCode: order.Code,
			Method:    order.PaymentMethod,
			Amount:    total,
			Status:    domain.PaymentPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		order.PaymentID = payment.ID
	}

	// Single transaction: stock decrement, coupon usage, order + payment rows,
	// and the order.placed outbox row the relay later drains to RabbitMQ.
	if err := uc.store.PlaceOrder(ctx, order, payment); err != nil {
		return nil, abort(err)
	}

	// The order row exists from here on: remember it before the provider call
	// so a retry replays the order even if the session step fails.
	if in.IdempotencyKey != "" {
		_ = uc.idem.Remember(ctx, in.UserID, in.IdempotencyKey, order.ID)
	}

	out := &CreateOrderOutput{Order: order, CouponResults: results}
	if payment != nil {
		if err := uc.openPaymentSession(ctx, order, payment, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// openPaymentSession calls the provider for a checkout URL / QR payload. A
// failure here leaves the order and payment rows in place: the payment is
// flagged for review and a reconcile task queued, then the provider error is
// surfaced to the caller.
func (uc *CreateOrder) openPaymentSession(ctx context.Context, order *domain.Order, payment *domain.Payment, out *CreateOrderOutput) error {
	prov, ok := uc.providers.For(order.PaymentMethod)
	if !ok {
		return apperr.Newf(apperr.Internal, "no provider registered for method %s", order.PaymentMethod)
	}

	sess, err := prov.CreateSession(ctx, SessionRequest{
		OrderCode: order.Code,
		Amount:    order.TotalAmount,
		OrderInfo: fmt.Sprintf("Order #%d", order.Code),
	})
	if err != nil {
		_ = uc.payments.MarkNeedsReview(ctx, payment.ID, err.Error())
		_ = uc.events.PublishReconcileTask(ctx, ReconcileTaskMsg{
			Provider:  prov.Name(),
			OrderCode: order.Code,
			Reason:    "session_create_failed",
		})
		return err
	}

	txn := domain.PaymentTransaction{
		CheckoutURL: sess.CheckoutURL,
		QRCode:      sess.QRCode,
		ProviderRef: sess.ProviderRef,
		ExpiresAt:   sess.ExpiresAt,
	}
	if err := uc.payments.AttachSession(ctx, payment.ID, txn); err != nil {
		_ = uc.payments.MarkNeedsReview(ctx, payment.ID, "session persist failed")
		_ = uc.events.PublishReconcileTask(ctx, ReconcileTaskMsg{
			Provider:  prov.Name(),
			OrderCode: order.Code,
			Reason:    "session_persist_failed",
		})
		return apperr.Wrap(apperr.Internal, "persist payment session", err)
	}

	payment.Transaction = txn
	out.CheckoutURL = sess.CheckoutURL
	out.QRCode = sess.QRCode
	return nil
}
