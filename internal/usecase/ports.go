package usecase

import (
	"context"
	"time"

	domain "github.com/lapstore/storefront-api/internal/entity"
)

type OrderRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByCode(ctx context.Context, code int64) (*domain.Order, error)
	List(ctx context.Context, limit, offset int) ([]domain.Order, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error)
	// UpdateStatusIf moves an order from one status to another; 0 rows matched
	// (missing order or stale status) reports false.
	UpdateStatusIf(ctx context.Context, code int64, from, to domain.OrderStatus) (bool, error)
	Delete(ctx context.Context, id string) error
}

// PaymentOutcome is a normalized provider-reported result.
type PaymentOutcome struct {
	Status        domain.PaymentStatus // COMPLETED | FAILED | CANCELLED
	ProviderTxnID string
	BankCode      string
	PaidAt        time.Time
}

type PaymentRepo interface {
	GetByOrderCode(ctx context.Context, orderCode int64) (*domain.Payment, error)
	GetByProviderRef(ctx context.Context, ref string) (*domain.Payment, error)
	AttachSession(ctx context.Context, paymentID string, txn domain.PaymentTransaction) error
	MarkNeedsReview(ctx context.Context, paymentID, reason string) error
	// ApplyOutcome transitions the payment and the owning order's payment status
	// in one transaction, guarded so terminal states are never overwritten.
	// Returns false when the guard let nothing through.
	ApplyOutcome(ctx context.Context, orderCode int64, out PaymentOutcome) (bool, error)
	// Refund moves a COMPLETED payment to REFUNDED and records the refund
	// sub-object; any other current status reports false.
	Refund(ctx context.Context, orderCode int64, ref domain.PaymentRefund) (bool, error)
}

type CouponRepo interface {
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
	UserRedemptions(ctx context.Context, code, userID string) (int64, error)
}

// CheckoutStore persists the whole checkout write set (order, optional
// payment, conditional stock decrements and coupon usage increments) in a
// single transaction.
type CheckoutStore interface {
	PlaceOrder(ctx context.Context, o *domain.Order, p *domain.Payment) error
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	// Unlock releases a key whose request failed before anything was written,
	// so a corrected retry is not locked out until the TTL expires.
	Unlock(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

type StatusCache interface {
	SetStatus(ctx context.Context, orderCode int64, status string) error
	GetStatus(ctx context.Context, orderCode int64) (string, bool, error)
}

type SessionRequest struct {
	OrderCode int64
	Amount    int64
	OrderInfo string
}

type Session struct {
	CheckoutURL string
	QRCode      string
	ProviderRef string
	ExpiresAt   time.Time
}

// PaymentProvider is the outbound gateway contract (MoMo, PayOS).
type PaymentProvider interface {
	Name() string
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	CancelSession(ctx context.Context, providerRef string, orderCode int64, reason string) error
	// Query asks the provider for the current state of a transaction; settled
	// is false while the provider still reports it in flight.
	Query(ctx context.Context, orderCode int64) (PaymentOutcome, bool, error)
}

type ProviderRegistry interface {
	For(m domain.PaymentMethod) (PaymentProvider, bool)
}

type EventPublisher interface {
	PublishReconcileTask(ctx context.Context, msg ReconcileTaskMsg) error
}

// OutboxEvent is a pending event row written inside the checkout transaction.
// A relay drains rows to the broker, so the fanout survives a broker outage
// at checkout time.
type OutboxEvent struct {
	ID      int64
	Channel string
	Payload []byte
}

type OutboxRepo interface {
	NextBatch(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkSent(ctx context.Context, id int64) error
	// Delay pushes a failed row's next attempt into the future.
	Delay(ctx context.Context, id int64, retryIn time.Duration) error
}
