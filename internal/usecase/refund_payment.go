package usecase

import (
	"context"
	"time"

	"github.com/lapstore/storefront-api/internal/apperr"
	domain "github.com/lapstore/storefront-api/internal/entity"
	"github.com/lapstore/storefront-api/internal/logging"
)

// RefundPayment is the admin-driven refund of a completed payment. Only
// COMPLETED payments can be refunded; the guarded write keeps a concurrent
// webhook or a double-submitted refund from applying twice.
type RefundPayment struct {
	payments PaymentRepo
	cache    StatusCache
	now      func() time.Time
}

func NewRefundPayment(payments PaymentRepo, cache StatusCache) *RefundPayment {
	return &RefundPayment{payments: payments, cache: cache, now: time.Now}
}

func (uc *RefundPayment) Execute(ctx context.Context, orderCode, amount int64, reason string) (*domain.Payment, error) {
	p, err := uc.payments.GetByOrderCode(ctx, orderCode)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PaymentCompleted {
		return nil, apperr.New(apperr.Conflict, "only completed payments can be refunded").
			With("status", string(p.Status))
	}

	if amount == 0 {
		amount = p.Amount
	}
	if amount < 0 || amount > p.Amount {
		return nil, apperr.New(apperr.Validation, "refund exceeds paid amount").
			With("amount", amount).With("paid", p.Amount)
	}

	ref := domain.PaymentRefund{Amount: amount, Reason: reason, RefundedAt: uc.now()}
	applied, err := uc.payments.Refund(ctx, orderCode, ref)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "apply refund", err)
	}
	if !applied {
		return nil, apperr.New(apperr.Conflict, "payment state changed concurrently")
	}

	if err := uc.cache.SetStatus(ctx, orderCode, string(domain.PaymentRefunded)); err != nil {
		logging.FromCtx(ctx).Warn("status cache update failed", "orderCode", orderCode, "err", err)
	}
	p.Status = domain.PaymentRefunded
	p.Refund = &ref
	return p, nil
}
