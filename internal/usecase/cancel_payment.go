package usecase

import (
	"context"

	"github.com/lapstore/storefront-api/internal/apperr"
	domain "github.com/lapstore/storefront-api/internal/entity"
	"github.com/lapstore/storefront-api/internal/logging"
)

// CancelPayment handles a user-initiated cancellation of a pending payment
// session. A payment that already reached a terminal state wins over the
// cancel: the later writer loses.
type CancelPayment struct {
	payments  PaymentRepo
	providers ProviderRegistry
	cache     StatusCache
}

func NewCancelPayment(payments PaymentRepo, providers ProviderRegistry, cache StatusCache) *CancelPayment {
	return &CancelPayment{payments: payments, providers: providers, cache: cache}
}

func (uc *CancelPayment) Execute(ctx context.Context, providerRef, reason string) (*domain.Payment, error) {
	p, err := uc.payments.GetByProviderRef(ctx, providerRef)
	if err != nil {
		return nil, err
	}
	if p.Status.Terminal() {
		return nil, apperr.New(apperr.Conflict, "payment already settled").
			With("status", string(p.Status))
	}

	prov, ok := uc.providers.For(p.Method)
	if !ok {
		return nil, apperr.Newf(apperr.Internal, "no provider registered for method %s", p.Method)
	}
	if err := prov.CancelSession(ctx, providerRef, p.OrderCode, reason); err != nil {
		return nil, err
	}

	applied, err := uc.payments.ApplyOutcome(ctx, p.OrderCode, PaymentOutcome{Status: domain.PaymentCancelled})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "apply cancellation", err)
	}
	if !applied {
		// webhook completed the payment between our read and write
		return nil, apperr.New(apperr.Conflict, "payment settled concurrently")
	}

	if err := uc.cache.SetStatus(ctx, p.OrderCode, string(domain.PaymentCancelled)); err != nil {
		logging.FromCtx(ctx).Warn("status cache update failed", "orderCode", p.OrderCode, "err", err)
	}
	p.Status = domain.PaymentCancelled
	return p, nil
}
