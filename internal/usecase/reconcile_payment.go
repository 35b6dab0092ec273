package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/lapstore/storefront-api/internal/apperr"
	domain "github.com/lapstore/storefront-api/internal/entity"
	"github.com/lapstore/storefront-api/internal/logging"
)

// WebhookInput is a provider notification after signature verification and
// provider-specific payload normalization.
type WebhookInput struct {
	Provider      string
	OrderCode     int64
	Outcome       domain.PaymentStatus // COMPLETED or FAILED
	ProviderTxnID string
	BankCode      string
	Signature     string
}

// ReconcilePayment transitions payment/order state to match provider-reported
// outcomes. Safe to invoke more than once for the same notification: webhook
// delivery is at-least-once and may arrive out of order.
type ReconcilePayment struct {
	payments  PaymentRepo
	providers ProviderRegistry
	idem      IdempotencyStore
	cache     StatusCache
	now       func() time.Time
}

func NewReconcilePayment(payments PaymentRepo, providers ProviderRegistry, idem IdempotencyStore, cache StatusCache) *ReconcilePayment {
	return &ReconcilePayment{
		payments:  payments,
		providers: providers,
		idem:      idem,
		cache:     cache,
		now:       time.Now,
	}
}

func (uc *ReconcilePayment) HandleWebhook(ctx context.Context, in WebhookInput) error {
	switch in.Outcome {
	case domain.PaymentCompleted, domain.PaymentFailed:
	default:
		return apperr.Newf(apperr.Validation, "unsupported provider status %q", in.Outcome).
			With("provider", in.Provider)
	}

	p, err := uc.payments.GetByOrderCode(ctx, in.OrderCode)
	if err != nil {
		return err
	}

	if p.Status.Terminal() {
		if p.Status != in.Outcome {
			// late conflicting delivery loses; ack so the provider stops retrying
			logging.FromCtx(ctx).Warn("stale webhook ignored",
				"orderCode", in.OrderCode, "have", p.Status, "reported", in.Outcome)
		}
		return nil
	}

	// Replay guard for concurrent duplicate deliveries of the same payload.
	replayKey := fmt.Sprintf("%d:%s:%s", in.OrderCode, in.Outcome, in.Signature)
	locked, err := uc.idem.TryLock(ctx, "webhook:"+in.Provider, replayKey)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "webhook replay guard", err)
	}
	if !locked {
		return nil
	}

	out := PaymentOutcome{
		Status:        in.Outcome,
		ProviderTxnID: in.ProviderTxnID,
		BankCode:      in.BankCode,
	}
	if in.Outcome == domain.PaymentCompleted {
		out.PaidAt = uc.now()
	}
	if err := uc.apply(ctx, in.OrderCode, out); err != nil {
		// a non-2xx makes the provider redeliver; release the guard so the
		// redelivery is not mistaken for a replay
		_ = uc.idem.Unlock(ctx, "webhook:"+in.Provider, replayKey)
		return err
	}
	return nil
}

// HandleTask re-checks a flagged payment against the provider. Driven by the
// reconcile queue; returning an error nacks the delivery for redelivery.
func (uc *ReconcilePayment) HandleTask(ctx context.Context, msg ReconcileTaskMsg) error {
	p, err := uc.payments.GetByOrderCode(ctx, msg.OrderCode)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			logging.FromCtx(ctx).Warn("reconcile task for unknown payment", "orderCode", msg.OrderCode)
			return nil
		}
		return err
	}
	if p.Status.Terminal() {
		return nil
	}

	prov, ok := uc.providers.For(p.Method)
	if !ok {
		return nil
	}
	out, settled, err := prov.Query(ctx, msg.OrderCode)
	if err != nil {
		return err
	}
	if !settled {
		return nil
	}
	return uc.apply(ctx, msg.OrderCode, out)
}

// HandleSettlement maps a bank settlement event onto a payment outcome.
func (uc *ReconcilePayment) HandleSettlement(ctx context.Context, ev SettlementMsg) error {
	var status domain.PaymentStatus
	switch ev.Status {
	case "SETTLED":
		status = domain.PaymentCompleted
	case "REVERSED":
		status = domain.PaymentFailed
	default:
		logging.FromCtx(ctx).Warn("unknown settlement status", "orderCode", ev.OrderCode, "status", ev.Status)
		return nil
	}

	p, err := uc.payments.GetByOrderCode(ctx, ev.OrderCode)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil
		}
		return err
	}
	if p.Status.Terminal() {
		return nil
	}

	out := PaymentOutcome{Status: status, ProviderTxnID: ev.BankRef}
	if status == domain.PaymentCompleted {
		out.PaidAt = uc.now()
	}
	return uc.apply(ctx, ev.OrderCode, out)
}

func (uc *ReconcilePayment) apply(ctx context.Context, orderCode int64, out PaymentOutcome) error {
	applied, err := uc.payments.ApplyOutcome(ctx, orderCode, out)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "apply payment outcome", err)
	}
	if !applied {
		// guard rejected the write: another handler already settled this payment
		logging.FromCtx(ctx).Info("payment outcome already applied", "orderCode", orderCode, "status", out.Status)
		return nil
	}
	if err := uc.cache.SetStatus(ctx, orderCode, string(out.Status)); err != nil {
		logging.FromCtx(ctx).Warn("status cache update failed", "orderCode", orderCode, "err", err)
	}
	return nil
}
