package queue

import (
	"context"

	"github.com/lapstore/storefront-api/internal/usecase"
)

// NewReconcileHandler consumes payment.reconcile.q and re-checks stuck
// payments against the provider's query API.
func NewReconcileHandler(uc *usecase.ReconcilePayment) Handler {
	return JSONHandler[usecase.ReconcileTaskMsg]{
		HandleFunc: func(ctx context.Context, msg usecase.ReconcileTaskMsg) error {
			return uc.HandleTask(ctx, msg)
		},
	}
}
