package kafka

import (
	"github.com/lapstore/storefront-api/internal/usecase"
)

// NewSettlementHandler routes bank settlement events into payment reconciliation.
func NewSettlementHandler(uc *usecase.ReconcilePayment) HandlerFunc {
	return uc.HandleSettlement
}
