package payment

import (
	domain "github.com/lapstore/storefront-api/internal/entity"
	"github.com/lapstore/storefront-api/internal/usecase"
)

// Registry maps payment methods onto provider adapters. BANK rides PayOS
// (bank-transfer checkout links), MOMO rides the MoMo wallet.
type Registry struct {
	providers map[domain.PaymentMethod]usecase.PaymentProvider
}

func NewRegistry(momo *MoMoProvider, payos *PayOSProvider) *Registry {
	r := &Registry{providers: map[domain.PaymentMethod]usecase.PaymentProvider{}}
	if momo != nil {
		r.providers[domain.MethodMoMo] = momo
	}
	if payos != nil {
		r.providers[domain.MethodBank] = payos
	}
	return r
}

func (r *Registry) For(m domain.PaymentMethod) (usecase.PaymentProvider, bool) {
	p, ok := r.providers[m]
	return p, ok
}

var _ usecase.ProviderRegistry = (*Registry)(nil)
