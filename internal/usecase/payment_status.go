package usecase

import "context"

// PaymentStatusQuery serves the client polling endpoint, cache-first.
type PaymentStatusQuery struct {
	payments PaymentRepo
	cache    StatusCache
}

func NewPaymentStatusQuery(payments PaymentRepo, cache StatusCache) *PaymentStatusQuery {
	return &PaymentStatusQuery{payments: payments, cache: cache}
}

func (q *PaymentStatusQuery) Get(ctx context.Context, orderCode int64) (string, error) {
	if s, ok, err := q.cache.GetStatus(ctx, orderCode); err == nil && ok {
		return s, nil
	}
	p, err := q.payments.GetByOrderCode(ctx, orderCode)
	if err != nil {
		return "", err
	}
	_ = q.cache.SetStatus(ctx, orderCode, string(p.Status))
	return string(p.Status), nil
}
