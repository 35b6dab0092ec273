package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapstore/storefront-api/internal/apperr"
	domain "github.com/lapstore/storefront-api/internal/entity"
)

func newCancelEnv(payments ...*domain.Payment) (*CancelPayment, *fakePaymentRepo, *fakeProvider) {
	repo := newFakePaymentRepo(payments...)
	prov := &fakeProvider{name: "momo"}
	reg := &fakeRegistry{providers: map[domain.PaymentMethod]PaymentProvider{domain.MethodMoMo: prov}}
	return NewCancelPayment(repo, reg, newFakeStatusCache()), repo, prov
}

func TestCancelPayment(t *testing.T) {
	uc, repo, prov := newCancelEnv(pendingPayment(42))

	p, err := uc.Execute(context.Background(), "ref-abc", "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCancelled, p.Status)
	assert.Equal(t, []string{"ref-abc"}, prov.cancelled)

	stored, _ := repo.GetByOrderCode(context.Background(), 42)
	assert.Equal(t, domain.PaymentCancelled, stored.Status)
}

func TestCancelPaymentAlreadySettled(t *testing.T) {
	p := pendingPayment(42)
	p.Status = domain.PaymentCompleted
	uc, _, prov := newCancelEnv(p)

	_, err := uc.Execute(context.Background(), "ref-abc", "")
	assert.True(t, apperr.Is(err, apperr.Conflict))
	assert.Empty(t, prov.cancelled, "no provider call for settled payments")
}

func TestCancelPaymentRace(t *testing.T) {
	uc, repo, _ := newCancelEnv(pendingPayment(42))

	// webhook completes the payment between the read and the write
	applied, err := repo.ApplyOutcome(context.Background(), 42, PaymentOutcome{Status: domain.PaymentCompleted})
	require.NoError(t, err)
	require.True(t, applied)

	_, err = uc.Execute(context.Background(), "ref-abc", "")
	assert.True(t, apperr.Is(err, apperr.Conflict))

	stored, _ := repo.GetByOrderCode(context.Background(), 42)
	assert.Equal(t, domain.PaymentCompleted, stored.Status, "the completed payment wins")
}

func TestCancelPaymentProviderError(t *testing.T) {
	uc, repo, prov := newCancelEnv(pendingPayment(42))
	prov.cancelErr = apperr.New(apperr.Provider, "momo: cancel failed")

	_, err := uc.Execute(context.Background(), "ref-abc", "")
	assert.True(t, apperr.Is(err, apperr.Provider))

	stored, _ := repo.GetByOrderCode(context.Background(), 42)
	assert.Equal(t, domain.PaymentPending, stored.Status, "local state untouched when the provider call fails")
}

func TestPaymentStatusQueryCacheFirst(t *testing.T) {
	repo := newFakePaymentRepo(pendingPayment(42))
	cache := newFakeStatusCache()
	q := NewPaymentStatusQuery(repo, cache)

	// miss: falls back to the repo and backfills
	s, err := q.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", s)
	cached, ok, _ := cache.GetStatus(context.Background(), 42)
	assert.True(t, ok)
	assert.Equal(t, "PENDING", cached)

	// hit: served without touching the repo
	require.NoError(t, cache.SetStatus(context.Background(), 42, "COMPLETED"))
	s, err = q.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", s)
}

func TestCancelPaymentWebhookRace(t *testing.T) {
	// cancel succeeds first, then the late COMPLETED webhook is rejected by the guard
	uc, repo, _ := newCancelEnv(pendingPayment(42))

	_, err := uc.Execute(context.Background(), "ref-abc", "")
	require.NoError(t, err)

	applied, err := repo.ApplyOutcome(context.Background(), 42, PaymentOutcome{Status: domain.PaymentCompleted})
	require.NoError(t, err)
	assert.False(t, applied, "terminal CANCELLED never regresses")
}
