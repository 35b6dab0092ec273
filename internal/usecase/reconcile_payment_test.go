package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapstore/storefront-api/internal/apperr"
	domain "github.com/lapstore/storefront-api/internal/entity"
)

var paidAt = time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)

func pendingPayment(code int64) *domain.Payment {
	return &domain.Payment{
		ID:        "pay-1",
		OrderCode: code,
		Method:    domain.MethodMoMo,
		Amount:    22_530_000,
		Status:    domain.PaymentPending,
		Transaction: domain.PaymentTransaction{
			ProviderRef: "ref-abc",
		},
	}
}

func newReconcileEnv(payments ...*domain.Payment) (*ReconcilePayment, *fakePaymentRepo, *fakeStatusCache, *fakeProvider) {
	repo := newFakePaymentRepo(payments...)
	cache := newFakeStatusCache()
	prov := &fakeProvider{name: "momo"}
	reg := &fakeRegistry{providers: map[domain.PaymentMethod]PaymentProvider{domain.MethodMoMo: prov}}
	uc := NewReconcilePayment(repo, reg, newFakeIdemStore(), cache)
	uc.now = func() time.Time { return paidAt }
	return uc, repo, cache, prov
}

func webhook(code int64, outcome domain.PaymentStatus, sig string) WebhookInput {
	return WebhookInput{
		Provider:      "momo",
		OrderCode:     code,
		Outcome:       outcome,
		ProviderTxnID: "txn-9",
		Signature:     sig,
	}
}

func TestHandleWebhookCompletes(t *testing.T) {
	uc, repo, cache, _ := newReconcileEnv(pendingPayment(42))

	err := uc.HandleWebhook(context.Background(), webhook(42, domain.PaymentCompleted, "sig-1"))
	require.NoError(t, err)

	p, _ := repo.GetByOrderCode(context.Background(), 42)
	assert.Equal(t, domain.PaymentCompleted, p.Status)
	assert.Equal(t, "txn-9", p.Transaction.ProviderTxnID)
	assert.Equal(t, paidAt, p.Transaction.PaidAt)

	s, ok, _ := cache.GetStatus(context.Background(), 42)
	assert.True(t, ok)
	assert.Equal(t, "COMPLETED", s)
}

func TestHandleWebhookRejectsUnknownOutcome(t *testing.T) {
	uc, _, _, _ := newReconcileEnv(pendingPayment(42))

	err := uc.HandleWebhook(context.Background(), webhook(42, domain.PaymentProcessing, "sig-1"))
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestHandleWebhookReplaySameOutcome(t *testing.T) {
	uc, repo, _, _ := newReconcileEnv(pendingPayment(42))

	in := webhook(42, domain.PaymentCompleted, "sig-1")
	require.NoError(t, uc.HandleWebhook(context.Background(), in))
	require.NoError(t, uc.HandleWebhook(context.Background(), in), "duplicate delivery acks")

	p, _ := repo.GetByOrderCode(context.Background(), 42)
	assert.Equal(t, domain.PaymentCompleted, p.Status)
}

func TestHandleWebhookRedeliveryAfterPersistenceFailure(t *testing.T) {
	uc, repo, _, _ := newReconcileEnv(pendingPayment(42))

	in := webhook(42, domain.PaymentCompleted, "sig-1")
	repo.applyErr = assert.AnError
	require.Error(t, uc.HandleWebhook(context.Background(), in))

	// the provider redelivers on non-2xx; the replay guard must not swallow it
	repo.applyErr = nil
	require.NoError(t, uc.HandleWebhook(context.Background(), in))

	p, _ := repo.GetByOrderCode(context.Background(), 42)
	assert.Equal(t, domain.PaymentCompleted, p.Status)
}

func TestHandleWebhookStaleConflictingDelivery(t *testing.T) {
	uc, repo, _, _ := newReconcileEnv(pendingPayment(42))

	require.NoError(t, uc.HandleWebhook(context.Background(), webhook(42, domain.PaymentCompleted, "sig-1")))

	// a late FAILED for the same order must not regress the terminal state
	err := uc.HandleWebhook(context.Background(), webhook(42, domain.PaymentFailed, "sig-2"))
	require.NoError(t, err, "late loser still acks so the provider stops retrying")

	p, _ := repo.GetByOrderCode(context.Background(), 42)
	assert.Equal(t, domain.PaymentCompleted, p.Status)
}

func TestHandleTaskQueriesProvider(t *testing.T) {
	uc, repo, _, prov := newReconcileEnv(pendingPayment(42))
	prov.queryOut = PaymentOutcome{Status: domain.PaymentCompleted, ProviderTxnID: "txn-q", PaidAt: paidAt}
	prov.querySettl = true

	err := uc.HandleTask(context.Background(), ReconcileTaskMsg{Provider: "momo", OrderCode: 42})
	require.NoError(t, err)

	p, _ := repo.GetByOrderCode(context.Background(), 42)
	assert.Equal(t, domain.PaymentCompleted, p.Status)
	assert.Equal(t, "txn-q", p.Transaction.ProviderTxnID)
}

func TestHandleTaskInFlightLeavesPending(t *testing.T) {
	uc, repo, _, prov := newReconcileEnv(pendingPayment(42))
	prov.querySettl = false

	require.NoError(t, uc.HandleTask(context.Background(), ReconcileTaskMsg{Provider: "momo", OrderCode: 42}))

	p, _ := repo.GetByOrderCode(context.Background(), 42)
	assert.Equal(t, domain.PaymentPending, p.Status)
}

func TestHandleTaskUnknownPaymentAcks(t *testing.T) {
	uc, _, _, _ := newReconcileEnv()

	err := uc.HandleTask(context.Background(), ReconcileTaskMsg{Provider: "momo", OrderCode: 999})
	assert.NoError(t, err, "unknown payment must not be redelivered forever")
}

func TestHandleSettlement(t *testing.T) {
	uc, repo, _, _ := newReconcileEnv(pendingPayment(42))

	err := uc.HandleSettlement(context.Background(), SettlementMsg{OrderCode: 42, BankRef: "FT123", Status: "SETTLED"})
	require.NoError(t, err)

	p, _ := repo.GetByOrderCode(context.Background(), 42)
	assert.Equal(t, domain.PaymentCompleted, p.Status)
	assert.Equal(t, "FT123", p.Transaction.ProviderTxnID)
}

func TestHandleSettlementReversed(t *testing.T) {
	uc, repo, _, _ := newReconcileEnv(pendingPayment(42))

	require.NoError(t, uc.HandleSettlement(context.Background(), SettlementMsg{OrderCode: 42, Status: "REVERSED"}))

	p, _ := repo.GetByOrderCode(context.Background(), 42)
	assert.Equal(t, domain.PaymentFailed, p.Status)
}

func TestHandleSettlementUnknownStatusAcks(t *testing.T) {
	uc, repo, _, _ := newReconcileEnv(pendingPayment(42))

	require.NoError(t, uc.HandleSettlement(context.Background(), SettlementMsg{OrderCode: 42, Status: "HOLD"}))

	p, _ := repo.GetByOrderCode(context.Background(), 42)
	assert.Equal(t, domain.PaymentPending, p.Status)
}

func TestHandleSettlementTerminalNoRegress(t *testing.T) {
	p := pendingPayment(42)
	p.Status = domain.PaymentCancelled
	uc, repo, _, _ := newReconcileEnv(p)

	require.NoError(t, uc.HandleSettlement(context.Background(), SettlementMsg{OrderCode: 42, Status: "SETTLED"}))

	got, _ := repo.GetByOrderCode(context.Background(), 42)
	assert.Equal(t, domain.PaymentCancelled, got.Status)
}
