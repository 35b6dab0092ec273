package usecase

import (
	"context"
	"sync"

	"github.com/lapstore/storefront-api/internal/apperr"
	domain "github.com/lapstore/storefront-api/internal/entity"
)

type fakeCouponRepo struct {
	coupons     map[string]*domain.Coupon
	redemptions map[string]int64 // code:userID
}

func newFakeCouponRepo(coupons ...*domain.Coupon) *fakeCouponRepo {
	r := &fakeCouponRepo{coupons: map[string]*domain.Coupon{}, redemptions: map[string]int64{}}
	for _, c := range coupons {
		r.coupons[c.Code] = c
	}
	return r
}

func (r *fakeCouponRepo) GetByCode(_ context.Context, code string) (*domain.Coupon, error) {
	c, ok := r.coupons[code]
	if !ok {
		return nil, apperr.Newf(apperr.NotFound, "coupon %s not found", code)
	}
	return c, nil
}

func (r *fakeCouponRepo) UserRedemptions(_ context.Context, code, userID string) (int64, error) {
	return r.redemptions[code+":"+userID], nil
}

type fakeOrderRepo struct {
	byID map[string]*domain.Order
}

func newFakeOrderRepo() *fakeOrderRepo { return &fakeOrderRepo{byID: map[string]*domain.Order{}} }

func (r *fakeOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	o, ok := r.byID[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "order not found")
	}
	return o, nil
}

func (r *fakeOrderRepo) GetByCode(_ context.Context, code int64) (*domain.Order, error) {
	for _, o := range r.byID {
		if o.Code == code {
			return o, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "order not found")
}

func (r *fakeOrderRepo) List(context.Context, int, int) ([]domain.Order, error) { return nil, nil }
func (r *fakeOrderRepo) ListByUser(context.Context, string, int, int) ([]domain.Order, error) {
	return nil, nil
}
func (r *fakeOrderRepo) UpdateStatusIf(context.Context, int64, domain.OrderStatus, domain.OrderStatus) (bool, error) {
	return true, nil
}
func (r *fakeOrderRepo) Delete(context.Context, string) error { return nil }

type fakePaymentRepo struct {
	mu          sync.Mutex
	byOrderCode map[int64]*domain.Payment
	reviewed    map[string]string // paymentID -> reason
	sessions    map[string]domain.PaymentTransaction
	applyErr    error
	attachErr   error
	refundErr   error
}

func newFakePaymentRepo(payments ...*domain.Payment) *fakePaymentRepo {
	r := &fakePaymentRepo{
		byOrderCode: map[int64]*domain.Payment{},
		reviewed:    map[string]string{},
		sessions:    map[string]domain.PaymentTransaction{},
	}
	for _, p := range payments {
		r.byOrderCode[p.OrderCode] = p
	}
	return r
}

func (r *fakePaymentRepo) GetByOrderCode(_ context.Context, code int64) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byOrderCode[code]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "payment not found")
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) GetByProviderRef(_ context.Context, ref string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byOrderCode {
		if p.Transaction.ProviderRef == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "payment not found")
}

func (r *fakePaymentRepo) AttachSession(_ context.Context, paymentID string, txn domain.PaymentTransaction) error {
	if r.attachErr != nil {
		return r.attachErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[paymentID] = txn
	for _, p := range r.byOrderCode {
		if p.ID == paymentID {
			p.Transaction = txn
		}
	}
	return nil
}

func (r *fakePaymentRepo) MarkNeedsReview(_ context.Context, paymentID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reviewed[paymentID] = reason
	return nil
}

// ApplyOutcome mirrors the SQL guard: only PENDING/PROCESSING rows move.
func (r *fakePaymentRepo) ApplyOutcome(_ context.Context, orderCode int64, out PaymentOutcome) (bool, error) {
	if r.applyErr != nil {
		return false, r.applyErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byOrderCode[orderCode]
	if !ok || p.Status.Terminal() {
		return false, nil
	}
	p.Status = out.Status
	p.Transaction.ProviderTxnID = out.ProviderTxnID
	p.Transaction.BankCode = out.BankCode
	p.Transaction.PaidAt = out.PaidAt
	return true, nil
}

// Refund mirrors the SQL guard: only a COMPLETED row moves to REFUNDED.
func (r *fakePaymentRepo) Refund(_ context.Context, orderCode int64, ref domain.PaymentRefund) (bool, error) {
	if r.refundErr != nil {
		return false, r.refundErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byOrderCode[orderCode]
	if !ok || p.Status != domain.PaymentCompleted {
		return false, nil
	}
	p.Status = domain.PaymentRefunded
	p.Refund = &ref
	return true, nil
}

type fakeCheckoutStore struct {
	placed      []*domain.Order
	payments    []*domain.Payment
	outbox      []OrderPlacedMsg
	err         error
	paymentSink *fakePaymentRepo // when set, placed payments become visible to it
}

func (s *fakeCheckoutStore) PlaceOrder(_ context.Context, o *domain.Order, p *domain.Payment) error {
	if s.err != nil {
		return s.err
	}
	s.placed = append(s.placed, o)
	if p != nil {
		s.payments = append(s.payments, p)
		if s.paymentSink != nil {
			s.paymentSink.byOrderCode[p.OrderCode] = p
		}
	}
	// mirrors the production store: the event row commits with the order
	s.outbox = append(s.outbox, OrderPlacedMsg{
		OrderID:   o.ID,
		OrderCode: o.Code,
		UserID:    o.UserID,
		Total:     o.TotalAmount,
		Method:    string(o.PaymentMethod),
	})
	return nil
}

type fakeIdemStore struct {
	mu     sync.Mutex
	locks  map[string]bool
	values map[string]string
}

func newFakeIdemStore() *fakeIdemStore {
	return &fakeIdemStore{locks: map[string]bool{}, values: map[string]string{}}
}

func (s *fakeIdemStore) TryLock(_ context.Context, scope, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := scope + ":" + key
	if s.locks[k] {
		return false, nil
	}
	s.locks[k] = true
	return true, nil
}

func (s *fakeIdemStore) Unlock(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, scope+":"+key)
	return nil
}

func (s *fakeIdemStore) Remember(_ context.Context, scope, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[scope+":"+key] = value
	return nil
}

func (s *fakeIdemStore) Recall(_ context.Context, scope, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[scope+":"+key]
	return v, ok, nil
}

type fakeStatusCache struct {
	mu       sync.Mutex
	statuses map[int64]string
}

func newFakeStatusCache() *fakeStatusCache { return &fakeStatusCache{statuses: map[int64]string{}} }

func (c *fakeStatusCache) SetStatus(_ context.Context, orderCode int64, status string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[orderCode] = status
	return nil
}

func (c *fakeStatusCache) GetStatus(_ context.Context, orderCode int64) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.statuses[orderCode]
	return s, ok, nil
}

type fakeProvider struct {
	name       string
	session    *Session
	createErr  error
	cancelErr  error
	cancelled  []string
	queryOut   PaymentOutcome
	querySettl bool
	queryErr   error
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) CreateSession(context.Context, SessionRequest) (*Session, error) {
	if p.createErr != nil {
		return nil, p.createErr
	}
	return p.session, nil
}

func (p *fakeProvider) CancelSession(_ context.Context, ref string, _ int64, _ string) error {
	if p.cancelErr != nil {
		return p.cancelErr
	}
	p.cancelled = append(p.cancelled, ref)
	return nil
}

func (p *fakeProvider) Query(context.Context, int64) (PaymentOutcome, bool, error) {
	return p.queryOut, p.querySettl, p.queryErr
}

type fakeRegistry struct {
	providers map[domain.PaymentMethod]PaymentProvider
}

func (r *fakeRegistry) For(m domain.PaymentMethod) (PaymentProvider, bool) {
	p, ok := r.providers[m]
	return p, ok
}

type fakePublisher struct {
	mu        sync.Mutex
	reconcile []ReconcileTaskMsg
}

func (p *fakePublisher) PublishReconcileTask(_ context.Context, msg ReconcileTaskMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reconcile = append(p.reconcile, msg)
	return nil
}
