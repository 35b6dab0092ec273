package domain

import "time"

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentCancelled  PaymentStatus = "CANCELLED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
)

// Terminal payment states absorb: once reached, only COMPLETED -> REFUNDED is allowed.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:    {PaymentProcessing, PaymentCompleted, PaymentFailed, PaymentCancelled},
	PaymentProcessing: {PaymentCompleted, PaymentFailed, PaymentCancelled},
	PaymentCompleted:  {PaymentRefunded},
}

func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	for _, next := range paymentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentCompleted, PaymentFailed, PaymentCancelled, PaymentRefunded:
		return true
	}
	return false
}

// PaymentTransaction carries the provider-side session details.
type PaymentTransaction struct {
	CheckoutURL   string    `json:"checkoutUrl,omitempty"`
	QRCode        string    `json:"qrCode,omitempty"`
	ProviderRef   string    `json:"providerRef,omitempty"` // paymentLinkId / requestId
	ProviderTxnID string    `json:"providerTxnId,omitempty"`
	BankCode      string    `json:"bankCode,omitempty"`
	Signature     string    `json:"signature,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt,omitempty"`
	PaidAt        time.Time `json:"paidAt,omitempty"`
}

type PaymentRefund struct {
	Amount     int64     `json:"amount"`
	Reason     string    `json:"reason,omitempty"`
	RefundedAt time.Time `json:"refundedAt"`
}

type Payment struct {
	ID           string
	OrderCode    int64
	Method       PaymentMethod
	Amount       int64
	Status       PaymentStatus
	Transaction  PaymentTransaction
	Refund       *PaymentRefund
	NeedsReview  bool
	ReviewReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
