package usecase

// Written to the outbox inside the checkout transaction; the relay publishes
// it to RabbitMQ.
type OrderPlacedMsg struct {
	OrderID   string `json:"orderId"`
	OrderCode int64  `json:"orderCode"`
	UserID    string `json:"userId"`
	Total     int64  `json:"total"`
	Method    string `json:"method"`
}

// Queued when a payment needs a provider-side re-check (failed session
// creation, failed webhook persistence).
type ReconcileTaskMsg struct {
	Provider  string `json:"provider"`
	OrderCode int64  `json:"orderCode"`
	Reason    string `json:"reason"`
}

// Delivered by the bank settlement feed on Kafka.
type SettlementMsg struct {
	OrderCode int64  `json:"orderCode"`
	BankRef   string `json:"bankRef"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"` // SETTLED | REVERSED
}
