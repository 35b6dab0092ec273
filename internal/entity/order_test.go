package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validOrder() *Order {
	return &Order{
		ID:     "ord-1",
		Code:   1700000000000,
		UserID: "user-1",
		Items: []OrderItem{
			{ProductID: "p1", Name: "ThinkPad X1", Quantity: 1, UnitPrice: 32_000_000},
		},
		Address: ShippingAddress{
			FullName: "Nguyen Van A",
			Phone:    "0901234567",
			Street:   "12 Le Loi",
			Ward:     "Ben Nghe",
			District: "1",
			Province: "Ho Chi Minh",
		},
		ShippingMethod: ShipStandard,
		PaymentMethod:  MethodCOD,
	}
}

func TestOrderValidate(t *testing.T) {
	assert.NoError(t, validOrder().Validate())

	o := validOrder()
	o.Items = nil
	assert.ErrorIs(t, o.Validate(), ErrEmptyOrder)

	o = validOrder()
	o.Items[0].Quantity = 0
	assert.ErrorIs(t, o.Validate(), ErrInvalidItem)

	o = validOrder()
	o.Address.Phone = ""
	assert.ErrorIs(t, o.Validate(), ErrInvalidAddress)

	o = validOrder()
	o.PaymentMethod = "PAYPAL"
	assert.ErrorIs(t, o.Validate(), ErrInvalidMethod)

	o = validOrder()
	o.ShippingMethod = "drone"
	assert.ErrorIs(t, o.Validate(), ErrInvalidShipping)
}

func TestOrderSubtotal(t *testing.T) {
	o := validOrder()
	o.Items = []OrderItem{
		{ProductID: "p1", Quantity: 2, UnitPrice: 10_000},
		{ProductID: "p2", Quantity: 1, UnitPrice: 5_000},
	}
	assert.Equal(t, int64(25_000), o.Subtotal())
}

func TestOrderTransitions(t *testing.T) {
	assert.True(t, OrderPending.CanTransition(OrderProcessing))
	assert.True(t, OrderPending.CanTransition(OrderCancelled))
	assert.True(t, OrderProcessing.CanTransition(OrderShipped))
	assert.True(t, OrderShipped.CanTransition(OrderDelivered))
	assert.True(t, OrderDelivered.CanTransition(OrderRefunded))

	assert.False(t, OrderPending.CanTransition(OrderShipped), "no skipping fulfilment steps")
	assert.False(t, OrderShipped.CanTransition(OrderCancelled), "shipped orders cannot be cancelled")
	assert.False(t, OrderCancelled.CanTransition(OrderProcessing), "cancelled is final")
	assert.False(t, OrderRefunded.CanTransition(OrderPending))
}

func TestPaymentTransitions(t *testing.T) {
	assert.True(t, PaymentPending.CanTransition(PaymentCompleted))
	assert.True(t, PaymentPending.CanTransition(PaymentCancelled))
	assert.True(t, PaymentProcessing.CanTransition(PaymentFailed))
	assert.True(t, PaymentCompleted.CanTransition(PaymentRefunded))

	assert.False(t, PaymentCompleted.CanTransition(PaymentFailed), "terminal states absorb")
	assert.False(t, PaymentFailed.CanTransition(PaymentCompleted))
	assert.False(t, PaymentCancelled.CanTransition(PaymentPending))
}

func TestPaymentTerminal(t *testing.T) {
	for _, s := range []PaymentStatus{PaymentCompleted, PaymentFailed, PaymentCancelled, PaymentRefunded} {
		assert.True(t, s.Terminal(), string(s))
	}
	for _, s := range []PaymentStatus{PaymentPending, PaymentProcessing} {
		assert.False(t, s.Terminal(), string(s))
	}
}

func TestOnlineMethods(t *testing.T) {
	assert.True(t, MethodBank.Online())
	assert.True(t, MethodMoMo.Online())
	assert.False(t, MethodCOD.Online())
}
