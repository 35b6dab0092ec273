package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersPlaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Orders accepted at checkout",
		},
		[]string{"method"},
	)

	webhooksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_webhooks_processed_total",
			Help: "Provider IPN callbacks by provider and result",
		},
		[]string{"provider", "result"},
	)
)
