package http

import (
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lapstore/storefront-api/internal/adapter/http/middleware"
)

type Handlers struct {
	Orders   *OrderHandler
	Payments *PaymentHandler
	Coupons  *CouponHandler
	Catalog  *CatalogHandler
	Tokens   *TokenHandler
}

func NewRouter(h Handlers, authz *middleware.Authz, wv *middleware.WebhookVerify, allowedOrigins []string, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware(), middleware.Logging(log))

	if len(allowedOrigins) > 0 {
		cc := cors.DefaultConfig()
		cc.AllowOrigins = allowedOrigins
		cc.AllowHeaders = append(cc.AllowHeaders, "Authorization", "X-Idempotency-Key")
		r.Use(cors.New(cc))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/v1/token", h.Tokens.IssueToken)

	v1 := r.Group("/v1")
	{
		// storefront catalog is public read
		v1.GET("/products", h.Catalog.ListProducts)
		v1.GET("/products/:id", h.Catalog.GetProduct)
		v1.GET("/brands", h.Catalog.ListBrands)
		v1.GET("/coupons", h.Coupons.ListCoupons)

		v1.POST("/coupons/apply", authz.Require("orders.write"), h.Coupons.ApplyCoupon)
		v1.POST("/coupons/cancel", authz.Require("orders.write"), h.Coupons.CancelCoupon)

		v1.POST("/orders", authz.Require("orders.write"), h.Orders.CreateOrder)
		v1.GET("/orders/:id", authz.Require("orders.read"), h.Orders.GetOrderByID)
		v1.GET("/orders/user/:id", authz.Require("orders.read"), h.Orders.ListOrdersByUser)

		v1.POST("/payments/cancel", authz.Require("orders.write"), h.Payments.CancelPayment)
		v1.GET("/payments/:orderCode/status", authz.Require("orders.read"), h.Payments.PaymentStatus)

		// provider IPN callbacks authenticate by HMAC signature, not JWT
		v1.POST("/payments/:provider/ipn", wv.Verify(), h.Payments.Webhook)

		admin := v1.Group("/admin")
		{
			admin.GET("/orders", authz.Require("orders.admin"), h.Orders.ListOrders)
			admin.PATCH("/orders/:id/status", authz.Require("orders.admin"), h.Orders.UpdateOrderStatus)
			admin.DELETE("/orders/:id", authz.Require("orders.admin"), h.Orders.DeleteOrder)

			admin.POST("/payments/:orderCode/refund", authz.Require("orders.admin"), h.Payments.RefundPayment)

			admin.POST("/coupons", authz.Require("coupons.write"), h.Coupons.CreateCoupon)
			admin.PUT("/coupons/:code", authz.Require("coupons.write"), h.Coupons.UpdateCoupon)
			admin.DELETE("/coupons/:code", authz.Require("coupons.write"), h.Coupons.DeleteCoupon)

			admin.POST("/products", authz.Require("catalog.write"), h.Catalog.CreateProduct)
			admin.PUT("/products/:id", authz.Require("catalog.write"), h.Catalog.UpdateProduct)
			admin.DELETE("/products/:id", authz.Require("catalog.write"), h.Catalog.DeleteProduct)
			admin.POST("/brands", authz.Require("catalog.write"), h.Catalog.CreateBrand)
			admin.DELETE("/brands/:id", authz.Require("catalog.write"), h.Catalog.DeleteBrand)
		}
	}

	return r
}
