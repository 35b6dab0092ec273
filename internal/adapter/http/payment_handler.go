package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lapstore/storefront-api/internal/adapter/http/middleware"
	domain "github.com/lapstore/storefront-api/internal/entity"
	"github.com/lapstore/storefront-api/internal/usecase"
)

type PaymentHandler struct {
	reconcile *usecase.ReconcilePayment
	cancel    *usecase.CancelPayment
	refund    *usecase.RefundPayment
	status    *usecase.PaymentStatusQuery
}

func NewPaymentHandler(reconcile *usecase.ReconcilePayment, cancel *usecase.CancelPayment, refund *usecase.RefundPayment, status *usecase.PaymentStatusQuery) *PaymentHandler {
	return &PaymentHandler{reconcile: reconcile, cancel: cancel, refund: refund, status: status}
}

// momoIPN is MoMo's v2 notification payload (the fields we use).
type momoIPN struct {
	OrderID    string `json:"orderId"`
	ResultCode int    `json:"resultCode"`
	TransID    int64  `json:"transId"`
	PayType    string `json:"payType"`
}

// payosIPN is PayOS's webhook envelope (the fields we use).
type payosIPN struct {
	Code string `json:"code"`
	Data struct {
		OrderCode     int64  `json:"orderCode"`
		Reference     string `json:"reference"`
		CounterBankID string `json:"counterAccountBankId"`
		Code          string `json:"code"`
	} `json:"data"`
}

// Webhook receives a provider IPN. The signature was already verified by
// middleware; here the provider payload is normalized and handed to
// reconciliation. Providers retry on non-2xx, so any business-level "no-op"
// (replay, stale delivery) still acks with 200.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	provider := c.Param("provider")

	var in usecase.WebhookInput
	var err error
	switch provider {
	case "momo":
		in, err = parseMoMoIPN(c)
	case "payos":
		in, err = parsePayOSIPN(c)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}
	if err != nil {
		webhooksProcessed.WithLabelValues(provider, "bad_payload").Inc()
		badRequest(c, "invalid notification payload")
		return
	}
	in.Provider = provider
	in.Signature = middleware.Signature(c)

	if err := h.reconcile.HandleWebhook(c.Request.Context(), in); err != nil {
		webhooksProcessed.WithLabelValues(provider, "error").Inc()
		fail(c, err)
		return
	}
	webhooksProcessed.WithLabelValues(provider, string(in.Outcome)).Inc()
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func parseMoMoIPN(c *gin.Context) (usecase.WebhookInput, error) {
	var p momoIPN
	if err := c.ShouldBindJSON(&p); err != nil {
		return usecase.WebhookInput{}, err
	}
	code, err := strconv.ParseInt(p.OrderID, 10, 64)
	if err != nil {
		return usecase.WebhookInput{}, err
	}
	outcome := domain.PaymentFailed
	if p.ResultCode == 0 {
		outcome = domain.PaymentCompleted
	}
	return usecase.WebhookInput{
		OrderCode:     code,
		Outcome:       outcome,
		ProviderTxnID: strconv.FormatInt(p.TransID, 10),
	}, nil
}

func parsePayOSIPN(c *gin.Context) (usecase.WebhookInput, error) {
	var p payosIPN
	if err := c.ShouldBindJSON(&p); err != nil {
		return usecase.WebhookInput{}, err
	}
	outcome := domain.PaymentFailed
	if p.Code == "00" && p.Data.Code == "00" {
		outcome = domain.PaymentCompleted
	}
	return usecase.WebhookInput{
		OrderCode:     p.Data.OrderCode,
		Outcome:       outcome,
		ProviderTxnID: p.Data.Reference,
		BankCode:      p.Data.CounterBankID,
	}, nil
}

type cancelPaymentReq struct {
	ProviderRef string `json:"providerRef" binding:"required"`
	Reason      string `json:"reason"`
}

func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	var req cancelPaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	p, err := h.cancel.Execute(c.Request.Context(), req.ProviderRef, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orderCode": p.OrderCode,
		"status":    string(p.Status),
	})
}

type refundPaymentReq struct {
	// Amount 0 refunds the full paid amount.
	Amount int64  `json:"amount" binding:"gte=0"`
	Reason string `json:"reason"`
}

// RefundPayment is the admin refund of a completed payment.
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	code, err := strconv.ParseInt(c.Param("orderCode"), 10, 64)
	if err != nil {
		badRequest(c, "invalid order code")
		return
	}
	var req refundPaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	p, err := h.refund.Execute(c.Request.Context(), code, req.Amount, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orderCode": p.OrderCode,
		"status":    string(p.Status),
		"refund":    p.Refund,
	})
}

// PaymentStatus serves client polling while the checkout page waits for the IPN.
func (h *PaymentHandler) PaymentStatus(c *gin.Context) {
	code, err := strconv.ParseInt(c.Param("orderCode"), 10, 64)
	if err != nil {
		badRequest(c, "invalid order code")
		return
	}
	s, err := h.status.Get(c.Request.Context(), code)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderCode": code, "status": s})
}
