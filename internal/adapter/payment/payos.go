package payment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/lapstore/storefront-api/internal/apperr"
	domain "github.com/lapstore/storefront-api/internal/entity"
	"github.com/lapstore/storefront-api/internal/security"
	"github.com/lapstore/storefront-api/internal/usecase"
)

// PayOS bank-transfer gateway. Credentials ride in headers; the request body
// carries an HMAC-SHA256 signature over the sorted field string.
type PayOSProvider struct {
	client    *gatewayClient
	signer    *security.Signer
	returnURL string
	cancelURL string
}

func NewPayOSProvider(endpoint, clientID, apiKey, checksumKey, returnURL, cancelURL string) *PayOSProvider {
	return &PayOSProvider{
		client: newGatewayClient("payos", endpoint, map[string]string{
			"x-client-id": clientID,
			"x-api-key":   apiKey,
		}),
		signer:    security.NewSigner(checksumKey),
		returnURL: returnURL,
		cancelURL: cancelURL,
	}
}

func (p *PayOSProvider) Name() string { return "payos" }

type payosCreateReq struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`
	Signature   string `json:"signature"`
}

type payosEnvelope struct {
	Code string    `json:"code"`
	Desc string    `json:"desc"`
	Data payosData `json:"data"`
}

type payosData struct {
	CheckoutURL   string `json:"checkoutUrl"`
	QRCode        string `json:"qrCode"`
	PaymentLinkID string `json:"paymentLinkId"`
	Status        string `json:"status"`
	Reference     string `json:"reference"`
	ExpiredAt     int64  `json:"expiredAt"`
}

func (p *PayOSProvider) CreateSession(ctx context.Context, in usecase.SessionRequest) (*usecase.Session, error) {
	raw := fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		in.Amount, p.cancelURL, in.OrderInfo, in.OrderCode, p.returnURL)

	req := payosCreateReq{
		OrderCode:   in.OrderCode,
		Amount:      in.Amount,
		Description: in.OrderInfo,
		ReturnURL:   p.returnURL,
		CancelURL:   p.cancelURL,
		Signature:   p.signer.Sign([]byte(raw)),
	}

	var resp payosEnvelope
	if err := p.client.postJSON(ctx, "/v2/payment-requests", req, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "00" {
		return nil, apperr.Newf(apperr.Provider, "payos rejected session: %s", resp.Desc).
			With("code", resp.Code)
	}

	sess := &usecase.Session{
		CheckoutURL: resp.Data.CheckoutURL,
		QRCode:      resp.Data.QRCode,
		ProviderRef: resp.Data.PaymentLinkID,
	}
	if resp.Data.ExpiredAt > 0 {
		sess.ExpiresAt = time.Unix(resp.Data.ExpiredAt, 0)
	}
	return sess, nil
}

func (p *PayOSProvider) CancelSession(ctx context.Context, providerRef string, orderCode int64, reason string) error {
	body := map[string]string{"cancellationReason": reason}
	var resp payosEnvelope
	path := "/v2/payment-requests/" + strconv.FormatInt(orderCode, 10) + "/cancel"
	if err := p.client.postJSON(ctx, path, body, &resp); err != nil {
		return err
	}
	if resp.Code != "00" {
		return apperr.Newf(apperr.Provider, "payos cancel failed: %s", resp.Desc).
			With("code", resp.Code)
	}
	return nil
}

func (p *PayOSProvider) Query(ctx context.Context, orderCode int64) (usecase.PaymentOutcome, bool, error) {
	var resp payosEnvelope
	path := "/v2/payment-requests/" + strconv.FormatInt(orderCode, 10)
	if err := p.client.getJSON(ctx, path, &resp); err != nil {
		return usecase.PaymentOutcome{}, false, err
	}
	if resp.Code != "00" {
		return usecase.PaymentOutcome{}, false,
			apperr.Newf(apperr.Provider, "payos lookup failed: %s", resp.Desc).With("code", resp.Code)
	}

	switch resp.Data.Status {
	case "PAID":
		return usecase.PaymentOutcome{
			Status:        domain.PaymentCompleted,
			ProviderTxnID: resp.Data.Reference,
			PaidAt:        time.Now(),
		}, true, nil
	case "CANCELLED", "EXPIRED":
		return usecase.PaymentOutcome{Status: domain.PaymentFailed}, true, nil
	default: // PENDING, PROCESSING
		return usecase.PaymentOutcome{}, false, nil
	}
}

var _ usecase.PaymentProvider = (*PayOSProvider)(nil)
