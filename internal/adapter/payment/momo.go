package payment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lapstore/storefront-api/internal/apperr"
	domain "github.com/lapstore/storefront-api/internal/entity"
	"github.com/lapstore/storefront-api/internal/security"
	"github.com/lapstore/storefront-api/internal/usecase"
)

// MoMo wallet gateway (captureWallet flow). Requests carry an HMAC-SHA256
// signature over an alphabetically ordered key=value string.
type MoMoProvider struct {
	client      *gatewayClient
	partnerCode string
	accessKey   string
	signer      *security.Signer
	returnURL   string
	ipnURL      string
}

func NewMoMoProvider(endpoint, partnerCode, accessKey, secretKey, returnURL, ipnURL string) *MoMoProvider {
	return &MoMoProvider{
		client:      newGatewayClient("momo", endpoint, nil),
		partnerCode: partnerCode,
		accessKey:   accessKey,
		signer:      security.NewSigner(secretKey),
		returnURL:   returnURL,
		ipnURL:      ipnURL,
	}
}

func (p *MoMoProvider) Name() string { return "momo" }

type momoCreateReq struct {
	PartnerCode string `json:"partnerCode"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IPNURL      string `json:"ipnUrl"`
	RequestType string `json:"requestType"`
	ExtraData   string `json:"extraData"`
	Lang        string `json:"lang"`
	Signature   string `json:"signature"`
}

type momoCreateResp struct {
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
	PayURL     string `json:"payUrl"`
	Deeplink   string `json:"deeplink"`
	QRCodeURL  string `json:"qrCodeUrl"`
}

func (p *MoMoProvider) CreateSession(ctx context.Context, in usecase.SessionRequest) (*usecase.Session, error) {
	requestID := uuid.NewString()
	orderID := strconv.FormatInt(in.OrderCode, 10)

	raw := fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=captureWallet",
		p.accessKey, in.Amount, "", p.ipnURL, orderID, in.OrderInfo,
		p.partnerCode, p.returnURL, requestID,
	)

	req := momoCreateReq{
		PartnerCode: p.partnerCode,
		RequestID:   requestID,
		Amount:      in.Amount,
		OrderID:     orderID,
		OrderInfo:   in.OrderInfo,
		RedirectURL: p.returnURL,
		IPNURL:      p.ipnURL,
		RequestType: "captureWallet",
		Lang:        "vi",
		Signature:   p.signer.Sign([]byte(raw)),
	}

	var resp momoCreateResp
	if err := p.client.postJSON(ctx, "/v2/gateway/api/create", req, &resp); err != nil {
		return nil, err
	}
	if resp.ResultCode != 0 {
		return nil, apperr.Newf(apperr.Provider, "momo rejected session: %s", resp.Message).
			With("resultCode", resp.ResultCode)
	}

	return &usecase.Session{
		CheckoutURL: resp.PayURL,
		QRCode:      resp.QRCodeURL,
		ProviderRef: requestID,
		ExpiresAt:   time.Now().Add(15 * time.Minute),
	}, nil
}

type momoLookupReq struct {
	PartnerCode string `json:"partnerCode"`
	RequestID   string `json:"requestId"`
	OrderID     string `json:"orderId"`
	Lang        string `json:"lang"`
	Signature   string `json:"signature"`
}

type momoLookupResp struct {
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
	TransID    int64  `json:"transId"`
}

func (p *MoMoProvider) lookupReq(orderCode int64) momoLookupReq {
	requestID := uuid.NewString()
	orderID := strconv.FormatInt(orderCode, 10)
	raw := fmt.Sprintf("accessKey=%s&orderId=%s&partnerCode=%s&requestId=%s",
		p.accessKey, orderID, p.partnerCode, requestID)
	return momoLookupReq{
		PartnerCode: p.partnerCode,
		RequestID:   requestID,
		OrderID:     orderID,
		Lang:        "vi",
		Signature:   p.signer.Sign([]byte(raw)),
	}
}

func (p *MoMoProvider) CancelSession(ctx context.Context, providerRef string, orderCode int64, reason string) error {
	req := p.lookupReq(orderCode)
	var resp momoLookupResp
	if err := p.client.postJSON(ctx, "/v2/gateway/api/cancel", req, &resp); err != nil {
		return err
	}
	if resp.ResultCode != 0 {
		return apperr.Newf(apperr.Provider, "momo cancel failed: %s", resp.Message).
			With("resultCode", resp.ResultCode)
	}
	return nil
}

// Query maps MoMo result codes onto payment outcomes. 1000/7002 mean the user
// has not finished paying yet.
func (p *MoMoProvider) Query(ctx context.Context, orderCode int64) (usecase.PaymentOutcome, bool, error) {
	req := p.lookupReq(orderCode)
	var resp momoLookupResp
	if err := p.client.postJSON(ctx, "/v2/gateway/api/query", req, &resp); err != nil {
		return usecase.PaymentOutcome{}, false, err
	}

	switch resp.ResultCode {
	case 0:
		return usecase.PaymentOutcome{
			Status:        domain.PaymentCompleted,
			ProviderTxnID: strconv.FormatInt(resp.TransID, 10),
			PaidAt:        time.Now(),
		}, true, nil
	case 1000, 7002:
		return usecase.PaymentOutcome{}, false, nil
	default:
		return usecase.PaymentOutcome{Status: domain.PaymentFailed}, true, nil
	}
}

var _ usecase.PaymentProvider = (*MoMoProvider)(nil)
