package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapstore/storefront-api/internal/apperr"
	domain "github.com/lapstore/storefront-api/internal/entity"
	"github.com/lapstore/storefront-api/internal/security"
	"github.com/lapstore/storefront-api/internal/usecase"
)

const momoSecret = "momo-secret"

func momoServer(t *testing.T, handler func(w http.ResponseWriter, req momoCreateReq)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req momoCreateReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handler(w, req)
	}))
}

func TestMoMoCreateSessionSigning(t *testing.T) {
	signer := security.NewSigner(momoSecret)
	srv := momoServer(t, func(w http.ResponseWriter, req momoCreateReq) {
		// recompute the canonical string the way MoMo does server-side
		raw := fmt.Sprintf(
			"accessKey=%s&amount=%d&extraData=&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=captureWallet",
			"access-key", req.Amount, req.IPNURL, req.OrderID, req.OrderInfo,
			"PARTNER", req.RedirectURL, req.RequestID,
		)
		assert.NoError(t, signer.Verify([]byte(raw), req.Signature))
		assert.Equal(t, "captureWallet", req.RequestType)

		json.NewEncoder(w).Encode(momoCreateResp{
			ResultCode: 0,
			PayURL:     "https://test.momo.vn/pay/xyz",
			QRCodeURL:  "momo://qr/xyz",
		})
	})
	defer srv.Close()

	p := NewMoMoProvider(srv.URL, "PARTNER", "access-key", momoSecret, "https://shop/return", "https://shop/ipn")
	sess, err := p.CreateSession(context.Background(), usecase.SessionRequest{
		OrderCode: 1700000000000,
		Amount:    22_530_000,
		OrderInfo: "Order #1700000000000",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://test.momo.vn/pay/xyz", sess.CheckoutURL)
	assert.Equal(t, "momo://qr/xyz", sess.QRCode)
	assert.NotEmpty(t, sess.ProviderRef)
}

func TestMoMoCreateSessionRejected(t *testing.T) {
	srv := momoServer(t, func(w http.ResponseWriter, _ momoCreateReq) {
		json.NewEncoder(w).Encode(momoCreateResp{ResultCode: 41, Message: "duplicate orderId"})
	})
	defer srv.Close()

	p := NewMoMoProvider(srv.URL, "PARTNER", "ak", momoSecret, "r", "i")
	_, err := p.CreateSession(context.Background(), usecase.SessionRequest{OrderCode: 1, Amount: 100})
	assert.True(t, apperr.Is(err, apperr.Provider))
	assert.Equal(t, 41, apperr.DetailsOf(err)["resultCode"])
}

func TestMoMoQuery(t *testing.T) {
	cases := []struct {
		resultCode int
		settled    bool
		status     domain.PaymentStatus
	}{
		{0, true, domain.PaymentCompleted},
		{1000, false, ""},
		{7002, false, ""},
		{1006, true, domain.PaymentFailed},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(momoLookupResp{ResultCode: tc.resultCode, TransID: 555})
		}))
		p := NewMoMoProvider(srv.URL, "PARTNER", "ak", momoSecret, "r", "i")

		out, settled, err := p.Query(context.Background(), 42)
		require.NoError(t, err, "resultCode %d", tc.resultCode)
		assert.Equal(t, tc.settled, settled, "resultCode %d", tc.resultCode)
		if tc.settled {
			assert.Equal(t, tc.status, out.Status, "resultCode %d", tc.resultCode)
		}
		srv.Close()
	}
}

func TestGatewayClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewMoMoProvider(srv.URL, "PARTNER", "ak", momoSecret, "r", "i")
	_, err := p.CreateSession(context.Background(), usecase.SessionRequest{OrderCode: 1, Amount: 100})
	assert.True(t, apperr.Is(err, apperr.Provider))
}
