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

	domain "github.com/lapstore/storefront-api/internal/entity"
	"github.com/lapstore/storefront-api/internal/security"
	"github.com/lapstore/storefront-api/internal/usecase"
)

const payosChecksum = "payos-checksum"

func TestPayOSCreateSession(t *testing.T) {
	signer := security.NewSigner(payosChecksum)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "client-1", r.Header.Get("x-client-id"))
		assert.Equal(t, "key-1", r.Header.Get("x-api-key"))

		var req payosCreateReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		raw := fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
			req.Amount, req.CancelURL, req.Description, req.OrderCode, req.ReturnURL)
		assert.NoError(t, signer.Verify([]byte(raw), req.Signature))

		json.NewEncoder(w).Encode(payosEnvelope{
			Code: "00",
			Data: payosData{
				CheckoutURL:   "https://pay.payos.vn/web/xyz",
				QRCode:        "00020101021238...",
				PaymentLinkID: "link-xyz",
				ExpiredAt:     1770000000,
			},
		})
	}))
	defer srv.Close()

	p := NewPayOSProvider(srv.URL, "client-1", "key-1", payosChecksum, "https://shop/return", "https://shop/cancel")
	sess, err := p.CreateSession(context.Background(), usecase.SessionRequest{
		OrderCode: 1700000000000,
		Amount:    22_530_000,
		OrderInfo: "Order #1700000000000",
	})
	require.NoError(t, err)
	assert.Equal(t, "link-xyz", sess.ProviderRef)
	assert.Equal(t, int64(1770000000), sess.ExpiresAt.Unix())
}

func TestPayOSQuery(t *testing.T) {
	cases := []struct {
		status  string
		settled bool
		want    domain.PaymentStatus
	}{
		{"PAID", true, domain.PaymentCompleted},
		{"CANCELLED", true, domain.PaymentFailed},
		{"EXPIRED", true, domain.PaymentFailed},
		{"PENDING", false, ""},
		{"PROCESSING", false, ""},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			json.NewEncoder(w).Encode(payosEnvelope{
				Code: "00",
				Data: payosData{Status: tc.status, Reference: "FT900"},
			})
		}))
		p := NewPayOSProvider(srv.URL, "c", "k", payosChecksum, "r", "c")

		out, settled, err := p.Query(context.Background(), 42)
		require.NoError(t, err, tc.status)
		assert.Equal(t, tc.settled, settled, tc.status)
		if tc.settled {
			assert.Equal(t, tc.want, out.Status, tc.status)
		}
		srv.Close()
	}
}

func TestRegistry(t *testing.T) {
	momo := NewMoMoProvider("http://x", "P", "a", "s", "r", "i")
	payos := NewPayOSProvider("http://x", "c", "k", "s", "r", "c")
	reg := NewRegistry(momo, payos)

	p, ok := reg.For(domain.MethodMoMo)
	require.True(t, ok)
	assert.Equal(t, "momo", p.Name())

	p, ok = reg.For(domain.MethodBank)
	require.True(t, ok)
	assert.Equal(t, "payos", p.Name())

	_, ok = reg.For(domain.MethodCOD)
	assert.False(t, ok, "COD needs no provider")
}
