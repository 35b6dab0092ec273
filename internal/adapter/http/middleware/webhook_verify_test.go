package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapstore/storefront-api/internal/security"
)

func webhookRouter(wv *WebhookVerify) (*gin.Engine, *[]byte) {
	gin.SetMode(gin.TestMode)
	var seen []byte
	r := gin.New()
	r.POST("/webhook/:provider", wv.Verify(), func(c *gin.Context) {
		seen, _ = io.ReadAll(c.Request.Body)
		c.JSON(200, gin.H{"sig": Signature(c)})
	})
	return r, &seen
}

func TestWebhookVerify(t *testing.T) {
	signer := security.NewSigner("momo-secret")
	wv := NewWebhookVerify(map[string]*security.Signer{"momo": signer})
	r, seen := webhookRouter(wv)

	body := []byte(`{"orderId":"42","resultCode":0}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook/momo", bytes.NewReader(body))
	req.Header.Set("X-Signature", signer.Sign(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, *seen, "body restored for the handler")
}

func TestWebhookVerifyBadSignature(t *testing.T) {
	signer := security.NewSigner("momo-secret")
	wv := NewWebhookVerify(map[string]*security.Signer{"momo": signer})
	r, _ := webhookRouter(wv)

	body := []byte(`{"orderId":"42","resultCode":0}`)

	req := httptest.NewRequest(http.MethodPost, "/webhook/momo", bytes.NewReader(body))
	req.Header.Set("X-Signature", security.NewSigner("wrong-key").Sign(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/webhook/momo", bytes.NewReader(body))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "missing signature rejected")
}

func TestWebhookVerifyUnknownProvider(t *testing.T) {
	wv := NewWebhookVerify(map[string]*security.Signer{"momo": security.NewSigner("k")})
	r, _ := webhookRouter(wv)

	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
