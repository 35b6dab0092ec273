package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lapstore/storefront-api/internal/security"
)

// WebhookVerify authenticates provider IPN callbacks by checking the
// X-Signature header (hex HMAC-SHA256) against the raw request body.
type WebhookVerify struct {
	signers map[string]*security.Signer // keyed by provider path segment
}

func NewWebhookVerify(signers map[string]*security.Signer) *WebhookVerify {
	return &WebhookVerify{signers: signers}
}

// Verify reads the raw body, checks the signature for the :provider route
// param, and restores the body for the handler. The verified signature is
// stashed in the context so the handler can use it as a replay key.
func (wv *WebhookVerify) Verify() gin.HandlerFunc {
	return func(c *gin.Context) {
		signer, ok := wv.signers[c.Param("provider")]
		if !ok {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
			return
		}

		rawBody, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}
		c.Request.Body.Close()

		sig := c.GetHeader("X-Signature")
		if sig == "" || signer.Verify(rawBody, sig) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "signature verification failed"})
			return
		}

		c.Set("webhook_signature", sig)
		c.Request.Body = io.NopCloser(bytes.NewReader(rawBody))
		c.Request.ContentLength = int64(len(rawBody))
		c.Next()
	}
}

// Signature returns the verified webhook signature set by Verify.
func Signature(c *gin.Context) string {
	return c.GetString("webhook_signature")
}
