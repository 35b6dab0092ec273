package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lapstore/storefront-api/internal/apperr"
	"github.com/lapstore/storefront-api/internal/logging"
)

// statusFor maps an error kind onto an HTTP status code.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.Auth:
		return http.StatusUnauthorized
	case apperr.Provider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error envelope. Internal causes are logged but never
// leaked to clients; everything else surfaces its message and details.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)

	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		logging.From(c).Error("request failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	body := gin.H{"error": kind.String(), "message": messageOf(err)}
	if d := apperr.DetailsOf(err); len(d) > 0 {
		body["details"] = d
	}
	c.JSON(statusFor(err), body)
}

func messageOf(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

func badRequest(c *gin.Context, msg string) {
	fail(c, apperr.New(apperr.Validation, msg))
}
