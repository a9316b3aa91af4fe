package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/n3/backend/internal/interfaces/http/dto"
)

// WebhookSignatureHeader carries "sha256=<hex hmac of the raw body>"
const WebhookSignatureHeader = "X-Webhook-Signature"

const signaturePrefix = "sha256="

// SignPayload returns the header value for body under secret
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// WebhookSignature verifies the body HMAC and restores the body for binding.
// An empty secret disables verification.
func WebhookSignature(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Failed to read request body", GetRequestID(c)))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !validSignature(secret, body, c.GetHeader(WebhookSignatureHeader)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithHelp(
				dto.ErrCodeUnauthorized, "Webhook signature verification failed", GetRequestID(c),
				"sign the raw body with HMAC-SHA256 and send "+WebhookSignatureHeader+": sha256=<hex>"))
			return
		}
		c.Next()
	}
}

func validSignature(secret string, body []byte, header string) bool {
	got, ok := strings.CutPrefix(header, signaturePrefix)
	if !ok {
		return false
	}
	gotMAC, err := hex.DecodeString(got)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(gotMAC, mac.Sum(nil))
}
