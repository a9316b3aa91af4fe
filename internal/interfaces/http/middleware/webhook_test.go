package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestWebhookSignature(t *testing.T) {
	const secret = "s3cr3t"
	body := `{"event_id":"evt-1","sku":"SKU-1","new_cost":"9.50"}`

	router := gin.New()
	router.POST("/hook", WebhookSignature(secret), func(c *gin.Context) {
		raw, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(raw))
	})

	tests := []struct {
		name      string
		signature string
		status    int
	}{
		{"valid", SignPayload(secret, []byte(body)), http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", SignPayload("other", []byte(body)), http.StatusUnauthorized},
		{"no prefix", strings.TrimPrefix(SignPayload(secret, []byte(body)), "sha256="), http.StatusUnauthorized},
		{"not hex", "sha256=zz", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
			if tt.signature != "" {
				req.Header.Set(WebhookSignatureHeader, tt.signature)
			}
			w := serve(router, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, body, w.Body.String(), "body is restored for binding")
			}
		})
	}
}

func TestWebhookSignature_NoSecret(t *testing.T) {
	router := gin.New()
	router.POST("/hook", WebhookSignature(""), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader("{}")))
	assert.Equal(t, http.StatusOK, w.Code)
}
