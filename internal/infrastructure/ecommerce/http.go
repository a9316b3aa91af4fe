// Package ecommerce holds the marketplace adapters that publish listings.
package ecommerce

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/n3/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// maxResponseSize caps how much of a marketplace response is read (10MB)
const maxResponseSize = 10 * 1024 * 1024

// send executes req and returns the body of a 2xx response. Every other status,
// including a redirect the client did not follow, is mapped onto the integration
// sentinels; detail is appended when the platform sent a readable error body.
func send(client *http.Client, req *http.Request, detail func([]byte) string) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) && req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", integration.ErrPlatformUnavailable, err)
	}
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return body, nil
	}

	msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
	if detail != nil {
		if d := detail(body); d != "" {
			msg += ": " + d
		}
	}
	return nil, fmt.Errorf("%w: %s", statusError(resp.StatusCode), msg)
}

// statusError classifies an HTTP error status
func statusError(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return integration.ErrPlatformAuthFailed
	case status == http.StatusTooManyRequests:
		return integration.ErrPlatformRateLimited
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || status == http.StatusConflict:
		return integration.ErrListingRejected
	case status >= http.StatusInternalServerError:
		return integration.ErrPlatformUnavailable
	default:
		return integration.ErrPlatformRequestFailed
	}
}

// formatPrice renders an amount with two decimals as marketplaces expect
func formatPrice(d decimal.Decimal) string {
	return d.StringFixed(2)
}
