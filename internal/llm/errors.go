package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from a provider. Message holds the
// provider's raw error text and is meant for logs, not end users.
type APIError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("llm/%s: HTTP %d (%s): %s", strings.ToLower(e.Provider), e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("llm/%s: HTTP %d: %s", strings.ToLower(e.Provider), e.StatusCode, e.Message)
}

// RateLimited reports whether the provider throttled the request.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// QuotaExhausted reports whether the account has run out of credits.
func (e *APIError) QuotaExhausted() bool {
	return e.StatusCode == http.StatusPaymentRequired
}

// UserMessage returns a short message suitable for showing to an end user.
func (e *APIError) UserMessage() string {
	msg := strings.ToLower(e.Message)
	switch {
	case e.RateLimited():
		return "Rate limit exceeded. Please try again in a moment."
	case e.QuotaExhausted():
		return "AI credits depleted. Please add credits to continue."
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return fmt.Sprintf("Invalid API key for %s. Check the provider configuration.", e.Provider)
	case strings.Contains(msg, "credit") || strings.Contains(msg, "billing") || strings.Contains(msg, "quota"):
		return fmt.Sprintf("Insufficient credits on the %s account.", e.Provider)
	case strings.Contains(msg, "model") && strings.Contains(msg, "not found"):
		return fmt.Sprintf("Model not found on %s. Check the configured model name.", e.Provider)
	case e.StatusCode >= 500:
		return fmt.Sprintf("%s is temporarily unavailable. Please try again later.", e.Provider)
	default:
		return "Failed to generate recommendations"
	}
}

// AsAPIError unwraps err to an *APIError if it contains one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
