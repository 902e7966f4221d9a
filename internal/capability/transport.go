package capability

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"
)

const maxErrorBody = 512

// ClassifyStatus maps a non-2xx upstream response to a ProviderError. The body, if any,
// becomes the message, truncated.
func ClassifyStatus(kind error, provider string, status int, body []byte) *ProviderError {
	reason := ReasonUpstream
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		reason = ReasonAuth
	case status == http.StatusTooManyRequests:
		reason = ReasonRateLimit
	case status == http.StatusPaymentRequired:
		reason = ReasonQuota
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		reason = ReasonTimeout
	case status >= 500:
		reason = ReasonUnavailable
	}
	return &ProviderError{
		Kind:       kind,
		Provider:   provider,
		Reason:     reason,
		StatusCode: status,
		Message:    truncate(strings.TrimSpace(string(body)), maxErrorBody),
	}
}

// ClassifyResponse reads a bounded prefix of resp's body and classifies it by status.
func ClassifyResponse(kind error, provider string, resp *http.Response) *ProviderError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody*4))
	return ClassifyStatus(kind, provider, resp.StatusCode, body)
}

// ClassifyTransport maps a transport-level error to a ProviderError.
func ClassifyTransport(kind error, provider string, err error) *ProviderError {
	if errors.Is(err, context.Canceled) {
		return NewProviderError(kind, provider, ReasonCanceled, "", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewProviderError(kind, provider, ReasonTimeout, "", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewProviderError(kind, provider, ReasonTimeout, "", err)
	}
	return NewProviderError(kind, provider, ReasonUnavailable, "", err)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	s = s[:maxLen]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s + "..."
}
