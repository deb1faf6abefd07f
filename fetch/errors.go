package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// classify maps a failed fetch attempt onto a metrics label and a retry
// decision. Only a definitive 404 and an aborted context are terminal;
// everything else (timeouts, connection resets, 5xx, rate limiting, bodies
// that arrived empty) gets retried until attempts run out.
func classify(err error, status int) (label string, retryable bool) {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "canceled", false
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "timeout", true
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "timeout", true
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return "connection", true
		}
	}

	switch status {
	case http.StatusNotFound:
		return "not_found", false
	case http.StatusTooManyRequests:
		return "rate_limited", true
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return "server", true
	case http.StatusOK:
		return "empty_body", true
	}
	if status != 0 {
		return "bad_status", true
	}
	return "transport", true
}
