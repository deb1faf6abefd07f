package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/avasilkov/hltb-crawler/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.PageURL = "http://example.test/game/%d"
	cfg.Concurrency = 1
	cfg.MaxAttempts = 3
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 2 * time.Millisecond
	cfg.Delay = 0
	cfg.RandomDelay = 0
	cfg.Timeout = 5 * time.Second
	return cfg
}

func newTestFetcher(t *testing.T, cfg *config.Config, transport http.RoundTripper) *Fetcher {
	t.Helper()
	f, err := New(cfg, NewMetrics())
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	f.WithTransport(transport)
	return f
}

func TestFetchOK(t *testing.T) {
	cfg := testConfig()
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", cfg.URLFor(1),
		httpmock.NewStringResponder(200, "<html><body>page</body></html>"))

	f := newTestFetcher(t, cfg, transport)
	body, outcome := f.Fetch(context.Background(), cfg.URLFor(1))
	if outcome != OK {
		t.Fatalf("outcome = %v, want OK", outcome)
	}
	if !strings.Contains(body, "page") {
		t.Fatalf("body = %q, want page content", body)
	}
	if got := transport.GetTotalCallCount(); got != 1 {
		t.Fatalf("call count = %d, want 1", got)
	}
}

func TestFetchNotFoundNoRetry(t *testing.T) {
	cfg := testConfig()
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", cfg.URLFor(2),
		httpmock.NewStringResponder(404, "not found"))

	f := newTestFetcher(t, cfg, transport)
	_, outcome := f.Fetch(context.Background(), cfg.URLFor(2))
	if outcome != NotFound {
		t.Fatalf("outcome = %v, want NotFound", outcome)
	}
	if got := transport.GetTotalCallCount(); got != 1 {
		t.Fatalf("call count = %d, want 1 (404 must not retry)", got)
	}
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	cfg := testConfig()
	var calls int32
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", cfg.URLFor(3), func(req *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			return httpmock.NewStringResponse(503, "unavailable"), nil
		}
		return httpmock.NewStringResponse(200, "<html>late success</html>"), nil
	})

	f := newTestFetcher(t, cfg, transport)
	body, outcome := f.Fetch(context.Background(), cfg.URLFor(3))
	if outcome != OK {
		t.Fatalf("outcome = %v, want OK after retries", outcome)
	}
	if !strings.Contains(body, "late success") {
		t.Fatalf("body = %q", body)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("call count = %d, want 3", got)
	}
}

func TestFetchExhaustsAttempts(t *testing.T) {
	cfg := testConfig()
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", cfg.URLFor(4),
		httpmock.NewStringResponder(503, "unavailable"))

	f := newTestFetcher(t, cfg, transport)
	_, outcome := f.Fetch(context.Background(), cfg.URLFor(4))
	if outcome != Failed {
		t.Fatalf("outcome = %v, want Failed", outcome)
	}
	if got := transport.GetTotalCallCount(); got != cfg.MaxAttempts {
		t.Fatalf("call count = %d, want %d", got, cfg.MaxAttempts)
	}
}

func TestFetchEmptyBodyRetries(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 2
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", cfg.URLFor(5),
		httpmock.NewStringResponder(200, ""))

	f := newTestFetcher(t, cfg, transport)
	_, outcome := f.Fetch(context.Background(), cfg.URLFor(5))
	if outcome != Failed {
		t.Fatalf("outcome = %v, want Failed for persistently empty bodies", outcome)
	}
	if got := transport.GetTotalCallCount(); got != 2 {
		t.Fatalf("call count = %d, want 2", got)
	}
}

func TestFetchCanceledContext(t *testing.T) {
	cfg := testConfig()
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", cfg.URLFor(6),
		httpmock.NewStringResponder(200, "<html>ok</html>"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestFetcher(t, cfg, transport)
	_, outcome := f.Fetch(ctx, cfg.URLFor(6))
	if outcome != Failed {
		t.Fatalf("outcome = %v, want Failed for a canceled context", outcome)
	}
	if got := transport.GetTotalCallCount(); got != 0 {
		t.Fatalf("call count = %d, want 0", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		expected  string
		retryable bool
	}{
		{name: "canceled", err: context.Canceled, status: 0, expected: "canceled", retryable: false},
		{name: "context timeout", err: context.DeadlineExceeded, status: 0, expected: "timeout", retryable: true},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, status: 0, expected: "timeout", retryable: true},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, status: 0, expected: "connection", retryable: true},
		{name: "not found", err: nil, status: http.StatusNotFound, expected: "not_found", retryable: false},
		{name: "rate limited", err: nil, status: http.StatusTooManyRequests, expected: "rate_limited", retryable: true},
		{name: "server 500", err: nil, status: http.StatusInternalServerError, expected: "server", retryable: true},
		{name: "server 502", err: nil, status: http.StatusBadGateway, expected: "server", retryable: true},
		{name: "server 503", err: nil, status: http.StatusServiceUnavailable, expected: "server", retryable: true},
		{name: "server 504", err: nil, status: http.StatusGatewayTimeout, expected: "server", retryable: true},
		{name: "empty body", err: nil, status: http.StatusOK, expected: "empty_body", retryable: true},
		{name: "forbidden", err: nil, status: http.StatusForbidden, expected: "bad_status", retryable: true},
		{name: "transport", err: errors.New("mystery"), status: 0, expected: "transport", retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, retryable := classify(tt.err, tt.status)
			if label != tt.expected || retryable != tt.retryable {
				t.Fatalf("classify(%v, %d) = %q/%v, want %q/%v",
					tt.err, tt.status, label, retryable, tt.expected, tt.retryable)
			}
		})
	}
}

func TestJitteredBounds(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		d := jittered(base)
		if d < base || d > 2*base {
			t.Fatalf("jittered(%v) = %v, want within [%v, %v]", base, d, base, 2*base)
		}
	}
	if d := jittered(0); d != 0 {
		t.Fatalf("jittered(0) = %v, want 0", d)
	}
}
