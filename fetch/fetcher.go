// Package fetch wraps the colly collector with the retry and politeness
// policy the catalog tolerates.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/avasilkov/hltb-crawler/config"
)

// Outcome is the terminal result of fetching one page.
type Outcome int

const (
	// OK means a non-empty HTML document arrived.
	OK Outcome = iota
	// NotFound means the identifier is permanently absent (HTTP 404).
	NotFound
	// Failed means every attempt was exhausted without a usable response.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case NotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// backoffMultiplier grows the retry delay between attempts.
const backoffMultiplier = 1.7

// Fetcher issues bounded-concurrency, rate-limited GETs with retry.
//
// The collector's limit rule is the permit pool: at most Concurrency requests
// are in flight process-wide, and the politeness delay (base + jitter) is
// applied per request inside the permit.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	metrics   *Metrics
}

// attemptResult carries one attempt's response out of the collector
// callbacks, keyed into the request context.
type attemptResult struct {
	status int
	body   string
	err    error
}

const resultKey = "result"

// New builds a fetcher configured from cfg.
func New(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.URLFor(1))
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("page url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Concurrency,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	collector.OnResponse(func(r *colly.Response) {
		if res, ok := r.Ctx.GetAny(resultKey).(*attemptResult); ok {
			res.status = r.StatusCode
			res.body = string(r.Body)
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		ctx := r.Ctx
		if ctx == nil && r.Request != nil {
			ctx = r.Request.Ctx
		}
		if ctx == nil {
			return
		}
		if res, ok := ctx.GetAny(resultKey).(*attemptResult); ok {
			res.status = r.StatusCode
			res.err = err
		}
	})

	return &Fetcher{
		cfg:       cfg,
		collector: collector,
		metrics:   metrics,
	}, nil
}

// WithTransport swaps the HTTP transport; tests inject a mock here.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// Fetch retrieves one page. A 404 short-circuits to NotFound with no retry;
// retryable statuses, empty bodies, timeouts and transport errors back off
// and try again until MaxAttempts, then surface as Failed.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, Outcome) {
	backoff := f.cfg.RetryBackoff
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return "", Failed
		}

		res := &attemptResult{}
		rctx := colly.NewContext()
		rctx.Put(resultKey, res)

		f.metrics.IncRequest("started")
		start := time.Now()
		if err := f.collector.Request("GET", pageURL, nil, rctx, nil); err != nil && res.err == nil {
			res.err = err
		}
		f.metrics.ObserveDuration(time.Since(start))

		if res.status == http.StatusNotFound {
			return "", NotFound
		}
		if res.status == http.StatusOK && res.body != "" {
			return res.body, OK
		}

		label, retryable := classify(res.err, res.status)
		f.metrics.IncError(label)
		slog.Warn("fetch attempt failed",
			slog.String("url", pageURL),
			slog.Int("attempt", attempt),
			slog.Int("status", res.status),
			slog.String("category", label),
		)
		if !retryable {
			return "", Failed
		}

		if attempt < f.cfg.MaxAttempts {
			f.metrics.IncRetries()
			if !sleepCtx(ctx, jittered(backoff)) {
				return "", Failed
			}
			backoff = time.Duration(float64(backoff) * backoffMultiplier)
			if max := f.cfg.RetryBackoffMax; max > 0 && backoff > max {
				backoff = max
			}
		}
	}
	return "", Failed
}

// jittered spreads retries out by up to the delay itself, so concurrent
// retry storms do not synchronize.
func jittered(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(d)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
