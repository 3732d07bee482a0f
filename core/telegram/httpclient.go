package telegram

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/accessbot/core/telegram/netutil"
)

const (
	defaultClientTimeout = 30 * time.Second
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 2 * time.Second
	// longPollSlack keeps the client deadline above the getUpdates wait.
	longPollSlack = 10 * time.Second
)

// HTTPClientOptions overrides BuildHTTPClient defaults; zero values keep them.
type HTTPClientOptions struct {
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	// LongPoll is the getUpdates timeout; the client deadline is raised to
	// outlast it.
	LongPoll time.Duration
}

func (o HTTPClientOptions) withDefaults() HTTPClientOptions {
	if o.Timeout <= 0 {
		o.Timeout = defaultClientTimeout
	}
	if min := o.LongPoll + longPollSlack; o.LongPoll > 0 && o.Timeout < min {
		o.Timeout = min
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultRetryAttempts
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = defaultRetryBackoff
	}
	return o
}

// BuildHTTPClient returns the client used for Bot API calls. Requests that
// fail before a response (dial errors, timeouts) are retried with linear
// backoff when their body can be replayed.
func BuildHTTPClient(opts HTTPClientOptions) *http.Client {
	opts = opts.withDefaults()
	base := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: &retryTransport{base: base, maxRetries: opts.MaxRetries, backoff: opts.RetryBackoff},
	}
}

type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		r, ok := replay(req, attempt)
		if !ok {
			return nil, lastErr
		}
		resp, err := t.base.RoundTrip(r)
		if err == nil || attempt > t.maxRetries || !netutil.ShouldRetry(err) {
			return resp, err
		}
		lastErr = err
		if err := sleepCtx(req.Context(), t.backoff*time.Duration(attempt)); err != nil {
			return nil, err
		}
	}
}

// replay returns the request for the given attempt, cloning it with a fresh
// body after the first. It reports false when the body cannot be rewound.
func replay(req *http.Request, attempt int) (*http.Request, bool) {
	if attempt == 1 {
		return req, true
	}
	r := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return r, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	r.Body = body
	return r, true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
