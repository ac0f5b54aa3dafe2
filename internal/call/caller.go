// Package call implements the resilient outbound call used by every adapter:
// per-attempt timeout, bounded exponential retry, 429 cooldown,
// rolling quota and per-host soft rate limiting.
package call

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/policyvoice/corroborate/internal/metrics"
	"github.com/policyvoice/corroborate/internal/util"
)

// Request describes one outbound request
type Request struct {
	Method string // default GET
	URL    string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Response is a successful (2xx) upstream response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a Caller
type Options struct {
	Upstream     string // label for logs and metrics
	Account      string // quota account label
	Client       *http.Client
	Policy       Policy
	Limiter      *Limiter  // optional
	Quota        Quota     // optional
	Sleep        SleepFunc // optional, for tests
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	UserAgent    string
	MaxBodyBytes int64
}

// Caller places requests to one upstream under a Policy
type Caller struct {
	upstream     string
	account      string
	client       *http.Client
	policy       Policy
	limiter      *Limiter
	quota        Quota
	sleep        SleepFunc
	logger       *zap.Logger
	metrics      *metrics.Metrics
	userAgent    string
	maxBodyBytes int64
}

// New creates a Caller
func New(opts Options) *Caller {
	opts.Policy.ApplyDefaults()

	client := opts.Client
	if client == nil {
		client = NewHTTPClient("", "", "")
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New(nil)
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 8_000_000
	}

	return &Caller{
		upstream:     opts.Upstream,
		account:      opts.Account,
		client:       client,
		policy:       opts.Policy,
		limiter:      opts.Limiter,
		quota:        opts.Quota,
		sleep:        sleep,
		logger:       logger.With(zap.String("upstream", opts.Upstream)),
		metrics:      m,
		userAgent:    opts.UserAgent,
		maxBodyBytes: maxBody,
	}
}

// NewHTTPClient creates the shared outbound client. The per-attempt timeout is
// applied through the request context, so the client itself has none.
func NewHTTPClient(httpProxy, httpsProxy, noProxy string) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               util.NewProxyFunc(httpProxy, httpsProxy, noProxy),
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}
}

// Policy returns the effective policy
func (c *Caller) Policy() Policy {
	return c.policy
}

// Do places the request, retrying transient failures.
// The returned error is always a *Failure.
func (c *Caller) Do(ctx context.Context, req Request) (*Response, error) {
	target := redact(req.URL)
	var last *Failure
	cooled := false

	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		if c.quota != nil {
			ok, err := c.quota.Allow(ctx)
			if err != nil {
				c.logger.Warn("quota check failed, allowing request",
					zap.String("account", c.account),
					zap.Error(err),
				)
			} else if !ok {
				c.metrics.QuotaRejections.WithLabelValues(c.account).Inc()
				c.logger.Warn("quota exhausted, request not sent",
					zap.String("account", c.account),
					zap.Int("attempt", attempt+1),
				)
				return nil, c.finish(&Failure{
					Reason:   ReasonQuotaExhausted,
					Upstream: c.upstream,
					URL:      target,
					Attempts: attempt,
				})
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, req.URL); err != nil {
				return nil, c.finish(&Failure{
					Reason:   ReasonTimeout,
					Upstream: c.upstream,
					URL:      target,
					Attempts: attempt,
					Err:      fmt.Errorf("rate limiter: %w", err),
				})
			}
		}

		start := time.Now()
		resp, fail := c.attempt(ctx, req)
		elapsed := time.Since(start)
		c.metrics.UpstreamDuration.WithLabelValues(c.upstream).Observe(elapsed.Seconds())

		if fail == nil {
			resp.Attempts = attempt + 1
			c.metrics.UpstreamAttempts.WithLabelValues(c.upstream, "ok").Inc()
			c.logger.Debug("upstream attempt succeeded",
				zap.Int("attempt", attempt+1),
				zap.Int("status_code", resp.StatusCode),
				zap.Duration("duration", elapsed),
			)
			return resp, nil
		}

		fail.Upstream = c.upstream
		fail.URL = target
		fail.Attempts = attempt + 1
		last = fail
		c.metrics.UpstreamAttempts.WithLabelValues(c.upstream, string(fail.Reason)).Inc()
		c.logger.Info("upstream attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", c.policy.MaxRetries+1),
			zap.String("reason", string(fail.Reason)),
			zap.Int("status_code", fail.StatusCode),
			zap.Duration("duration", elapsed),
			zap.Bool("transient", fail.transient),
			zap.Error(fail.Err),
		)

		if !fail.transient || ctx.Err() != nil {
			break
		}
		if attempt == c.policy.MaxRetries {
			break
		}

		delay := c.policy.Backoff(attempt)
		if fail.Reason == ReasonRateLimited && !cooled {
			delay = c.policy.RateLimitCooldown
			cooled = true
		}
		if err := c.sleep(ctx, delay); err != nil {
			break
		}
	}

	return nil, c.finish(last)
}

func (c *Caller) finish(f *Failure) *Failure {
	c.metrics.UpstreamFailures.WithLabelValues(c.upstream, string(f.Reason)).Inc()
	c.logger.Warn("upstream call failed",
		zap.String("reason", string(f.Reason)),
		zap.Int("attempts", f.Attempts),
		zap.Int("status_code", f.StatusCode),
	)
	return f
}

// attempt performs a single request under the per-attempt timeout
func (c *Caller) attempt(ctx context.Context, req Request) (*Response, *Failure) {
	actx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	httpReq, err := c.newRequest(actx, req)
	if err != nil {
		return nil, &Failure{Reason: ReasonUnknown, Err: err}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return nil, classifyError(ctx, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason, transient := classifyStatus(resp.StatusCode)
		return nil, &Failure{
			Reason:     reason,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", resp.Status),
			transient:  transient,
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *Caller) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

// classifyError maps a transport error onto a failure.
// ctx is the caller's context: when it is done the failure is not retried.
func classifyError(ctx context.Context, err error) *Failure {
	callerGone := ctx.Err() != nil

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Failure{Reason: ReasonTimeout, Err: err, transient: !callerGone}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Failure{Reason: ReasonTimeout, Err: err, transient: !callerGone}
	}
	return &Failure{Reason: ReasonUnknown, Err: err, transient: !callerGone}
}

// GetJSON performs a GET and decodes the JSON body into out
func (c *Caller) GetJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	resp, err := c.Do(ctx, Request{URL: rawURL, Query: query})
	if err != nil {
		return err
	}
	return c.decode(resp, rawURL, out)
}

// DoJSON places req and decodes the JSON body into out
func (c *Caller) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return c.decode(resp, req.URL, out)
}

// PostJSON encodes body as JSON, POSTs it and decodes the response into out
func (c *Caller) PostJSON(ctx context.Context, rawURL string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return &Failure{Reason: ReasonUnknown, Upstream: c.upstream, URL: redact(rawURL), Err: fmt.Errorf("marshal body: %w", err)}
	}
	resp, err := c.Do(ctx, Request{Method: http.MethodPost, URL: rawURL, Body: data})
	if err != nil {
		return err
	}
	return c.decode(resp, rawURL, out)
}

func (c *Caller) decode(resp *Response, rawURL string, out any) error {
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return c.finish(&Failure{
			Reason:     ReasonUnknown,
			Upstream:   c.upstream,
			URL:        redact(rawURL),
			Attempts:   resp.Attempts,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode response: %w", err),
		})
	}
	return nil
}

// redact strips the query string, which may carry API keys
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
