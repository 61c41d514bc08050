package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/regime-watch/internal/ratelimit"
	"github.com/selivandex/regime-watch/pkg/logger"
)

// CredentialProvider supplies and refreshes the auth token. Refresh is
// called at most once per failing request.
type CredentialProvider interface {
	CurrentToken() (string, bool)
	Refresh(ctx context.Context) (string, error)
}

// Options controls a single request's execution
type Options struct {
	Method       string
	Body         []byte
	Header       http.Header
	Timeout      time.Duration
	MaxRetries   int // total attempts including the first try
	BaseDelay    time.Duration
	RequiresAuth bool
	Retry429     bool
}

// Response is the successful result of an executed request
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Executor runs rate-limited, retrying, auth-aware HTTP requests
type Executor struct {
	limiter  *ratelimit.Limiter
	creds    CredentialProvider
	do       func(*http.Request) (*http.Response, error)
	sleep    func(ctx context.Context, d time.Duration) error
	defaults Options
}

// New creates an executor with the given limiter, credential provider and
// per-request defaults. The credential provider may be nil when no endpoint
// requires auth.
func New(limiter *ratelimit.Limiter, creds CredentialProvider, defaults Options) *Executor {
	client := &http.Client{}

	return &Executor{
		limiter:  limiter,
		creds:    creds,
		do:       client.Do,
		sleep:    sleepCtx,
		defaults: defaults,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do executes the request against target with the retry pipeline:
// rate-limit gate, per-attempt timeout, failure classification, exponential
// backoff, and a single credential refresh on 401.
func (e *Executor) Do(ctx context.Context, target string, opts Options) (*Response, error) {
	opts = e.merge(opts)

	if !e.limiter.Allow() {
		return nil, &RequestError{Kind: KindRateLimited, Err: errors.New("local rate limit exceeded")}
	}

	var (
		lastErr   *RequestError
		refreshed bool
	)

	attempt := 0
	for attempt < opts.MaxRetries {
		resp, reqErr := e.attempt(ctx, target, opts)
		if reqErr == nil {
			return resp, nil
		}

		// Parent cancellation is never retried
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if reqErr.Status == http.StatusUnauthorized && !refreshed && e.creds != nil {
			refreshed = true
			if _, err := e.creds.Refresh(ctx); err != nil {
				return nil, &RequestError{Kind: KindAuthRefresh, Status: http.StatusUnauthorized, Attempts: attempt + 1, Err: err}
			}
			logger.Debug("credentials refreshed, retrying request", zap.String("target", target))
			// The refreshed retry does not consume an attempt
			continue
		}

		reqErr.Attempts = attempt + 1
		if !reqErr.Retryable() {
			return nil, reqErr
		}

		lastErr = reqErr
		attempt++
		if attempt >= opts.MaxRetries {
			break
		}

		delay := opts.BaseDelay * (1 << (attempt - 1))
		logger.Debug("retrying request",
			zap.String("target", target),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.String("reason", reqErr.Kind.String()),
		)
		if err := e.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	lastErr.Attempts = opts.MaxRetries
	return nil, lastErr
}

// attempt performs one network attempt and classifies its outcome
func (e *Executor) attempt(ctx context.Context, target string, opts Options) (*Response, *RequestError) {
	attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var body io.Reader
	if len(opts.Body) > 0 {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, opts.Method, target, body)
	if err != nil {
		return nil, &RequestError{Kind: KindClient, Err: err}
	}
	for k, vals := range opts.Header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	if e.creds != nil {
		if token, ok := e.creds.CurrentToken(); ok || opts.RequiresAuth {
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
		}
	}

	httpResp, err := e.do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &RequestError{Kind: KindTimeout, Err: err}
		}
		return nil, &RequestError{Kind: KindNetwork, Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &RequestError{Kind: KindNetwork, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	switch {
	case httpResp.StatusCode >= 200 && httpResp.StatusCode < 300:
		return &Response{
			StatusCode: httpResp.StatusCode,
			Header:     httpResp.Header,
			Body:       data,
		}, nil

	case httpResp.StatusCode == http.StatusUnauthorized:
		return nil, &RequestError{Kind: KindUnauthorized, Status: httpResp.StatusCode}

	case httpResp.StatusCode == http.StatusTooManyRequests:
		if opts.Retry429 {
			return nil, &RequestError{Kind: KindServer, Status: httpResp.StatusCode}
		}
		return nil, &RequestError{Kind: KindRateLimited, Status: httpResp.StatusCode}

	case httpResp.StatusCode >= 500:
		return nil, &RequestError{Kind: KindServer, Status: httpResp.StatusCode}

	default:
		return nil, &RequestError{Kind: KindClient, Status: httpResp.StatusCode}
	}
}

// GetJSON executes a GET against target and decodes the JSON response into out
func (e *Executor) GetJSON(ctx context.Context, target string, out interface{}) error {
	resp, err := e.Do(ctx, target, Options{Method: http.MethodGet})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", target, err)
	}
	return nil
}

// merge fills zero-valued options from the executor defaults
func (e *Executor) merge(opts Options) Options {
	if opts.Method == "" {
		opts.Method = http.MethodGet
	}
	if opts.Timeout <= 0 {
		opts.Timeout = e.defaults.Timeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = e.defaults.MaxRetries
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = e.defaults.BaseDelay
	}
	return opts
}
