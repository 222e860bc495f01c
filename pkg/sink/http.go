package sink

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chatscrape/pkg/config"
	errs "chatscrape/pkg/errors"
	"chatscrape/pkg/logger"
	"chatscrape/pkg/ratelimit"
	"chatscrape/pkg/retry"
)

// HTTPSink posts each line as text/plain to a local receiver
type HTTPSink struct {
	url        string
	httpClient *http.Client
	limiter    ratelimit.Limiter
	retry      *retry.Config
	headers    map[string]string
	logger     logger.Logger
}

// NewHTTPSink creates a sink for cfg.URL
func NewHTTPSink(cfg config.HTTPSinkConfig, log logger.Logger) (*HTTPSink, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid sink url %q", cfg.URL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPSink{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    newLimiter(cfg),
		retry: &retry.Config{
			MaxAttempts: cfg.MaxRetries + 1,
			Backoff:     retry.NewErrorTypeBackoff(),
			RetryIf:     retry.DefaultRetryIf,
			Logger:      log,
		},
		headers: map[string]string{
			"Content-Type": "text/plain; charset=utf-8",
			"User-Agent":   "chatscrape/" + logger.Version,
		},
		logger: log,
	}, nil
}

// newLimiter builds the configured limiter. A non-positive rate disables
// throttling whatever the kind.
func newLimiter(cfg config.HTTPSinkConfig) ratelimit.Limiter {
	if cfg.Limiter == config.LimiterSliding && cfg.RequestsPerSecond > 0 && cfg.Window > 0 {
		quota := int(math.Round(cfg.RequestsPerSecond * cfg.Window.Seconds()))
		if quota < 1 {
			quota = 1
		}
		return ratelimit.NewSlidingWindow(quota, cfg.Window)
	}
	return ratelimit.NewTokenBucket(cfg.RequestsPerSecond, cfg.Burst)
}

// SetHeader sets a header sent with every request
func (s *HTTPSink) SetHeader(key, value string) {
	s.headers[key] = value
}

func (s *HTTPSink) Name() string { return "http:" + s.url }

// Send posts line, retrying network failures, 429 and 5xx responses
func (s *HTTPSink) Send(ctx context.Context, line string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return errs.Wrap(errs.ErrorTypeSinkDelivery, err, "rate limiter wait")
	}

	err := retry.Do(ctx, func(ctx context.Context) error {
		return s.post(ctx, line)
	}, s.retry)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeSinkDelivery, err, "post line")
	}
	return nil
}

func (s *HTTPSink) post(ctx context.Context, line string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, strings.NewReader(line))
	if err != nil {
		return errs.Wrap(errs.ErrorTypeClientError, err, "failed to create request")
	}
	for key, value := range s.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		logger.LogRequest(s.logger, req.Method, s.url, 0, duration)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errs.Wrap(errs.ErrorTypeNetwork, err, "request failed")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	logger.LogRequest(s.logger, req.Method, s.url, resp.StatusCode, duration)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return errs.WithCode(errs.ForStatus(resp.StatusCode), resp.StatusCode,
		fmt.Sprintf("receiver returned %s", resp.Status))
}

func (s *HTTPSink) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

// SetBackoff replaces the retry backoff
func (s *HTTPSink) SetBackoff(b retry.BackoffStrategy) {
	s.retry.Backoff = b
}
