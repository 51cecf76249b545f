package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/logo-crawler/pkg/config"
	"github.com/Sriram-PR/logo-crawler/pkg/utils"
)

// Fetcher issues GET requests through a shared http.Client, retrying transient failures
type Fetcher struct {
	client    *http.Client
	cfg       *config.AppConfig // Retry, timeout and size settings
	userAgent string
	log       *logrus.Entry
}

// NewFetcher creates a Fetcher that sends the config's default User-Agent
func NewFetcher(client *http.Client, cfg *config.AppConfig, log *logrus.Entry) *Fetcher {
	return &Fetcher{
		client:    client,
		cfg:       cfg,
		userAgent: cfg.DefaultUserAgent,
		log:       log,
	}
}

// WithUserAgent returns a copy of f that sends ua (no-op for an empty ua)
func (f *Fetcher) WithUserAgent(ua string) *Fetcher {
	clone := *f
	if ua != "" {
		clone.userAgent = ua
	}
	return &clone
}

// Fetch performs one logical GET of pageURL bounded by the configured request timeout.
// Transport failures, non-2xx statuses and oversized bodies all come back as a failed Result.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) Result {
	var res Result

	if f.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.RequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		res.Err = fmt.Errorf("%w: %s: %w", utils.ErrRequestCreation, pageURL, err)
		return res
	}
	res.RequestURL = req.URL
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.Do(ctx, req)
	if resp != nil {
		defer resp.Body.Close()
		res.StatusCode = resp.StatusCode
		res.FinalURL = resp.Request.URL
	}
	if err != nil {
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
		}
		res.Err = err
		return res
	}

	res.Body, res.Err = f.readBody(resp)
	if res.Err == nil {
		ct := resp.Header.Get("Content-Type")
		f.log.WithFields(logrus.Fields{
			"url":          res.FinalURL.String(),
			"bytes":        len(res.Body),
			"content_type": ct,
			"html":         isHTMLContentType(ct),
		}).Debug("Fetched page")
	}
	return res
}

// readBody reads at most MaxPageSizeBytes; a longer body is an error rather than a truncation
func (f *Fetcher) readBody(resp *http.Response) ([]byte, error) {
	limit := f.cfg.MaxPageSizeBytes
	if limit <= 0 {
		limit = config.DefaultMaxPageSizeBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", utils.ErrResponseBodyRead, resp.Request.URL, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", utils.ErrResponseBodyRead, resp.Request.URL, limit)
	}
	return body, nil
}

// Do sends req, retrying transport errors, 5xx and 429 with capped exponential backoff.
//
// A 2xx response is returned with a nil error. Any other status that is not retried is
// returned together with a *utils.StatusError; the caller closes the body in both cases.
// When every attempt fails the error wraps utils.ErrRetryFailed and the last cause.
// Context cancellation or expiry ends the loop immediately and is never retried.
func (f *Fetcher) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	reqLog := f.log.WithField("url", req.URL.String())
	attempts := f.cfg.MaxRetries + 1

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := f.backoff(attempt)
			reqLog.WithFields(logrus.Fields{"attempt": attempt, "max_retries": f.cfg.MaxRetries, "delay": delay}).
				Warnf("Retrying after: %v", lastErr)
			if err := sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("%w (waiting to retry after: %v)", err, lastErr)
			}
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := f.client.Do(req.WithContext(ctx))
		if err != nil {
			if resp != nil {
				discard(resp)
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			reqLog.WithField("attempt", attempt).Errorf("Network error: %v", err)
			lastErr = err
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		statusErr := utils.NewStatusError(resp.StatusCode, resp.Status)
		statusLog := reqLog.WithFields(logrus.Fields{"status_code": resp.StatusCode, "attempt": attempt})
		if !statusErr.Retryable() {
			statusLog.Warn("Non-retryable HTTP status")
			return resp, statusErr
		}
		statusLog.Warn("Retryable HTTP status")
		discard(resp)
		lastErr = statusErr
	}

	reqLog.Errorf("Giving up after %d attempts: %v", attempts, lastErr)
	if lastErr == nil {
		return nil, utils.ErrRetryFailed
	}
	return nil, fmt.Errorf("%w: %w", utils.ErrRetryFailed, lastErr)
}

// backoff returns InitialRetryDelay doubled per retry, capped at MaxRetryDelay, with ±10% jitter
func (f *Fetcher) backoff(attempt int) time.Duration {
	d := f.cfg.InitialRetryDelay
	for i := 1; i < attempt && d > 0 && d < f.cfg.MaxRetryDelay; i++ {
		d *= 2
	}
	if d <= 0 || d > f.cfg.MaxRetryDelay {
		d = f.cfg.MaxRetryDelay
	}
	return jitter(d)
}

// jitter spreads d uniformly over roughly [0.9d, 1.1d)
func jitter(d time.Duration) time.Duration {
	if span := int64(d) / 5; span > 0 {
		d += time.Duration(rand.Int64N(span)) - d/10
	}
	return max(d, 0)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// discard drains and closes the body so the connection can be reused
func discard(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
