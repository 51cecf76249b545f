package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/logo-crawler/pkg/config"
	applog "github.com/Sriram-PR/logo-crawler/pkg/log"
	"github.com/Sriram-PR/logo-crawler/pkg/utils"
)

func testConfig(maxRetries int) *config.AppConfig {
	return &config.AppConfig{
		MaxRetries:        maxRetries,
		InitialRetryDelay: 10 * time.Millisecond,
		MaxRetryDelay:     50 * time.Millisecond,
		RequestTimeout:    5 * time.Second,
		MaxPageSizeBytes:  1024,
		DefaultUserAgent:  "logo-crawler-test",
	}
}

func testLogger() *logrus.Entry {
	return applog.Discard()
}

func testClient() *http.Client {
	return NewClient(config.HTTPClientConfig{Timeout: 30 * time.Second}, testLogger())
}

// statusSequence serves the given statuses in order, repeating the last one
func statusSequence(t *testing.T, codes ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	hits := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1)) - 1
		w.WriteHeader(codes[min(n, len(codes)-1)])
	}))
	t.Cleanup(server.Close)
	return server, hits
}

func newGet(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	return req
}

func TestDo_StatusHandling(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		codes      []int
		wantStatus int   // 0 when no response is returned
		wantErr    error // nil for success
		wantHits   int32
	}{
		{"200", 3, []int{200}, 200, nil, 1},
		{"204", 3, []int{204}, 204, nil, 1},
		{"5xx then ok", 3, []int{500, 502, 200}, 200, nil, 3},
		{"429 then ok", 3, []int{429, 200}, 200, nil, 2},
		{"mixed retryable then ok", 3, []int{500, 429, 503, 200}, 200, nil, 4},
		{"5xx exhausts retries", 3, []int{500}, 0, utils.ErrServerHTTPError, 4},
		{"429 exhausts retries", 2, []int{429}, 0, utils.ErrClientHTTPError, 3},
		{"zero retries", 0, []int{500}, 0, utils.ErrRetryFailed, 1},
		{"404 not retried", 3, []int{404}, 404, utils.ErrClientHTTPError, 1},
		{"403 not retried", 3, []int{403}, 403, utils.ErrClientHTTPError, 1},
		{"400 not retried", 3, []int{400}, 400, utils.ErrClientHTTPError, 1},
		{"304 not retried", 3, []int{304}, 304, utils.ErrOtherHTTPError, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, hits := statusSequence(t, tt.codes...)
			f := NewFetcher(testClient(), testConfig(tt.maxRetries), testLogger())

			resp, err := f.Do(context.Background(), newGet(t, server.URL))
			if resp != nil {
				defer resp.Body.Close()
			}

			assert.Equal(t, tt.wantHits, hits.Load())
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantStatus == 0 {
				assert.Nil(t, resp)
				assert.ErrorIs(t, err, utils.ErrRetryFailed)
				return
			}
			require.NotNil(t, resp)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var se *utils.StatusError
			if errors.As(err, &se) {
				assert.Equal(t, tt.wantStatus, se.Code)
			}
		})
	}
}

func TestDo_CancelledBeforeFirstAttempt(t *testing.T) {
	server, hits := statusSequence(t, 200)
	f := NewFetcher(testClient(), testConfig(3), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp, err := f.Do(ctx, newGet(t, server.URL))

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), hits.Load())
}

func TestDo_DeadlineDuringBackoff(t *testing.T) {
	server, hits := statusSequence(t, 500)
	cfg := testConfig(3)
	cfg.InitialRetryDelay = 10 * time.Second
	cfg.MaxRetryDelay = 10 * time.Second
	f := NewFetcher(testClient(), cfg, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	resp, err := f.Do(ctx, newGet(t, server.URL))

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), hits.Load())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDo_DeadlineDuringRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	f := NewFetcher(testClient(), testConfig(3), testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	resp, err := f.Do(ctx, newGet(t, server.URL))

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_RetriesDroppedConnection(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	f := NewFetcher(testClient(), testConfig(3), testLogger())

	resp, err := f.Do(context.Background(), newGet(t, server.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), hits.Load())
}

func TestBackoff(t *testing.T) {
	cfg := testConfig(5)
	cfg.InitialRetryDelay = 100 * time.Millisecond
	cfg.MaxRetryDelay = 300 * time.Millisecond
	f := NewFetcher(testClient(), cfg, testLogger())

	tests := []struct {
		attempt int
		base    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 300 * time.Millisecond},
		{10, 300 * time.Millisecond},
	}
	for _, tt := range tests {
		got := f.backoff(tt.attempt)
		assert.GreaterOrEqual(t, got, tt.base*9/10, "attempt %d", tt.attempt)
		assert.Less(t, got, tt.base*11/10, "attempt %d", tt.attempt)
	}
}

func TestFetch_SuccessReturnsBody(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<img src="/l.png" alt="logo">`)
	}))
	t.Cleanup(server.Close)

	fetcher := NewFetcher(testClient(), testConfig(0), testLogger())
	res := fetcher.Fetch(context.Background(), server.URL+"/")

	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, `<img src="/l.png" alt="logo">`, string(res.Body))
	assert.Equal(t, server.URL+"/", res.FinalURL.String())
	assert.Equal(t, "logo-crawler-test", gotUA)
}

func TestFetch_WithUserAgentOverride(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	t.Cleanup(server.Close)

	base := NewFetcher(testClient(), testConfig(0), testLogger())
	res := base.WithUserAgent("site-agent").Fetch(context.Background(), server.URL)

	require.True(t, res.OK())
	assert.Equal(t, "site-agent", gotUA)
	assert.Equal(t, "logo-crawler-test", base.userAgent, "WithUserAgent must not mutate the receiver")
	assert.Equal(t, "logo-crawler-test", base.WithUserAgent("").userAgent)
}

func TestFetch_NotFoundIsFailureWithStatus(t *testing.T) {
	server, attempts := statusSequence(t, http.StatusNotFound)

	fetcher := NewFetcher(testClient(), testConfig(3), testLogger())
	res := fetcher.Fetch(context.Background(), server.URL+"/missing")

	require.False(t, res.OK())
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.ErrorIs(t, res.Err, utils.ErrClientHTTPError)
	assert.Nil(t, res.Body)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, "http_404", utils.CategorizeError(res.Err))
}

func TestFetch_TransportErrorHasNoStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := server.URL
	server.Close()

	fetcher := NewFetcher(testClient(), testConfig(0), testLogger())
	res := fetcher.Fetch(context.Background(), deadURL)

	require.False(t, res.OK())
	assert.Equal(t, 0, res.StatusCode)
	assert.Nil(t, res.FinalURL)
	assert.ErrorIs(t, res.Err, utils.ErrRetryFailed)
}

func TestFetch_RequestTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	cfg := testConfig(3)
	cfg.RequestTimeout = 50 * time.Millisecond

	fetcher := NewFetcher(testClient(), cfg, testLogger())
	start := time.Now()
	res := fetcher.Fetch(context.Background(), server.URL)

	require.False(t, res.OK())
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFetch_OversizedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("a", 2048))
	}))
	t.Cleanup(server.Close)

	fetcher := NewFetcher(testClient(), testConfig(0), testLogger())
	res := fetcher.Fetch(context.Background(), server.URL)

	require.False(t, res.OK())
	assert.ErrorIs(t, res.Err, utils.ErrResponseBodyRead)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestFetch_FollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new/", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<p>moved</p>")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	fetcher := NewFetcher(testClient(), testConfig(0), testLogger())
	res := fetcher.Fetch(context.Background(), server.URL+"/old")

	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	assert.Equal(t, server.URL+"/old", res.RequestURL.String())
	assert.Equal(t, server.URL+"/new/", res.FinalURL.String())
	assert.Equal(t, server.URL+"/new/", res.BaseURL().String())
}

func TestFetch_InvalidURL(t *testing.T) {
	fetcher := NewFetcher(testClient(), testConfig(0), testLogger())
	res := fetcher.Fetch(context.Background(), "http://[::1")

	require.False(t, res.OK())
	assert.ErrorIs(t, res.Err, utils.ErrRequestCreation)
}

func TestResult_BaseURLFallsBackToRequest(t *testing.T) {
	fetcher := NewFetcher(testClient(), testConfig(0), testLogger())
	server, _ := statusSequence(t, http.StatusOK)

	res := fetcher.Fetch(context.Background(), server.URL+"/page")
	require.True(t, res.OK())

	res.FinalURL = nil
	assert.Equal(t, server.URL+"/page", res.BaseURL().String())
}
