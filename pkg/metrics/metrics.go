// Package metrics exposes crawl counters in Prometheus format.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "logo_crawler"

// Collector owns a private registry so several collectors can coexist in one process (and in tests)
type Collector struct {
	registry      *prometheus.Registry
	pagesAttempt  prometheus.Counter
	fetchFailures *prometheus.CounterVec
	matches       prometheus.Counter
	runs          *prometheus.CounterVec
}

// NewCollector creates and registers all crawl metrics
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		pagesAttempt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_attempted_total",
			Help:      "Distinct URLs whose fetch was attempted during traversal.",
		}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Failed page fetches during traversal, by error category.",
		}, []string{"category"}),
		matches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Pages found to display the target logo.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished crawl runs, by status and abort reason.",
		}, []string{"status", "reason"}),
	}
	c.registry.MustRegister(c.pagesAttempt, c.fetchFailures, c.matches, c.runs)
	return c
}

// PageAttempted counts one traversal fetch attempt
func (c *Collector) PageAttempted() {
	if c == nil {
		return
	}
	c.pagesAttempt.Inc()
}

// FetchFailed counts one failed fetch under category (see utils.CategorizeError)
func (c *Collector) FetchFailed(category string) {
	if c == nil {
		return
	}
	c.fetchFailures.WithLabelValues(category).Inc()
}

// MatchFound counts one page displaying the logo
func (c *Collector) MatchFound() {
	if c == nil {
		return
	}
	c.matches.Inc()
}

// RunFinished counts a finished run. reason is empty for completed runs.
func (c *Collector) RunFinished(status, reason string) {
	if c == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	c.runs.WithLabelValues(status, reason).Inc()
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (c *Collector) Serve(ctx context.Context, addr string, log *logrus.Entry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Infof("Serving metrics on http://%s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
