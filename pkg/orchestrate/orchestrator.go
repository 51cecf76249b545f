package orchestrate

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/Sriram-PR/logo-crawler/pkg/config"
	"github.com/Sriram-PR/logo-crawler/pkg/crawler"
	"github.com/Sriram-PR/logo-crawler/pkg/fetch"
	"github.com/Sriram-PR/logo-crawler/pkg/metrics"
	"github.com/Sriram-PR/logo-crawler/pkg/models"
	"github.com/Sriram-PR/logo-crawler/pkg/storage"
)

// SiteResult contains the result of crawling a single site
type SiteResult struct {
	SiteKey    string
	RunID      string
	Outcome    *models.CrawlOutcome // nil when the crawl never started
	Report     models.CrawlReport
	ReportPath string // Empty when reports are disabled
	Error      error  // Config, input or report-writing failure
	Duration   time.Duration
}

// Success reports whether the site crawl completed
func (r SiteResult) Success() bool {
	return r.Error == nil && r.Outcome != nil && !r.Outcome.Aborted()
}

// Options tunes an Orchestrator
type Options struct {
	WriteReports    bool
	WriteVisitedLog bool // Also write <report>.visited.txt next to each report
	Metrics         *metrics.Collector
}

// Orchestrator crawls several configured sites concurrently.
// Each site runs its own sequential session; sites share one HTTP client and one pacer.
type Orchestrator struct {
	appCfg   *config.AppConfig
	log      *logrus.Entry
	siteKeys []string
	opts     Options

	fetcher     *fetch.Fetcher
	rateLimiter *fetch.RateLimiter
	siteSem     *semaphore.Weighted // Bounds concurrent sites to max_parallel_sites
}

// NewOrchestrator creates an orchestrator for siteKeys, which must exist in appCfg.Sites
func NewOrchestrator(appCfg *config.AppConfig, siteKeys []string, log *logrus.Entry, opts Options) *Orchestrator {
	parallel := appCfg.MaxParallelSites
	if parallel <= 0 {
		parallel = config.DefaultMaxParallelSites
	}

	return &Orchestrator{
		appCfg:      appCfg,
		log:         log,
		siteKeys:    siteKeys,
		opts:        opts,
		fetcher:     fetch.NewFetcher(fetch.NewClient(appCfg.HTTPClientSettings, log), appCfg, log),
		rateLimiter: fetch.NewRateLimiter(appCfg.DefaultDelayPerHost, log),
		siteSem:     semaphore.NewWeighted(int64(parallel)),
	}
}

// Run crawls all sites, at most max_parallel_sites at a time, and returns results sorted by site key.
// Cancelling ctx stops running crawls early; they still report their partial matches.
func (o *Orchestrator) Run(ctx context.Context) []SiteResult {
	if o.appCfg.GlobalCrawlTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.appCfg.GlobalCrawlTimeout)
		defer cancel()
	}

	began := time.Now()
	o.log.Infof("Crawling %d sites: %v", len(o.siteKeys), o.siteKeys)

	results := make([]SiteResult, len(o.siteKeys))
	var wg sync.WaitGroup
	for i, key := range o.siteKeys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := o.siteSem.Acquire(ctx, 1); err != nil {
				results[i] = SiteResult{SiteKey: key, Error: fmt.Errorf("site '%s' not started: %w", key, err)}
				return
			}
			defer o.siteSem.Release(1)
			results[i] = o.crawlSite(ctx, key)
		}()
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].SiteKey < results[j].SiteKey })
	o.logSummary(results, time.Since(began))
	return results
}

// crawlSite runs one site's crawl and writes its report
func (o *Orchestrator) crawlSite(ctx context.Context, siteKey string) SiteResult {
	began := time.Now()
	result := SiteResult{SiteKey: siteKey, RunID: uuid.NewString()}
	siteLog := o.log.WithFields(logrus.Fields{"site_key": siteKey, "run_id": result.RunID})

	siteCfg, ok := o.appCfg.Sites[siteKey]
	if !ok {
		result.Error = fmt.Errorf("site '%s' not found in configuration", siteKey)
		siteLog.Error(result.Error)
		return result
	}
	resolved, err := config.NewResolvedSiteConfig(siteKey, siteCfg, *o.appCfg)
	if err != nil {
		result.Error = err
		siteLog.Errorf("Failed to resolve site configuration: %v", err)
		return result
	}

	c := crawler.NewCrawler(crawler.Options{
		Fetcher:            o.fetcher.WithUserAgent(resolved.UserAgent),
		Pacer:              o.rateLimiter,
		Delay:              resolved.Delay,
		Metrics:            o.opts.Metrics,
		Logger:             siteLog,
		DisallowedPatterns: resolved.DisallowedPatterns,
	})
	req := models.CrawlRequest{StartURL: resolved.StartURL, MaxPages: resolved.MaxPages, Keyword: resolved.Keyword}

	out, err := c.Crawl(ctx, req)
	finished := time.Now()
	result.Duration = finished.Sub(began)
	if err != nil {
		result.Error = err
		siteLog.Errorf("Crawl rejected: %v", err)
		return result
	}
	result.Outcome = out
	result.Report = models.NewCrawlReport(result.RunID, siteKey, req, began, finished, out)

	if o.opts.WriteReports {
		path := filepath.Join(o.appCfg.OutputBaseDir, resolved.ReportFilename)
		if err := crawler.WriteReport(path, o.appCfg.ReportFormat, result.Report); err != nil {
			result.Error = err
			siteLog.Errorf("Failed to write report: %v", err)
			return result
		}
		result.ReportPath = path
		siteLog.Infof("Report written to %s", path)

		if o.opts.WriteVisitedLog {
			if err := storage.WriteVisitedLog(path+".visited.txt", out.Visited, siteLog); err != nil {
				siteLog.Warnf("Failed to write visited log: %v", err)
			}
		}
	}
	return result
}

// logSummary logs one line per site and a total
func (o *Orchestrator) logSummary(results []SiteResult, elapsed time.Duration) {
	var completed, matched int
	for _, r := range results {
		fields := logrus.Fields{"site_key": r.SiteKey, "duration": r.Duration.Round(time.Millisecond)}
		state := "failed"
		if r.Outcome != nil {
			fields["pages"] = r.Outcome.PagesVisited
			fields["matches"] = len(r.Outcome.Matches)
			matched += len(r.Outcome.Matches)
			if r.Outcome.Aborted() {
				state = "aborted: " + r.Outcome.AbortReason.String()
			}
		}
		if r.Success() {
			state = "completed"
			completed++
		}
		if r.Error != nil {
			fields["error"] = r.Error.Error()
		}
		o.log.WithFields(fields).Infof("Site %s", state)
	}
	o.log.Infof("Crawled %d sites in %v: %d completed, %d not, %d pages with the logo",
		len(results), elapsed.Round(time.Millisecond), completed, len(results)-completed, matched)
}

// ValidateSiteKeys checks that all provided site keys exist in the config
func ValidateSiteKeys(appCfg *config.AppConfig, siteKeys []string) error {
	for _, key := range siteKeys {
		if _, exists := appCfg.Sites[key]; !exists {
			return fmt.Errorf("site '%s' not found. Available sites: %v", key, appCfg.SiteKeys())
		}
	}
	return nil
}

// GetAllSiteKeys returns all site keys from the config, sorted
func GetAllSiteKeys(appCfg *config.AppConfig) []string {
	return appCfg.SiteKeys()
}
