package crawler

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/logo-crawler/pkg/fetch"
	applog "github.com/Sriram-PR/logo-crawler/pkg/log"
	"github.com/Sriram-PR/logo-crawler/pkg/logo"
	"github.com/Sriram-PR/logo-crawler/pkg/metrics"
	"github.com/Sriram-PR/logo-crawler/pkg/models"
	"github.com/Sriram-PR/logo-crawler/pkg/parse"
	"github.com/Sriram-PR/logo-crawler/pkg/queue"
	"github.com/Sriram-PR/logo-crawler/pkg/scope"
	"github.com/Sriram-PR/logo-crawler/pkg/storage"
	"github.com/Sriram-PR/logo-crawler/pkg/utils"
)

// PageFetcher retrieves one page. *fetch.Fetcher satisfies it.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) fetch.Result
}

// Options configures a Crawler
type Options struct {
	Fetcher            PageFetcher
	Pacer              *fetch.RateLimiter // Shared across runs; one is created when nil
	Delay              time.Duration      // Minimum spacing between traversal fetches; zero disables
	Metrics            *metrics.Collector // Optional
	Logger             *logrus.Entry
	DisallowedPatterns []*regexp.Regexp // Matched against the path of candidate links
	OnPage             ProgressFunc     // Optional; called after every traversal page
}

// ProgressFunc receives running counters after each traversal page
type ProgressFunc func(pagesVisited, fetchFailures, matches int)

// Crawler runs logo crawls. A single Crawler may serve concurrent Crawl calls;
// all per-run state lives in a session.
type Crawler struct {
	fetcher    PageFetcher
	pacer      *fetch.RateLimiter
	delay      time.Duration
	metrics    *metrics.Collector
	log        *logrus.Entry
	disallowed []*regexp.Regexp
	onPage     ProgressFunc
}

// NewCrawler creates a Crawler from opts
func NewCrawler(opts Options) *Crawler {
	log := opts.Logger
	if log == nil {
		log = applog.Discard()
	}
	pacer := opts.Pacer
	if pacer == nil {
		pacer = fetch.NewRateLimiter(0, log)
	}
	delay := opts.Delay
	if delay < 0 {
		delay = 0
	}
	return &Crawler{
		fetcher:    opts.Fetcher,
		pacer:      pacer,
		delay:      delay,
		metrics:    opts.Metrics,
		log:        log,
		disallowed: opts.DisallowedPatterns,
		onPage:     opts.OnPage,
	}
}

// page is a fetched and parsed document together with the URL its links resolve against
type page struct {
	doc  *parse.Document
	base *url.URL
}

// session holds the mutable state of one crawl run
type session struct {
	log      *logrus.Entry
	startKey string
	baseHost string
	maxPages int
	logoURL  string
	pacerKey string

	frontier *queue.Frontier
	visited  storage.VisitedSet
	matches  []models.MatchRecord
	failures int

	startPage *page // Consumed by the first traversal iteration
}

// Crawl finds the logo on req.StartURL and then walks same-domain pages breadth-first,
// recording every page that displays that exact logo URL.
// The returned error is non-nil only for invalid input; aborts are reported on the outcome.
func (c *Crawler) Crawl(ctx context.Context, req models.CrawlRequest) (*models.CrawlOutcome, error) {
	if req.MaxPages <= 0 {
		return nil, fmt.Errorf("%w: max pages must be positive, got %d", utils.ErrInvalidInput, req.MaxPages)
	}
	startURL, err := parse.ValidateStartURL(req.StartURL)
	if err != nil {
		return nil, err
	}
	keyword := logo.NormalizeKeyword(req.Keyword)
	startKey := parse.StripFragment(startURL)

	s := &session{
		log: c.log.WithFields(logrus.Fields{
			"start_url": startKey,
			"keyword":   keyword,
			"max_pages": req.MaxPages,
		}),
		startKey: startKey,
		baseHost: startURL.Hostname(),
		maxPages: req.MaxPages,
		pacerKey: scope.HostOf(startKey),
		visited:  storage.NewMemoryVisitedSet(),
		matches:  []models.MatchRecord{},
	}
	s.log.Info("Starting logo crawl")

	// --- Step 1: Establish the logo on the start page ---
	res := c.fetcher.Fetch(ctx, startKey)
	c.pacer.Mark(s.pacerKey)
	if !res.OK() {
		return c.abort(s, models.AbortReasonStartUnreachable,
			fmt.Errorf("%w: %s: %w", utils.ErrStartUnreachable, startKey, res.Err)), nil
	}
	doc, err := parse.Parse(res.Body)
	if err != nil {
		return c.abort(s, models.AbortReasonStartUnreachable,
			fmt.Errorf("%w: %s: %w", utils.ErrStartUnreachable, startKey, err)), nil
	}
	base := res.BaseURL()
	logoURL, found := logo.Locate(doc, base, keyword)
	if !found {
		return c.abort(s, models.AbortReasonLogoNotFound,
			fmt.Errorf("%w: no image matching '%s' on %s", utils.ErrLogoNotFound, keyword, startKey)), nil
	}
	s.logoURL = logoURL
	s.log = s.log.WithField("logo_url", logoURL)
	s.log.Info("Discovered logo URL")

	// --- Step 2: Breadth-first traversal ---
	s.startPage = &page{doc: doc, base: base}
	s.frontier = queue.NewFrontier(startKey)
	cancelled := c.traverse(ctx, s)

	out := &models.CrawlOutcome{
		Status:        models.RunStatusCompleted,
		LogoURL:       s.logoURL,
		Matches:       s.matches,
		PagesVisited:  s.visited.Count(),
		FetchFailures: s.failures,
		Visited:       s.visited.URLs(),
		Cancelled:     cancelled,
	}
	s.log.WithFields(logrus.Fields{
		"pages_visited":  out.PagesVisited,
		"fetch_failures": out.FetchFailures,
		"matches":        len(out.Matches),
		"cancelled":      cancelled,
	}).Info("Logo crawl completed")
	c.metrics.RunFinished(string(out.Status), string(out.AbortReason))
	return out, nil
}

// abort finishes a run that never reached traversal
func (c *Crawler) abort(s *session, reason models.AbortReason, cause error) *models.CrawlOutcome {
	s.log.WithFields(logrus.Fields{
		"reason":   reason.String(),
		"category": utils.CategorizeError(cause),
	}).Errorf("Crawl aborted: %v", cause)
	c.metrics.RunFinished(string(models.RunStatusAborted), string(reason))
	return &models.CrawlOutcome{
		Status:      models.RunStatusAborted,
		AbortReason: reason,
		Matches:     []models.MatchRecord{},
		Err:         cause,
	}
}

// traverse drains the frontier until it is empty, the page bound is reached, or ctx is done.
// Returns true when the loop stopped because of ctx.
func (c *Crawler) traverse(ctx context.Context, s *session) bool {
	for s.frontier.Len() > 0 && s.visited.Count() < s.maxPages {
		if ctx.Err() != nil {
			s.log.Warnf("Crawl interrupted: %v", ctx.Err())
			return true
		}
		current, _ := s.frontier.Pop()
		if s.visited.IsVisited(current) {
			continue
		}

		var pg *page
		var err error
		if current == s.startKey && s.startPage != nil {
			pg = s.startPage
			s.startPage = nil
			c.metrics.PageAttempted()
		} else {
			if c.delay > 0 {
				c.pacer.Wait(ctx, s.pacerKey, c.delay)
				if ctx.Err() != nil {
					s.log.Warnf("Crawl interrupted: %v", ctx.Err())
					return true
				}
			}
			pg, err = c.fetchPage(ctx, s, current)
		}

		pageLog := s.log.WithField("url", current)
		if err != nil {
			category := utils.CategorizeError(err)
			pageLog.WithField("category", category).Warnf("Failed to fetch page: %v", err)
			s.visited.MarkVisited(current)
			s.failures++
			c.metrics.FetchFailed(category)
			c.reportProgress(s)
			continue
		}
		pageLog.WithField("title", pg.doc.Title()).Debug("Crawling page")

		if logo.PageContains(pg.doc, pg.base, s.logoURL) {
			s.matches = append(s.matches, models.MatchRecord{PageURL: current, LogoURL: s.logoURL})
			c.metrics.MatchFound()
			pageLog.Info("Logo found on page")
		}

		queued := c.enqueueLinks(s, pg)
		if queued > 0 {
			pageLog.WithField("queued", queued).Debug("Queued new links")
		}
		s.visited.MarkVisited(current)
		c.reportProgress(s)
	}
	return false
}

func (c *Crawler) reportProgress(s *session) {
	if c.onPage != nil {
		c.onPage(s.visited.Count(), s.failures, len(s.matches))
	}
}

// fetchPage retrieves and parses one traversal page
func (c *Crawler) fetchPage(ctx context.Context, s *session, pageURL string) (*page, error) {
	c.metrics.PageAttempted()
	res := c.fetcher.Fetch(ctx, pageURL)
	c.pacer.Mark(s.pacerKey)
	if !res.OK() {
		return nil, res.Err
	}

	base := res.BaseURL()
	if base != nil && !scope.URLInScope(base, s.baseHost) {
		return nil, fmt.Errorf("%w: redirected URL '%s' out of scope (requested '%s')", utils.ErrScopeViolation, base, pageURL)
	}

	doc, err := parse.Parse(res.Body)
	if err != nil {
		return nil, err
	}
	return &page{doc: doc, base: base}, nil
}

// enqueueLinks pushes the in-scope, unseen links of pg onto the frontier and returns how many were added
func (c *Crawler) enqueueLinks(s *session, pg *page) int {
	added := 0
	for _, href := range pg.doc.Links() {
		u, err := parse.Resolve(pg.base, href)
		if err != nil || !parse.IsHTTP(u) {
			continue
		}
		if !scope.URLInScope(u, s.baseHost) {
			continue
		}
		if c.isDisallowed(u) {
			continue
		}
		link := parse.StripFragment(u)
		if s.visited.IsVisited(link) {
			continue
		}
		if s.frontier.Push(link) {
			added++
		}
	}
	return added
}

func (c *Crawler) isDisallowed(u *url.URL) bool {
	return utils.MatchesAny(c.disallowed, u.Path)
}

// Locate fetches pageURL and returns the logo URL identified on it, without traversal.
// found is false with a nil error when the page loads but carries no matching image.
func (c *Crawler) Locate(ctx context.Context, pageURL, keyword string) (logoURL string, found bool, err error) {
	u, err := parse.ValidateStartURL(pageURL)
	if err != nil {
		return "", false, err
	}
	keyword = logo.NormalizeKeyword(keyword)
	target := parse.StripFragment(u)

	res := c.fetcher.Fetch(ctx, target)
	c.pacer.Mark(scope.HostOf(target))
	if !res.OK() {
		return "", false, fmt.Errorf("%w: %s: %w", utils.ErrStartUnreachable, target, res.Err)
	}
	doc, err := parse.Parse(res.Body)
	if err != nil {
		return "", false, fmt.Errorf("%w: %s: %w", utils.ErrStartUnreachable, target, err)
	}
	logoURL, found = logo.Locate(doc, res.BaseURL(), keyword)
	c.log.WithFields(logrus.Fields{"url": target, "keyword": keyword, "found": found}).Debug("Logo lookup finished")
	return logoURL, found, nil
}
