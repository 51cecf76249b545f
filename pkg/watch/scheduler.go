package watch

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/logo-crawler/pkg/config"
	"github.com/Sriram-PR/logo-crawler/pkg/metrics"
	"github.com/Sriram-PR/logo-crawler/pkg/orchestrate"
)

// RunFunc crawls the given sites and returns one result per site
type RunFunc func(ctx context.Context, siteKeys []string) []orchestrate.SiteResult

// ChangeFunc receives every non-empty coverage change
type ChangeFunc func(Change)

// Options tunes a Scheduler
type Options struct {
	Metrics  *metrics.Collector // Optional; passed to the default runner
	Runner   RunFunc            // Optional; defaults to an orchestrator over appCfg
	OnChange ChangeFunc         // Optional
}

// Scheduler re-crawls sites periodically and reports how their logo coverage changes
type Scheduler struct {
	appCfg   *config.AppConfig
	siteKeys []string
	interval time.Duration
	log      *logrus.Entry
	tracker  *StateTracker
	runner   RunFunc
	onChange ChangeFunc

	inFlight map[string]bool
	mu       sync.Mutex
	wg       sync.WaitGroup
}

// NewScheduler creates a new watch scheduler
func NewScheduler(appCfg *config.AppConfig, siteKeys []string, interval time.Duration, log *logrus.Entry, opts Options) *Scheduler {
	s := &Scheduler{
		appCfg:   appCfg,
		siteKeys: siteKeys,
		interval: interval,
		log:      log,
		tracker:  NewStateTracker(),
		runner:   opts.Runner,
		onChange: opts.OnChange,
		inFlight: make(map[string]bool),
	}
	if s.runner == nil {
		s.runner = func(ctx context.Context, keys []string) []orchestrate.SiteResult {
			orch := orchestrate.NewOrchestrator(appCfg, keys, log, orchestrate.Options{
				WriteReports: appCfg.OutputBaseDir != "",
				Metrics:      opts.Metrics,
			})
			return orch.Run(ctx)
		}
	}
	return s
}

// Run crawls every site immediately, then again whenever its interval has elapsed.
// It blocks until ctx is cancelled and in-flight crawls have finished.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %v", s.interval)
	}
	s.log.Infof("Starting watch mode for %d sites with interval %s", len(s.siteKeys), FormatInterval(s.interval))

	s.runDueSites(ctx)

	ticker := time.NewTicker(s.calculateTickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Watch scheduler shutting down...")
			s.wg.Wait()
			return nil
		case <-ticker.C:
			s.runDueSites(ctx)
		}
	}
}

// runDueSites starts a crawl for every site that is due and not already running
func (s *Scheduler) runDueSites(ctx context.Context) {
	dueSites := s.claimDueSites(time.Now())
	if len(dueSites) == 0 {
		return
	}

	s.log.Infof("Running crawl for %d due sites: %v", len(dueSites), dueSites)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		results := s.runner(ctx, dueSites)
		finished := time.Now()
		for _, result := range results {
			s.record(result, finished)
		}

		s.mu.Lock()
		for _, key := range dueSites {
			delete(s.inFlight, key)
		}
		s.mu.Unlock()

		s.logNextRun()
	}()
}

// claimDueSites returns due sites and marks them in flight
func (s *Scheduler) claimDueSites(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []string
	for _, siteKey := range s.siteKeys {
		if s.inFlight[siteKey] {
			continue
		}
		if s.tracker.ShouldRun(siteKey, s.interval, now) {
			s.inFlight[siteKey] = true
			due = append(due, siteKey)
		}
	}
	return due
}

// record stores one result and announces coverage changes
func (s *Scheduler) record(result orchestrate.SiteResult, at time.Time) {
	siteLog := s.log.WithField("site_key", result.SiteKey)
	change, ok := s.tracker.Record(result, at)
	if !ok {
		state, _ := s.tracker.GetSiteState(result.SiteKey)
		siteLog.Warnf("Run did not complete: %s", state.ErrorMessage)
		return
	}
	if change.Empty() {
		siteLog.Debug("Logo coverage unchanged")
		return
	}

	siteLog.WithFields(logrus.Fields{
		"first_run":    change.FirstRun,
		"logo_changed": change.LogoChanged(),
		"added":        len(change.Added),
		"removed":      len(change.Removed),
	}).Info("Logo coverage changed")
	if s.onChange != nil {
		s.onChange(change)
	}
}

// calculateTickInterval returns how often to check for due sites
func (s *Scheduler) calculateTickInterval() time.Duration {
	// Every tenth of the interval, between one second and ten minutes
	checkInterval := s.interval / 10
	if checkInterval < time.Second {
		checkInterval = time.Second
	}
	if checkInterval > 10*time.Minute {
		checkInterval = 10 * time.Minute
	}
	return checkInterval
}

// logNextRun logs when the next run will occur
func (s *Scheduler) logNextRun() {
	now := time.Now()
	statuses := s.GetStatus(now)
	if len(statuses) == 0 {
		return
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].NextRunTime.Before(statuses[j].NextRunTime) })

	next := statuses[0]
	until := next.NextRunTime.Sub(now)
	if until < 0 {
		until = 0
	}
	s.log.Infof("Next crawl: %s in %v (at %s)", next.SiteKey, until.Round(time.Second), next.NextRunTime.Format("15:04:05"))
}

// SiteStatus contains the status of a watched site
type SiteStatus struct {
	SiteKey        string
	LastRunTime    time.Time
	LastRunSuccess bool
	PagesVisited   int
	MatchCount     int
	LogoURL        string
	ErrorMessage   string
	NextRunTime    time.Time
	NeverRun       bool
}

// GetStatus returns the current status of all watched sites, in site key order
func (s *Scheduler) GetStatus(now time.Time) []SiteStatus {
	statuses := make([]SiteStatus, 0, len(s.siteKeys))
	for _, siteKey := range s.siteKeys {
		state, exists := s.tracker.GetSiteState(siteKey)
		statuses = append(statuses, SiteStatus{
			SiteKey:        siteKey,
			LastRunTime:    state.LastRunTime,
			LastRunSuccess: state.LastRunSuccess,
			PagesVisited:   state.PagesVisited,
			MatchCount:     state.MatchCount,
			LogoURL:        state.LogoURL,
			ErrorMessage:   state.ErrorMessage,
			NextRunTime:    s.tracker.GetNextRunTime(siteKey, s.interval, now),
			NeverRun:       !exists,
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].SiteKey < statuses[j].SiteKey })
	return statuses
}

// FormatInterval formats a duration for display, using days above 24h
func FormatInterval(d time.Duration) string {
	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	mins := int(d/time.Minute) % 60

	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", mins)
	case days == 0 && mins > 0:
		return fmt.Sprintf("%dh%dm", hours, mins)
	case days == 0:
		return fmt.Sprintf("%dh", hours)
	case hours > 0:
		return fmt.Sprintf("%dd%dh", days, hours)
	default:
		return fmt.Sprintf("%dd", days)
	}
}

// ParseInterval parses a Go duration, optionally prefixed with a whole number of days ("7d", "1d12h")
func ParseInterval(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	dayPart, rest, found := strings.Cut(s, "d")
	if !found {
		return 0, fmt.Errorf("invalid interval format: %q (examples: 30m, 1h, 24h, 7d)", s)
	}
	days, err := strconv.Atoi(dayPart)
	if err != nil || days < 0 {
		return 0, fmt.Errorf("invalid interval format: %q (examples: 30m, 1h, 24h, 7d)", s)
	}
	d := time.Duration(days) * 24 * time.Hour
	if rest != "" {
		extra, err := time.ParseDuration(rest)
		if err != nil {
			return 0, fmt.Errorf("invalid interval format: %q", s)
		}
		d += extra
	}
	return d, nil
}
