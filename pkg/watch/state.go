package watch

import (
	"sort"
	"sync"
	"time"

	"github.com/Sriram-PR/logo-crawler/pkg/orchestrate"
)

// SiteState contains the last run information for a site.
// State lives only as long as the process; nothing is written to disk.
type SiteState struct {
	LastRunTime    time.Time
	LastRunSuccess bool
	PagesVisited   int
	MatchCount     int
	LogoURL        string
	ErrorMessage   string

	pages map[string]struct{} // Pages with the logo at the last successful run
}

// Change describes how a site's logo coverage moved between two successful runs
type Change struct {
	SiteKey      string
	FirstRun     bool
	PreviousLogo string
	CurrentLogo  string
	Added        []string // Pages that now show the logo; every match on a first run
	Removed      []string // Pages that no longer show it
}

// LogoChanged reports whether the start page now identifies a different logo URL
func (c Change) LogoChanged() bool {
	return !c.FirstRun && c.PreviousLogo != c.CurrentLogo
}

// Empty reports whether nothing worth announcing happened
func (c Change) Empty() bool {
	return !c.FirstRun && !c.LogoChanged() && len(c.Added) == 0 && len(c.Removed) == 0
}

// StateTracker remembers per-site run results and diffs consecutive match sets
type StateTracker struct {
	sites map[string]SiteState
	mu    sync.RWMutex
}

// NewStateTracker creates an empty tracker
func NewStateTracker() *StateTracker {
	return &StateTracker{sites: make(map[string]SiteState)}
}

// Record stores the result of one site run. The returned Change is meaningful only when ok is true,
// which requires a completed, uncancelled crawl: partial or failed runs never produce a diff.
func (m *StateTracker) Record(result orchestrate.SiteResult, at time.Time) (change Change, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, seen := m.sites[result.SiteKey]
	next := SiteState{
		LastRunTime: at,
		pages:       prev.pages,
		LogoURL:     prev.LogoURL,
		MatchCount:  prev.MatchCount,
	}

	out := result.Outcome
	switch {
	case result.Error != nil:
		next.ErrorMessage = result.Error.Error()
	case out == nil:
		next.ErrorMessage = "crawl did not run"
	case out.Aborted():
		next.ErrorMessage = string(out.AbortReason)
		if out.Err != nil {
			next.ErrorMessage = out.Err.Error()
		}
		next.PagesVisited = out.PagesVisited
	case out.Cancelled:
		next.ErrorMessage = "cancelled"
		next.PagesVisited = out.PagesVisited
	default:
		next.LastRunSuccess = true
		next.PagesVisited = out.PagesVisited
		next.MatchCount = len(out.Matches)
		next.LogoURL = out.LogoURL
		next.pages = make(map[string]struct{}, len(out.Matches))
		for _, match := range out.Matches {
			next.pages[match.PageURL] = struct{}{}
		}

		change = Change{
			SiteKey:      result.SiteKey,
			FirstRun:     !seen || prev.pages == nil,
			PreviousLogo: prev.LogoURL,
			CurrentLogo:  out.LogoURL,
		}
		change.Added = difference(next.pages, prev.pages)
		change.Removed = difference(prev.pages, next.pages)
		ok = true
	}

	m.sites[result.SiteKey] = next
	return change, ok
}

// difference returns the sorted keys of a that are not in b
func difference(a, b map[string]struct{}) []string {
	var diff []string
	for k := range a {
		if _, found := b[k]; !found {
			diff = append(diff, k)
		}
	}
	sort.Strings(diff)
	return diff
}

// GetSiteState returns the state for a specific site
func (m *StateTracker) GetSiteState(siteKey string) (SiteState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sites[siteKey]
	return state, ok
}

// ShouldRun checks if a site should run based on the interval
func (m *StateTracker) ShouldRun(siteKey string, interval time.Duration, now time.Time) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sites[siteKey]
	if !ok {
		return true
	}
	return now.Sub(state.LastRunTime) >= interval
}

// GetNextRunTime returns when the site should next run
func (m *StateTracker) GetNextRunTime(siteKey string, interval time.Duration, now time.Time) time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sites[siteKey]
	if !ok {
		return now
	}
	return state.LastRunTime.Add(interval)
}
