package models

import "time"

// CrawlRequest is the input of a single crawl run
type CrawlRequest struct {
	StartURL string
	MaxPages int    // Bound on distinct URLs whose fetch is attempted
	Keyword  string // Case-insensitive logo keyword; empty means "logo"
}

// MatchRecord denotes a page on which the target logo was found
type MatchRecord struct {
	PageURL string `yaml:"page_url" json:"page_url"`
	LogoURL string `yaml:"logo_url" json:"logo_url"`
}

// CrawlOutcome is the result of one crawl run, either completed or aborted
type CrawlOutcome struct {
	Status        RunStatus     `yaml:"status" json:"status"`
	AbortReason   AbortReason   `yaml:"abort_reason,omitempty" json:"abort_reason,omitempty"`
	LogoURL       string        `yaml:"logo_url,omitempty" json:"logo_url,omitempty"` // Established once from the start page
	Matches       []MatchRecord `yaml:"matches" json:"matches"`
	PagesVisited  int           `yaml:"pages_visited" json:"pages_visited"`
	FetchFailures int           `yaml:"fetch_failures" json:"fetch_failures"`
	Visited       []string      `yaml:"visited,omitempty" json:"visited,omitempty"` // Attempted URLs in traversal order
	Cancelled     bool          `yaml:"cancelled,omitempty" json:"cancelled,omitempty"`
	Err           error         `yaml:"-" json:"-"` // Cause of an abort
}

// Aborted reports whether the run stopped before traversal
func (o *CrawlOutcome) Aborted() bool {
	return o != nil && o.Status == RunStatusAborted
}

// CrawlReport is what gets written to disk after a run
type CrawlReport struct {
	RunID       string        `yaml:"run_id" json:"run_id"`
	SiteKey     string        `yaml:"site_key,omitempty" json:"site_key,omitempty"`
	StartURL    string        `yaml:"start_url" json:"start_url"`
	Keyword     string        `yaml:"keyword" json:"keyword"`
	MaxPages    int           `yaml:"max_pages" json:"max_pages"`
	StartedAt   time.Time     `yaml:"started_at" json:"started_at"`
	FinishedAt  time.Time     `yaml:"finished_at" json:"finished_at"`
	Status      RunStatus     `yaml:"status" json:"status"`
	AbortReason AbortReason   `yaml:"abort_reason,omitempty" json:"abort_reason,omitempty"`
	Error       string        `yaml:"error,omitempty" json:"error,omitempty"`
	LogoURL     string        `yaml:"logo_url,omitempty" json:"logo_url,omitempty"`
	Pages       int           `yaml:"pages_visited" json:"pages_visited"`
	Failures    int           `yaml:"fetch_failures" json:"fetch_failures"`
	Cancelled   bool          `yaml:"cancelled,omitempty" json:"cancelled,omitempty"`
	Matches     []MatchRecord `yaml:"matches" json:"matches"`
}

// NewCrawlReport builds a report from a finished outcome
func NewCrawlReport(runID, siteKey string, req CrawlRequest, started, finished time.Time, out *CrawlOutcome) CrawlReport {
	rep := CrawlReport{
		RunID:      runID,
		SiteKey:    siteKey,
		StartURL:   req.StartURL,
		Keyword:    req.Keyword,
		MaxPages:   req.MaxPages,
		StartedAt:  started,
		FinishedAt: finished,
		Matches:    []MatchRecord{},
	}
	if out == nil {
		return rep
	}
	rep.Status = out.Status
	rep.AbortReason = out.AbortReason
	rep.LogoURL = out.LogoURL
	rep.Pages = out.PagesVisited
	rep.Failures = out.FetchFailures
	rep.Cancelled = out.Cancelled
	if out.Err != nil {
		rep.Error = out.Err.Error()
	}
	if len(out.Matches) > 0 {
		rep.Matches = append(rep.Matches, out.Matches...)
	}
	return rep
}
