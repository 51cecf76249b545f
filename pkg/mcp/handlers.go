package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/logo-crawler/pkg/config"
	"github.com/Sriram-PR/logo-crawler/pkg/crawler"
	"github.com/Sriram-PR/logo-crawler/pkg/logo"
	"github.com/Sriram-PR/logo-crawler/pkg/models"
	"github.com/Sriram-PR/logo-crawler/pkg/parse"
	"github.com/Sriram-PR/logo-crawler/pkg/utils"
)

// crawlPlan is everything a background job needs to start a crawl
type crawlPlan struct {
	siteKey    string // Empty for ad-hoc URL crawls
	request    models.CrawlRequest
	userAgent  string
	delay      time.Duration
	resolved   *config.ResolvedSiteConfig // nil for ad-hoc URL crawls
	reportPath string
}

// handleListSites handles the list_sites tool
func (s *Server) handleListSites(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	appCfg := s.cfg.AppConfig
	keys := appCfg.SiteKeys()
	sites := make([]map[string]interface{}, 0, len(keys))

	for _, key := range keys {
		siteCfg := appCfg.Sites[key]
		siteInfo := map[string]interface{}{
			"key":       key,
			"start_url": siteCfg.StartURL,
			"max_pages": config.GetEffectiveMaxPages(siteCfg, *appCfg),
			"keyword":   config.GetEffectiveKeyword(siteCfg, *appCfg),
			"delay":     config.GetEffectiveDelay(siteCfg, *appCfg).String(),
		}

		// Last run info from the site's report, when one exists
		if last := s.readLastReport(key, siteCfg); last != nil {
			siteInfo["last_crawled"] = last.FinishedAt.Format(time.RFC3339)
			siteInfo["last_status"] = last.Status.String()
			siteInfo["last_match_count"] = len(last.Matches)
		}

		if s.jobManager.IsRunning(key) {
			siteInfo["status"] = "running"
		}

		sites = append(sites, siteInfo)
	}

	jobs := make([]map[string]interface{}, 0)
	for _, job := range s.jobManager.ListJobs() {
		jobs = append(jobs, map[string]interface{}{
			"job_id": job.ID,
			"target": job.Target,
			"status": string(job.Status),
		})
	}

	result := map[string]interface{}{
		"sites":       sites,
		"jobs":        jobs,
		"config_path": s.cfg.ConfigPath,
		"total_sites": len(sites),
	}

	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleLocateLogo handles the locate_logo tool
func (s *Server) handleLocateLogo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	urlStr := request.GetString("url", "")
	if urlStr == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}
	keyword := logo.NormalizeKeyword(request.GetString("keyword", s.cfg.AppConfig.DefaultKeyword))

	startTime := time.Now()
	c := crawler.NewCrawler(crawler.Options{
		Fetcher: s.fetcher,
		Pacer:   s.rateLimiter,
		Logger:  s.log.WithField("tool", "locate_logo"),
	})
	logoURL, found, err := c.Locate(ctx, urlStr, keyword)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", utils.CategorizeError(err), err)), nil
	}

	result := map[string]interface{}{
		"url":           urlStr,
		"keyword":       keyword,
		"found":         found,
		"fetch_time_ms": time.Since(startTime).Milliseconds(),
	}
	if found {
		result["logo_url"] = logoURL
	}

	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleCrawlSite handles the crawl_site tool
func (s *Server) handleCrawlSite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	siteKey := request.GetString("site_key", "")
	urlStr := request.GetString("url", "")
	maxPages := request.GetInt("max_pages", 0)
	keyword := request.GetString("keyword", "")
	if _, given := request.GetArguments()["max_pages"]; given && maxPages <= 0 {
		return mcp.NewToolResultError(fmt.Sprintf("%v: max_pages must be positive, got %d", utils.ErrInvalidInput, maxPages)), nil
	}

	plan, err := s.planCrawl(siteKey, urlStr, maxPages, keyword)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	target := plan.siteKey
	if target == "" {
		target = plan.request.StartURL
	}

	job, created := s.jobManager.CreateJob(target, plan.siteKey, plan.request.StartURL)
	if !created {
		result := map[string]interface{}{
			"status":  "already_running",
			"message": "A crawl is already in progress for this target",
			"job_id":  job.ID,
			"target":  target,
		}
		return mcp.NewToolResultText(formatJSON(result)), nil
	}

	// Start crawl in background
	s.jobsWG.Add(1)
	go s.runCrawlJob(job.ID, plan)

	result := map[string]interface{}{
		"status":    "started",
		"message":   "Crawl started successfully",
		"job_id":    job.ID,
		"target":    target,
		"start_url": plan.request.StartURL,
		"max_pages": plan.request.MaxPages,
		"keyword":   plan.request.Keyword,
	}

	return mcp.NewToolResultText(formatJSON(result)), nil
}

// planCrawl validates crawl_site arguments and resolves them against the config
func (s *Server) planCrawl(siteKey, urlStr string, maxPages int, keyword string) (*crawlPlan, error) {
	appCfg := s.cfg.AppConfig
	switch {
	case siteKey != "" && urlStr != "":
		return nil, fmt.Errorf("site_key and url are mutually exclusive")
	case siteKey == "" && urlStr == "":
		return nil, fmt.Errorf("one of site_key or url is required")
	}
	if maxPages < 0 {
		return nil, fmt.Errorf("%w: max_pages must be positive, got %d", utils.ErrInvalidInput, maxPages)
	}

	plan := &crawlPlan{}
	if siteKey != "" {
		siteCfg, exists := appCfg.Sites[siteKey]
		if !exists {
			return nil, fmt.Errorf("site '%s' not found. Available sites: %v", siteKey, appCfg.SiteKeys())
		}
		resolved, err := config.NewResolvedSiteConfig(siteKey, siteCfg, *appCfg)
		if err != nil {
			return nil, err
		}
		plan.siteKey = siteKey
		plan.resolved = resolved
		plan.request = models.CrawlRequest{StartURL: resolved.StartURL, MaxPages: resolved.MaxPages, Keyword: resolved.Keyword}
		plan.userAgent = resolved.UserAgent
		plan.delay = resolved.Delay
		if appCfg.OutputBaseDir != "" {
			plan.reportPath = filepath.Join(appCfg.OutputBaseDir, resolved.ReportFilename)
		}
	} else {
		plan.request = models.CrawlRequest{
			StartURL: urlStr,
			MaxPages: config.GetEffectiveMaxPages(config.SiteConfig{}, *appCfg),
			Keyword:  config.GetEffectiveKeyword(config.SiteConfig{}, *appCfg),
		}
		plan.userAgent = appCfg.DefaultUserAgent
		plan.delay = appCfg.DefaultDelayPerHost
	}

	if maxPages > 0 {
		plan.request.MaxPages = maxPages
	}
	if keyword != "" {
		plan.request.Keyword = keyword
	}
	plan.request.Keyword = logo.NormalizeKeyword(plan.request.Keyword)

	if _, err := parse.ValidateStartURL(plan.request.StartURL); err != nil {
		return nil, err
	}
	return plan, nil
}

// handleGetJobStatus handles the get_job_status tool
func (s *Server) handleGetJobStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}

	job := s.jobManager.GetJob(jobID)
	if job == nil {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' not found", jobID)), nil
	}

	result := map[string]interface{}{
		"job_id":         job.ID,
		"target":         job.Target,
		"start_url":      job.StartURL,
		"status":         job.Status,
		"started_at":     job.StartedAt.Format(time.RFC3339),
		"pages_visited":  job.PagesVisited,
		"fetch_failures": job.FetchFailures,
		"match_count":    job.MatchCount,
		"matches":        job.Matches,
	}
	if job.SiteKey != "" {
		result["site_key"] = job.SiteKey
	}
	if job.LogoURL != "" {
		result["logo_url"] = job.LogoURL
	}
	if job.AbortReason != models.AbortReasonNone {
		result["abort_reason"] = job.AbortReason
	}

	if !job.CompletedAt.IsZero() {
		result["completed_at"] = job.CompletedAt.Format(time.RFC3339)
		result["duration_seconds"] = job.CompletedAt.Sub(job.StartedAt).Seconds()
	}

	if job.ErrorMessage != "" {
		result["error_message"] = job.ErrorMessage
	}

	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleCancelJob handles the cancel_job tool
func (s *Server) handleCancelJob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}
	if s.jobManager.GetJob(jobID) == nil {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' not found", jobID)), nil
	}

	cancelled := s.jobManager.CancelJob(jobID)
	result := map[string]interface{}{
		"job_id":    jobID,
		"cancelled": cancelled,
		"status":    s.jobManager.GetJob(jobID).Status,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// runCrawlJob runs a crawl job in the background
func (s *Server) runCrawlJob(jobID string, plan *crawlPlan) {
	defer s.jobsWG.Done()
	s.jobManager.UpdateStatus(jobID, JobStatusRunning, "")

	jobCtx := s.jobManager.GetContext(jobID)
	jobLog := s.log.WithFields(logrus.Fields{"job_id": jobID, "site_key": plan.siteKey})

	opts := crawler.Options{
		Fetcher: s.fetcher.WithUserAgent(plan.userAgent),
		Pacer:   s.rateLimiter,
		Delay:   plan.delay,
		Metrics: s.cfg.Metrics,
		Logger:  jobLog,
		OnPage: func(pagesVisited, fetchFailures, matches int) {
			s.jobManager.UpdateProgress(jobID, pagesVisited, fetchFailures, matches)
		},
	}
	if plan.resolved != nil {
		opts.DisallowedPatterns = plan.resolved.DisallowedPatterns
	}

	startedAt := time.Now()
	out, err := crawler.NewCrawler(opts).Crawl(jobCtx, plan.request)
	if err == nil && plan.reportPath != "" {
		report := models.NewCrawlReport(jobID, plan.siteKey, plan.request, startedAt, time.Now(), out)
		if werr := crawler.WriteReport(plan.reportPath, s.cfg.AppConfig.ReportFormat, report); werr != nil {
			jobLog.Warnf("Failed to write report: %v", werr)
		}
	}
	if err != nil && !errors.Is(err, utils.ErrInvalidInput) {
		jobLog.Errorf("Crawl job failed: %v", err)
	}

	s.jobManager.Finish(jobID, out, err)
}

// readLastReport loads the site's most recent report, or nil when none is readable
func (s *Server) readLastReport(siteKey string, siteCfg config.SiteConfig) *models.CrawlReport {
	if s.cfg.AppConfig.OutputBaseDir == "" {
		return nil
	}
	path := filepath.Join(s.cfg.AppConfig.OutputBaseDir, config.GetEffectiveReportFilename(siteKey, siteCfg, *s.cfg.AppConfig))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var report models.CrawlReport
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &report)
	} else {
		err = yaml.Unmarshal(data, &report)
	}
	if err != nil {
		return nil
	}
	return &report
}

// formatJSON formats data as an indented JSON string
func formatJSON(data map[string]interface{}) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(b)
}
