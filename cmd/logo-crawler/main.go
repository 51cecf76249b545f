package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/logo-crawler/pkg/config"
	"github.com/Sriram-PR/logo-crawler/pkg/crawler"
	"github.com/Sriram-PR/logo-crawler/pkg/fetch"
	applog "github.com/Sriram-PR/logo-crawler/pkg/log"
	"github.com/Sriram-PR/logo-crawler/pkg/metrics"
	"github.com/Sriram-PR/logo-crawler/pkg/models"
	"github.com/Sriram-PR/logo-crawler/pkg/orchestrate"
	"github.com/Sriram-PR/logo-crawler/pkg/storage"
	"github.com/Sriram-PR/logo-crawler/pkg/utils"
	"github.com/Sriram-PR/logo-crawler/pkg/watch"
)

const version = "1.0.0"

// Exit codes
const (
	exitOK      = 0
	exitInvalid = 1
	exitAborted = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitInvalid)
	}

	switch os.Args[1] {
	case "crawl":
		runCrawl(os.Args[2:])
	case "locate":
		runLocate(os.Args[2:])
	case "watch":
		runWatch(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "list-sites":
		runListSites(os.Args[2:])
	case "mcp-server":
		runMcpServer(os.Args[2:])
	case "version":
		fmt.Printf("logo-crawler %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(exitInvalid)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `logo-crawler - Find every page of a site that shows the site's logo

Usage:
  logo-crawler <command> [options]

Commands:
  crawl       Crawl a site from a start URL (or configured sites)
  locate      Identify the logo on a single page
  watch       Re-crawl configured sites on a schedule and report coverage changes
  validate    Validate configuration file
  list-sites  List available site keys
  mcp-server  Start MCP server for AI tool integration
  version     Show version info

Run 'logo-crawler <command> -h' for command-specific help.`)
}

// loadConfig loads and parses the config file
func loadConfig(path string) (*config.AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg config.AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// loadOrDefaultConfig loads path, or starts from an empty config when path is empty,
// then applies defaults and logs warnings.
func loadOrDefaultConfig(path string, log *logrus.Logger) (*config.AppConfig, error) {
	appCfg := &config.AppConfig{}
	if path != "" {
		log.Infof("Loading configuration from %s", path)
		loaded, err := loadConfig(path)
		if err != nil {
			return nil, err
		}
		appCfg = loaded
	}

	warnings, err := appCfg.Validate()
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		log.Warn(w)
	}
	return appCfg, nil
}

// crawlOptions carries the parsed crawl flags. Pointer fields are nil when the flag was not given.
type crawlOptions struct {
	URL         string
	ConfigPath  string
	SiteKey     string
	SiteKeys    []string
	AllSites    bool
	MaxPages    *int
	Keyword     string
	Delay       *time.Duration
	Timeout     time.Duration
	Output      string
	Format      string
	LogLevel    string
	MetricsAddr string
	VisitedLog  bool
}

// runCrawl handles the crawl subcommand
func runCrawl(args []string) {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	startURL := fs.String("url", "", "Start URL (absolute http/https)")
	maxPages := fs.Int("max-pages", config.DefaultMaxPages, "Maximum number of pages to attempt")
	keyword := fs.String("keyword", "", "Case-insensitive logo keyword (default \"logo\")")
	delay := fs.Duration("delay", config.DefaultDelayPerHost, "Minimum delay between requests (0 disables)")
	timeout := fs.Duration("timeout", 0, "Per-request timeout (default 10s)")
	configFile := fs.String("config", "", "Path to config file (optional for -url crawls)")
	siteKey := fs.String("site", "", "Site key from config (single site)")
	sites := fs.String("sites", "", "Comma-separated site keys for parallel crawling")
	allSites := fs.Bool("all-sites", false, "Crawl all configured sites in parallel")
	output := fs.String("output", "", "Write a crawl report to this path")
	format := fs.String("format", "", "Report format (yaml, json)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :2112")
	visitedLog := fs.Bool("visited-log", false, "Write the attempted URLs next to the report")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: logo-crawler crawl [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  logo-crawler crawl -url https://example.com -max-pages 50\n")
		fmt.Fprintf(os.Stderr, "  logo-crawler crawl -config config.yaml -site example_docs\n")
		fmt.Fprintf(os.Stderr, "  logo-crawler crawl -config config.yaml --all-sites\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(exitInvalid)
	}

	opts := crawlOptions{
		URL:         *startURL,
		ConfigPath:  *configFile,
		SiteKey:     *siteKey,
		SiteKeys:    splitSiteKeys(*sites),
		AllSites:    *allSites,
		Keyword:     *keyword,
		Timeout:     *timeout,
		Output:      *output,
		Format:      *format,
		LogLevel:    *logLevel,
		MetricsAddr: *metricsAddr,
		VisitedLog:  *visitedLog,
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "max-pages":
			opts.MaxPages = maxPages
		case "delay":
			opts.Delay = delay
		}
	})

	log := applog.New(opts.LogLevel, os.Stderr)
	ctx, stop := withSignalCancel(context.Background(), log)
	defer stop()

	os.Exit(doCrawl(ctx, opts, os.Stdout, os.Stderr))
}

// splitSiteKeys parses a comma-separated key list
func splitSiteKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// withSignalCancel cancels the returned context on SIGINT/SIGTERM; a second signal forces exit
func withSignalCancel(parent context.Context, log *logrus.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	stopped := make(chan struct{})

	go func() {
		select {
		case sig := <-sigs:
			log.Warnf("Received %v, stopping after the current page (signal again to force exit)", sig)
			cancel()
		case <-stopped:
			return
		}

		grace := time.NewTimer(30 * time.Second)
		defer grace.Stop()
		select {
		case sig := <-sigs:
			log.Warnf("Received %v again, exiting now", sig)
		case <-grace.C:
			log.Warn("Shutdown is taking longer than 30s, exiting now")
		case <-stopped:
			return
		}
		os.Exit(exitInvalid)
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(sigs)
			close(stopped)
			cancel()
		})
	}
}

// doCrawl runs one ad-hoc or configured crawl, or a parallel multi-site crawl.
// Returns exit code (0 = completed, 1 = invalid input or config, 2 = aborted).
func doCrawl(ctx context.Context, opts crawlOptions, stdout, stderr io.Writer) int {
	log := applog.New(opts.LogLevel, stderr)

	multi := opts.AllSites || len(opts.SiteKeys) > 0
	if opts.URL == "" && opts.SiteKey == "" && !multi {
		fmt.Fprintln(stderr, "Error: one of -url, -site, -sites, or --all-sites is required")
		return exitInvalid
	}
	if (opts.SiteKey != "" || multi) && opts.ConfigPath == "" {
		fmt.Fprintln(stderr, "Error: -config is required with -site, -sites, or --all-sites")
		return exitInvalid
	}
	if multi && opts.URL != "" {
		fmt.Fprintln(stderr, "Error: -url cannot be combined with -sites or --all-sites")
		return exitInvalid
	}
	if opts.MaxPages != nil && *opts.MaxPages <= 0 {
		fmt.Fprintf(stderr, "Error: -max-pages: max pages must be positive, got %d\n", *opts.MaxPages)
		return exitInvalid
	}
	if opts.Delay != nil && *opts.Delay < 0 {
		fmt.Fprintf(stderr, "Error: -delay cannot be negative, got %v\n", *opts.Delay)
		return exitInvalid
	}
	if opts.Format != "" && opts.Format != config.ReportFormatYAML && opts.Format != config.ReportFormatJSON {
		fmt.Fprintf(stderr, "Error: unsupported -format '%s' (yaml, json)\n", opts.Format)
		return exitInvalid
	}

	appCfg, err := loadOrDefaultConfig(opts.ConfigPath, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return exitInvalid
	}

	var siteKeys []string
	switch {
	case opts.AllSites:
		siteKeys = orchestrate.GetAllSiteKeys(appCfg)
		log.Infof("All sites mode: found %d sites", len(siteKeys))
	case len(opts.SiteKeys) > 0:
		siteKeys = opts.SiteKeys
	case opts.SiteKey != "":
		siteKeys = []string{opts.SiteKey}
	default:
		// Ad-hoc crawl; the start URL is checked by the crawler itself
		appCfg.Sites = map[string]config.SiteConfig{"": {StartURL: opts.URL}}
		siteKeys = []string{""}
	}

	if opts.SiteKey != "" || multi {
		if err := orchestrate.ValidateSiteKeys(appCfg, siteKeys); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitInvalid
		}
		if opts.URL != "" {
			siteCfg := appCfg.Sites[opts.SiteKey]
			siteCfg.StartURL = opts.URL
			appCfg.Sites[opts.SiteKey] = siteCfg
		}
		if err := validateSiteConfigs(appCfg, siteKeys, log); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitInvalid
		}
	}

	applyOverrides(appCfg, siteKeys, opts)
	logAppConfig(appCfg, log)

	// Optional metrics endpoint
	var collector *metrics.Collector
	if opts.MetricsAddr != "" {
		collector = metrics.NewCollector()
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		defer stopMetrics()
		go func() {
			if err := collector.Serve(metricsCtx, opts.MetricsAddr, applog.Component(log, "metrics")); err != nil {
				log.Errorf("Metrics server error: %v", err)
			}
		}()
	}

	if multi {
		return executeParallelCrawl(ctx, appCfg, siteKeys, opts, collector, log, stdout)
	}
	return executeCrawl(ctx, appCfg, siteKeys[0], opts, collector, log, stdout, stderr)
}

// validateSiteConfigs validates the configuration for each site key and logs warnings.
func validateSiteConfigs(appCfg *config.AppConfig, siteKeys []string, log *logrus.Logger) error {
	for _, key := range siteKeys {
		siteCfg := appCfg.Sites[key]
		siteWarnings, err := siteCfg.Validate()
		if err != nil {
			return fmt.Errorf("site '%s' configuration error: %w", key, err)
		}
		for _, w := range siteWarnings {
			log.Warnf("[%s] %s", key, w)
		}
		appCfg.Sites[key] = siteCfg
	}
	return nil
}

// applyOverrides lets command-line flags win over config values for the selected sites
func applyOverrides(appCfg *config.AppConfig, siteKeys []string, opts crawlOptions) {
	if opts.Timeout > 0 {
		appCfg.RequestTimeout = opts.Timeout
	}
	if opts.Format != "" {
		appCfg.ReportFormat = opts.Format
	}
	if opts.Delay != nil {
		appCfg.DefaultDelayPerHost = *opts.Delay
	}
	for _, key := range siteKeys {
		siteCfg := appCfg.Sites[key]
		if opts.MaxPages != nil {
			siteCfg.MaxPages = *opts.MaxPages
		}
		if opts.Keyword != "" {
			siteCfg.Keyword = opts.Keyword
		}
		if opts.Delay != nil {
			siteCfg.DelayPerHost = *opts.Delay
		}
		appCfg.Sites[key] = siteCfg
	}
}

// executeCrawl runs a single site crawl and prints its matches
func executeCrawl(ctx context.Context, appCfg *config.AppConfig, siteKey string, opts crawlOptions,
	collector *metrics.Collector, log *logrus.Logger, stdout, stderr io.Writer) int {

	siteCfg := appCfg.Sites[siteKey]
	resolved, err := config.NewResolvedSiteConfig(siteKey, siteCfg, *appCfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitInvalid
	}
	// An explicit -max-pages is taken as given; doCrawl has already rejected a non-positive one
	if opts.MaxPages != nil {
		resolved.MaxPages = *opts.MaxPages
	}

	if appCfg.GlobalCrawlTimeout > 0 {
		log.Infof("Setting global crawl timeout: %v", appCfg.GlobalCrawlTimeout)
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, appCfg.GlobalCrawlTimeout)
		defer cancel()
	}

	runID := uuid.NewString()
	logEntry := log.WithFields(logrus.Fields{"component": "crawl", "run_id": runID})
	if siteKey != "" {
		logEntry = logEntry.WithField("site_key", siteKey)
	}

	httpClient := fetch.NewClient(appCfg.HTTPClientSettings, logEntry)
	fetcher := fetch.NewFetcher(httpClient, appCfg, logEntry).WithUserAgent(resolved.UserAgent)
	rateLimiter := fetch.NewRateLimiter(appCfg.DefaultDelayPerHost, logEntry)

	c := crawler.NewCrawler(crawler.Options{
		Fetcher:            fetcher,
		Pacer:              rateLimiter,
		Delay:              resolved.Delay,
		Metrics:            collector,
		Logger:             logEntry,
		DisallowedPatterns: resolved.DisallowedPatterns,
	})

	req := models.CrawlRequest{StartURL: resolved.StartURL, MaxPages: resolved.MaxPages, Keyword: resolved.Keyword}
	started := time.Now()
	out, err := c.Crawl(ctx, req)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitInvalid
	}
	finished := time.Now()

	reportPath := opts.Output
	if reportPath == "" && siteKey != "" && appCfg.OutputBaseDir != "" {
		reportPath = filepath.Join(appCfg.OutputBaseDir, resolved.ReportFilename)
	}
	if reportPath != "" {
		report := models.NewCrawlReport(runID, siteKey, req, started, finished, out)
		if werr := crawler.WriteReport(reportPath, appCfg.ReportFormat, report); werr != nil {
			log.Errorf("Failed to write report: %v", werr)
		} else {
			log.Infof("Report written to %s", reportPath)
		}
	}
	if opts.VisitedLog {
		if reportPath == "" {
			log.Warn("Skipping visited log: no report path (use -output)")
		} else if werr := storage.WriteVisitedLog(reportPath+".visited.txt", out.Visited, logEntry); werr != nil {
			log.Errorf("Error writing visited log: %v", werr)
		}
	}

	if out.Aborted() {
		fmt.Fprintf(stderr, "Crawl aborted (%s): %v\n", out.AbortReason, out.Err)
		return exitAborted
	}

	if err := crawler.WriteMatches(stdout, out.Matches); err != nil {
		log.Errorf("Failed to print matches: %v", err)
	}
	if out.Cancelled {
		log.Warn("Crawl cancelled; listing the matches found so far.")
	} else {
		log.Info("Crawl completed successfully.")
	}
	return exitOK
}

// executeParallelCrawl handles crawling multiple sites in parallel
func executeParallelCrawl(ctx context.Context, appCfg *config.AppConfig, siteKeys []string, opts crawlOptions,
	collector *metrics.Collector, log *logrus.Logger, stdout io.Writer) int {

	logEntry := log.WithField("component", "parallel_crawl")
	orch := orchestrate.NewOrchestrator(appCfg, siteKeys, logEntry, orchestrate.Options{
		WriteReports:    appCfg.OutputBaseDir != "",
		WriteVisitedLog: opts.VisitedLog,
		Metrics:         collector,
	})

	results := orch.Run(ctx)

	exitCode := exitOK
	for _, r := range results {
		fmt.Fprintf(stdout, "== %s ==\n", r.SiteKey)
		switch {
		case r.Error != nil:
			fmt.Fprintf(stdout, "Error: %v\n\n", r.Error)
			exitCode = exitInvalid
		case r.Outcome.Aborted():
			fmt.Fprintf(stdout, "Aborted (%s): %v\n\n", r.Outcome.AbortReason, r.Outcome.Err)
			if exitCode == exitOK {
				exitCode = exitAborted
			}
		default:
			if err := crawler.WriteMatches(stdout, r.Outcome.Matches); err != nil {
				log.Errorf("Failed to print matches: %v", err)
			}
		}
	}
	return exitCode
}

// runLocate handles the locate subcommand
func runLocate(args []string) {
	fs := flag.NewFlagSet("locate", flag.ExitOnError)
	pageURL := fs.String("url", "", "Page URL (absolute http/https)")
	keyword := fs.String("keyword", "", "Case-insensitive logo keyword (default \"logo\")")
	timeout := fs.Duration("timeout", 0, "Per-request timeout (default 10s)")
	logLevel := fs.String("loglevel", "warn", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: logo-crawler locate -url URL [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(exitInvalid)
	}

	os.Exit(doLocate(context.Background(), *pageURL, *keyword, *timeout, *logLevel, os.Stdout, os.Stderr))
}

// doLocate identifies the logo on one page and prints its absolute URL.
// Returns exit code (0 = found, 1 = invalid input, 2 = unreachable or no logo).
func doLocate(ctx context.Context, pageURL, keyword string, timeout time.Duration, logLevel string, stdout, stderr io.Writer) int {
	log := applog.New(logLevel, stderr)
	if pageURL == "" {
		fmt.Fprintln(stderr, "Error: -url is required")
		return exitInvalid
	}

	appCfg := &config.AppConfig{RequestTimeout: timeout}
	appCfg.Validate()

	logEntry := applog.Component(log, "locate")
	httpClient := fetch.NewClient(appCfg.HTTPClientSettings, logEntry)
	c := crawler.NewCrawler(crawler.Options{
		Fetcher: fetch.NewFetcher(httpClient, appCfg, logEntry).WithUserAgent(appCfg.DefaultUserAgent),
		Logger:  logEntry,
	})

	logoURL, found, err := c.Locate(ctx, pageURL, keyword)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, utils.ErrInvalidInput) {
			return exitInvalid
		}
		return exitAborted
	}
	if !found {
		fmt.Fprintf(stderr, "No logo found on %s\n", pageURL)
		return exitAborted
	}
	fmt.Fprintln(stdout, logoURL)
	return exitOK
}

// runWatch handles the watch subcommand
func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	siteKey := fs.String("site", "", "Site key from config (single site)")
	sites := fs.String("sites", "", "Comma-separated site keys")
	allSites := fs.Bool("all-sites", false, "Watch all configured sites")
	interval := fs.String("interval", "24h", "Crawl interval (e.g., 30m, 1h, 24h, 7d)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :2112")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: logo-crawler watch [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  logo-crawler watch -site example_docs -interval 24h\n")
		fmt.Fprintf(os.Stderr, "  logo-crawler watch --all-sites -interval 6h\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(exitInvalid)
	}

	siteKeys := splitSiteKeys(*sites)
	if *siteKey != "" {
		siteKeys = append(siteKeys, *siteKey)
	}

	log := applog.New(*logLevel, os.Stderr)
	ctx, stop := withSignalCancel(context.Background(), log)
	defer stop()

	os.Exit(doWatch(ctx, *configFile, siteKeys, *allSites, *interval, *logLevel, *metricsAddr, os.Stdout, os.Stderr))
}

// doWatch runs the watch scheduler until ctx is cancelled, printing coverage changes to stdout.
// Returns exit code (0 = stopped cleanly, 1 = invalid input or config).
func doWatch(ctx context.Context, configPath string, siteKeys []string, allSites bool, intervalStr, logLevel, metricsAddr string, stdout, stderr io.Writer) int {
	log := applog.New(logLevel, stderr)

	interval, err := watch.ParseInterval(intervalStr)
	if err != nil || interval <= 0 {
		fmt.Fprintf(stderr, "Error: invalid interval '%s'\n", intervalStr)
		return exitInvalid
	}

	appCfg, err := loadOrDefaultConfig(configPath, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return exitInvalid
	}

	if allSites {
		siteKeys = orchestrate.GetAllSiteKeys(appCfg)
	}
	if len(siteKeys) == 0 {
		fmt.Fprintln(stderr, "Error: one of -site, -sites, or --all-sites is required")
		return exitInvalid
	}
	if err := orchestrate.ValidateSiteKeys(appCfg, siteKeys); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitInvalid
	}
	if err := validateSiteConfigs(appCfg, siteKeys, log); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitInvalid
	}

	var collector *metrics.Collector
	if metricsAddr != "" {
		collector = metrics.NewCollector()
		go func() {
			if err := collector.Serve(ctx, metricsAddr, applog.Component(log, "metrics")); err != nil {
				log.Errorf("Metrics server error: %v", err)
			}
		}()
	}

	scheduler := watch.NewScheduler(appCfg, siteKeys, interval, applog.Component(log, "watch"), watch.Options{
		Metrics: collector,
		OnChange: func(c watch.Change) {
			writeChange(stdout, c)
		},
	})
	if err := scheduler.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "Watch scheduler error: %v\n", err)
		return exitInvalid
	}

	log.Info("Watch mode stopped")
	return exitOK
}

// writeChange prints one coverage change
func writeChange(w io.Writer, c watch.Change) {
	switch {
	case c.FirstRun:
		fmt.Fprintf(w, "[%s] logo %s\n", c.SiteKey, c.CurrentLogo)
	case c.LogoChanged():
		fmt.Fprintf(w, "[%s] logo changed: %s -> %s\n", c.SiteKey, c.PreviousLogo, c.CurrentLogo)
	}
	for _, page := range c.Added {
		fmt.Fprintf(w, "[%s] + %s\n", c.SiteKey, page)
	}
	for _, page := range c.Removed {
		fmt.Fprintf(w, "[%s] - %s\n", c.SiteKey, page)
	}
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	siteKey := fs.String("site", "", "Site key to validate (optional, validates all if empty)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: logo-crawler validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(exitInvalid)
	}

	os.Exit(doValidate(*configFile, *siteKey, os.Stdout, os.Stderr))
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath, siteKey string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitInvalid
	}

	warnings, _ := appCfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}

	if siteKey != "" {
		siteCfg, ok := appCfg.Sites[siteKey]
		if !ok {
			fmt.Fprintf(stderr, "Error: site '%s' not found in config\n", siteKey)
			return exitInvalid
		}
		siteWarnings, err := siteCfg.Validate()
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: [%s] %v\n", siteKey, err)
			return exitInvalid
		}
		for _, w := range siteWarnings {
			fmt.Fprintf(stdout, "WARN: [%s] %s\n", siteKey, w)
		}
		fmt.Fprintf(stdout, "OK: Site '%s' configuration is valid\n", siteKey)
	} else {
		hasError := false
		for _, key := range appCfg.SiteKeys() {
			siteCfg := appCfg.Sites[key]
			siteWarnings, err := siteCfg.Validate()
			if err != nil {
				fmt.Fprintf(stderr, "ERROR: [%s] %v\n", key, err)
				hasError = true
				continue
			}
			for _, w := range siteWarnings {
				fmt.Fprintf(stdout, "WARN: [%s] %s\n", key, w)
			}
			fmt.Fprintf(stdout, "OK: [%s]\n", key)
		}
		if hasError {
			return exitInvalid
		}
	}

	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return exitOK
}

// runListSites handles the list-sites subcommand
func runListSites(args []string) {
	fs := flag.NewFlagSet("list-sites", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: logo-crawler list-sites [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(exitInvalid)
	}

	os.Exit(doListSites(*configFile, os.Stdout, os.Stderr))
}

// doListSites lists sites and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doListSites(configPath string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitInvalid
	}
	appCfg.Validate()

	fmt.Fprintf(stdout, "Sites in %s:\n\n", configPath)
	for _, key := range appCfg.SiteKeys() {
		site := appCfg.Sites[key]
		fmt.Fprintf(stdout, "  %s\n", key)
		fmt.Fprintf(stdout, "    Start URL: %s\n", site.StartURL)
		fmt.Fprintf(stdout, "    Max Pages: %d\n", config.GetEffectiveMaxPages(site, *appCfg))
		fmt.Fprintf(stdout, "    Keyword: %s\n", config.GetEffectiveKeyword(site, *appCfg))
		if len(site.DisallowedPathPatterns) > 0 {
			fmt.Fprintf(stdout, "    Disallowed Patterns: %d\n", len(site.DisallowedPathPatterns))
		}
		fmt.Fprintln(stdout)
	}
	return exitOK
}

// logAppConfig logs the effective global configuration
func logAppConfig(appCfg *config.AppConfig, log *logrus.Logger) {
	log.Debugf("Global Config: DefaultDelay:%v, DefaultMaxPages:%d, DefaultKeyword:%s, MaxParallelSites:%d",
		appCfg.DefaultDelayPerHost, appCfg.DefaultMaxPages, appCfg.DefaultKeyword, appCfg.MaxParallelSites)
	log.Debugf("Global Config Retries: Max:%d, InitialDelay:%v, MaxDelay:%v",
		appCfg.MaxRetries, appCfg.InitialRetryDelay, appCfg.MaxRetryDelay)
	log.Debugf("Global Config Timeouts: Request:%v, GlobalCrawl:%v, MaxPageSize:%d bytes",
		appCfg.RequestTimeout, appCfg.GlobalCrawlTimeout, appCfg.MaxPageSizeBytes)
	log.Debugf("Global Config HTTP Client: Timeout:%v, MaxIdle:%d, MaxIdlePerHost:%d, IdleTimeout:%v, MaxRedirects:%d",
		appCfg.HTTPClientSettings.Timeout, appCfg.HTTPClientSettings.MaxIdleConns, appCfg.HTTPClientSettings.MaxIdleConnsPerHost,
		appCfg.HTTPClientSettings.IdleConnTimeout, appCfg.HTTPClientSettings.MaxRedirects)
	log.Debugf("Global Config Output: Dir:'%s', Format:%s", appCfg.OutputBaseDir, appCfg.ReportFormat)
}
