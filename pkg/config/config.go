package config

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/Sriram-PR/logo-crawler/pkg/utils"
)

// SiteConfig holds configuration specific to a single website crawl
type SiteConfig struct {
	StartURL               string        `yaml:"start_url"`
	MaxPages               int           `yaml:"max_pages,omitempty"` // 0 = use default_max_pages
	Keyword                string        `yaml:"keyword,omitempty"`
	DelayPerHost           time.Duration `yaml:"delay_per_host,omitempty"`
	UserAgent              string        `yaml:"user_agent,omitempty"`
	DisallowedPathPatterns []string      `yaml:"disallowed_path_patterns,omitempty"` // Regex patterns for paths to exclude
	ReportFilename         string        `yaml:"report_filename,omitempty"`
}

// AppConfig holds the global application configuration
type AppConfig struct {
	DefaultUserAgent    string                `yaml:"default_user_agent"`
	DefaultDelayPerHost time.Duration         `yaml:"default_delay_per_host"`
	DefaultMaxPages     int                   `yaml:"default_max_pages"`
	DefaultKeyword      string                `yaml:"default_keyword"`
	RequestTimeout      time.Duration         `yaml:"request_timeout,omitempty"` // Per fetch attempt, including retries
	MaxRetries          int                   `yaml:"max_retries,omitempty"`
	InitialRetryDelay   time.Duration         `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay       time.Duration         `yaml:"max_retry_delay,omitempty"`
	MaxPageSizeBytes    int64                 `yaml:"max_page_size_bytes,omitempty"`
	GlobalCrawlTimeout  time.Duration         `yaml:"global_crawl_timeout,omitempty"` // 0 = no timeout
	MaxParallelSites    int                   `yaml:"max_parallel_sites,omitempty"`
	OutputBaseDir       string                `yaml:"output_base_dir"`
	ReportFormat        string                `yaml:"report_format,omitempty"` // "yaml" or "json"
	HTTPClientSettings  HTTPClientConfig      `yaml:"http_client_settings,omitempty"`
	Sites               map[string]SiteConfig `yaml:"sites"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
	MaxRedirects          int           `yaml:"max_redirects,omitempty"`
}

// SiteKeys returns the configured site keys in sorted order
func (c *AppConfig) SiteKeys() []string {
	keys := make([]string, 0, len(c.Sites))
	for k := range c.Sites {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResolvedSiteConfig holds the effective values for one crawl after site overrides
// have been merged onto the global defaults
type ResolvedSiteConfig struct {
	SiteKey            string
	StartURL           string
	MaxPages           int
	Keyword            string
	Delay              time.Duration
	UserAgent          string
	DisallowedPatterns []*regexp.Regexp
	ReportFilename     string
}

// NewResolvedSiteConfig merges siteCfg onto appCfg. appCfg should already be validated.
func NewResolvedSiteConfig(siteKey string, siteCfg SiteConfig, appCfg AppConfig) (*ResolvedSiteConfig, error) {
	patterns, err := utils.CompilePathPatterns(siteCfg.DisallowedPathPatterns)
	if err != nil {
		return nil, fmt.Errorf("site '%s': %w", siteKey, err)
	}
	return &ResolvedSiteConfig{
		SiteKey:            siteKey,
		StartURL:           siteCfg.StartURL,
		MaxPages:           GetEffectiveMaxPages(siteCfg, appCfg),
		Keyword:            GetEffectiveKeyword(siteCfg, appCfg),
		Delay:              GetEffectiveDelay(siteCfg, appCfg),
		UserAgent:          GetEffectiveUserAgent(siteCfg, appCfg),
		DisallowedPatterns: patterns,
		ReportFilename:     GetEffectiveReportFilename(siteKey, siteCfg, appCfg),
	}, nil
}

// GetEffectiveMaxPages determines the effective page budget
func GetEffectiveMaxPages(siteCfg SiteConfig, appCfg AppConfig) int {
	if siteCfg.MaxPages > 0 {
		return siteCfg.MaxPages
	}
	if appCfg.DefaultMaxPages > 0 {
		return appCfg.DefaultMaxPages
	}
	return DefaultMaxPages
}

// GetEffectiveKeyword determines the effective logo keyword
func GetEffectiveKeyword(siteCfg SiteConfig, appCfg AppConfig) string {
	if siteCfg.Keyword != "" {
		return siteCfg.Keyword
	}
	if appCfg.DefaultKeyword != "" {
		return appCfg.DefaultKeyword
	}
	return DefaultKeyword
}

// GetEffectiveDelay determines the politeness delay between traversal fetches
func GetEffectiveDelay(siteCfg SiteConfig, appCfg AppConfig) time.Duration {
	if siteCfg.DelayPerHost > 0 {
		return siteCfg.DelayPerHost
	}
	return appCfg.DefaultDelayPerHost
}

// GetEffectiveUserAgent determines the User-Agent header
func GetEffectiveUserAgent(siteCfg SiteConfig, appCfg AppConfig) string {
	if siteCfg.UserAgent != "" {
		return siteCfg.UserAgent
	}
	return appCfg.DefaultUserAgent
}

// GetEffectiveReportFilename determines the report file name for a site
// Site config (if non-empty) overrides the derived default
func GetEffectiveReportFilename(siteKey string, siteCfg SiteConfig, appCfg AppConfig) string {
	if siteCfg.ReportFilename != "" {
		return siteCfg.ReportFilename
	}
	ext := appCfg.ReportFormat
	if ext == "" {
		ext = ReportFormatYAML
	}
	return utils.SanitizeFilename(siteKey) + "_report." + ext
}
