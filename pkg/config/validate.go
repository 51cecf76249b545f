package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sriram-PR/logo-crawler/pkg/parse"
	"github.com/Sriram-PR/logo-crawler/pkg/utils"
)

const (
	DefaultMaxPages         = 20
	DefaultKeyword          = "logo"
	DefaultUserAgent        = "logo-crawler/1.0"
	DefaultDelayPerHost     = 1 * time.Second
	DefaultRequestTimeout   = 10 * time.Second
	DefaultMaxRetries       = 2
	DefaultInitialRetry     = 500 * time.Millisecond
	DefaultMaxRetry         = 5 * time.Second
	DefaultMaxPageSizeBytes = 10 * 1024 * 1024
	DefaultMaxParallelSites = 4
	DefaultOutputBaseDir    = "./logo_reports"

	ReportFormatYAML = "yaml"
	ReportFormatJSON = "json"
)

// defaultIfUnset replaces a zero *v with def. A negative *v is also replaced and,
// when warn is non-nil, reported under key.
func defaultIfUnset[T ~int | ~int64](v *T, def T, key string, warn *[]string) {
	if *v > 0 {
		return
	}
	if *v < 0 && warn != nil {
		*warn = append(*warn, fmt.Sprintf("%s cannot be negative, using %v", key, displayValue(def)))
	}
	*v = def
}

func displayValue[T ~int | ~int64](v T) any {
	if d, ok := any(v).(time.Duration); ok {
		return d
	}
	return int64(v)
}

func normalizeKeyword(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Validate fills unset AppConfig fields with defaults and repairs invalid ones in place.
// Problems are reported as warnings; an AppConfig never fails validation.
func (c *AppConfig) Validate() (warnings []string, err error) {
	if strings.TrimSpace(c.DefaultUserAgent) == "" {
		c.DefaultUserAgent = DefaultUserAgent
	}
	c.DefaultKeyword = normalizeKeyword(c.DefaultKeyword)
	if c.DefaultKeyword == "" {
		c.DefaultKeyword = DefaultKeyword
	}

	defaultIfUnset(&c.DefaultDelayPerHost, DefaultDelayPerHost, "default_delay_per_host", &warnings)
	defaultIfUnset(&c.DefaultMaxPages, DefaultMaxPages, "default_max_pages", &warnings)
	defaultIfUnset(&c.RequestTimeout, DefaultRequestTimeout, "request_timeout", &warnings)
	defaultIfUnset(&c.MaxPageSizeBytes, DefaultMaxPageSizeBytes, "max_page_size_bytes", &warnings)
	defaultIfUnset(&c.MaxParallelSites, DefaultMaxParallelSites, "max_parallel_sites", nil)

	c.validateRetries(&warnings)

	if c.GlobalCrawlTimeout < 0 {
		warnings = append(warnings, "global_crawl_timeout cannot be negative, disabling it")
		c.GlobalCrawlTimeout = 0
	}

	if c.OutputBaseDir == "" {
		warnings = append(warnings, fmt.Sprintf("output_base_dir is empty, using %q", DefaultOutputBaseDir))
		c.OutputBaseDir = DefaultOutputBaseDir
	}

	c.ReportFormat = strings.ToLower(strings.TrimSpace(c.ReportFormat))
	switch c.ReportFormat {
	case ReportFormatYAML, ReportFormatJSON:
	case "":
		c.ReportFormat = ReportFormatYAML
	default:
		warnings = append(warnings, fmt.Sprintf("report_format %q is not supported, using %q", c.ReportFormat, ReportFormatYAML))
		c.ReportFormat = ReportFormatYAML
	}

	c.HTTPClientSettings.applyDefaults()
	return warnings, nil
}

// validateRetries enables the default retry policy on an untouched config and keeps
// the initial delay within the cap. An explicit max_retries of 0 (with a delay set) disables retries.
func (c *AppConfig) validateRetries(warnings *[]string) {
	if c.MaxRetries < 0 {
		*warnings = append(*warnings, "max_retries cannot be negative, disabling retries")
		c.MaxRetries = 0
	}
	if c.MaxRetries == 0 && c.InitialRetryDelay == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.MaxRetries == 0 {
		return
	}

	defaultIfUnset(&c.InitialRetryDelay, DefaultInitialRetry, "initial_retry_delay", nil)
	defaultIfUnset(&c.MaxRetryDelay, DefaultMaxRetry, "max_retry_delay", nil)
	if c.InitialRetryDelay > c.MaxRetryDelay {
		*warnings = append(*warnings, fmt.Sprintf("initial_retry_delay (%v) exceeds max_retry_delay (%v), clamping",
			c.InitialRetryDelay, c.MaxRetryDelay))
		c.InitialRetryDelay = c.MaxRetryDelay
	}
}

func (h *HTTPClientConfig) applyDefaults() {
	defaultIfUnset(&h.Timeout, 45*time.Second, "", nil)
	defaultIfUnset(&h.MaxIdleConns, 100, "", nil)
	defaultIfUnset(&h.MaxIdleConnsPerHost, 2, "", nil)
	defaultIfUnset(&h.IdleConnTimeout, 90*time.Second, "", nil)
	defaultIfUnset(&h.TLSHandshakeTimeout, 10*time.Second, "", nil)
	defaultIfUnset(&h.ExpectContinueTimeout, time.Second, "", nil)
	defaultIfUnset(&h.DialerTimeout, 15*time.Second, "", nil)
	defaultIfUnset(&h.DialerKeepAlive, 30*time.Second, "", nil)
	defaultIfUnset(&h.MaxRedirects, 10, "", nil)
}

// Validate checks a site entry and normalizes it in place. A missing or unusable start_url,
// a negative max_pages or an uncompilable disallowed pattern is fatal.
func (c *SiteConfig) Validate() (warnings []string, err error) {
	c.StartURL = strings.TrimSpace(c.StartURL)
	if c.StartURL == "" {
		return nil, fmt.Errorf("%w: site has no start_url", utils.ErrConfigValidation)
	}
	if _, perr := parse.ValidateStartURL(c.StartURL); perr != nil {
		return nil, fmt.Errorf("%w: site start_url is invalid: %v", utils.ErrConfigValidation, perr)
	}
	if c.MaxPages < 0 {
		return nil, fmt.Errorf("%w: site max_pages cannot be negative (%d)", utils.ErrConfigValidation, c.MaxPages)
	}
	if _, perr := utils.CompilePathPatterns(c.DisallowedPathPatterns); perr != nil {
		return nil, perr
	}

	c.Keyword = normalizeKeyword(c.Keyword)
	if c.DelayPerHost < 0 {
		warnings = append(warnings, "site delay_per_host cannot be negative, using the global default")
		c.DelayPerHost = 0
	}
	return warnings, nil
}
