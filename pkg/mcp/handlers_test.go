package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/logo-crawler/pkg/config"
	"github.com/Sriram-PR/logo-crawler/pkg/crawler"
	"github.com/Sriram-PR/logo-crawler/pkg/models"
)

func testServer(t *testing.T, sites map[string]config.SiteConfig) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	appCfg := &config.AppConfig{
		DefaultUserAgent:  "logo-crawler-test",
		DefaultMaxPages:   10,
		DefaultKeyword:    "logo",
		RequestTimeout:    5 * time.Second,
		InitialRetryDelay: time.Millisecond,
		MaxRetryDelay:     time.Millisecond,
		MaxPageSizeBytes:  1 << 20,
		OutputBaseDir:     t.TempDir(),
		ReportFormat:      config.ReportFormatYAML,
		Sites:             sites,
	}
	s, err := NewServer(&ServerConfig{AppConfig: appCfg, ConfigPath: "test.yaml", Transport: "stdio", Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func logoSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, `<img class="site-logo" src="/l.png"><a href="/about">About</a><a href="/contact">Contact</a>`)
		case "/about":
			fmt.Fprint(w, `<img src="/l.png">`)
		case "/contact":
			fmt.Fprint(w, `<p>contact</p>`)
		case "/plain":
			fmt.Fprint(w, `<img alt="banner" src="/b.png">`)
		default:
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func toolRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func decodeResult(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.False(t, res.IsError, "unexpected tool error: %s", resultText(t, res))
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	return out
}

func waitForJob(t *testing.T, s *Server, jobID string) map[string]any {
	t.Helper()
	require.Eventually(t, func() bool {
		job := s.jobManager.GetJob(jobID)
		return job != nil && job.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)

	res, err := s.handleGetJobStatus(context.Background(), toolRequest(map[string]any{"job_id": jobID}))
	require.NoError(t, err)
	return decodeResult(t, res)
}

func TestHandleListSites(t *testing.T) {
	s := testServer(t, map[string]config.SiteConfig{
		"beta":  {StartURL: "https://beta.example.com/", MaxPages: 3},
		"alpha": {StartURL: "https://alpha.example.com/", Keyword: "brand"},
	})

	report := models.CrawlReport{
		RunID:      "r1",
		SiteKey:    "alpha",
		Status:     models.RunStatusCompleted,
		FinishedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Matches:    []models.MatchRecord{{PageURL: "a", LogoURL: "b"}},
	}
	require.NoError(t, crawler.WriteReport(filepath.Join(s.cfg.AppConfig.OutputBaseDir, "alpha_report.yaml"), "yaml", report))
	adhoc, _ := s.jobManager.CreateJob("https://adhoc.example.com/", "", "https://adhoc.example.com/")

	res, err := s.handleListSites(context.Background(), toolRequest(nil))
	require.NoError(t, err)
	out := decodeResult(t, res)

	assert.Equal(t, float64(2), out["total_sites"])
	assert.Equal(t, "test.yaml", out["config_path"])
	sites := out["sites"].([]any)
	require.Len(t, sites, 2)

	alpha := sites[0].(map[string]any)
	assert.Equal(t, "alpha", alpha["key"])
	assert.Equal(t, "brand", alpha["keyword"])
	assert.Equal(t, float64(10), alpha["max_pages"])
	assert.Equal(t, "2026-01-02T03:04:05Z", alpha["last_crawled"])
	assert.Equal(t, "completed", alpha["last_status"])
	assert.Equal(t, float64(1), alpha["last_match_count"])

	beta := sites[1].(map[string]any)
	assert.Equal(t, "beta", beta["key"])
	assert.Equal(t, float64(3), beta["max_pages"])
	assert.NotContains(t, beta, "last_crawled")

	jobs := out["jobs"].([]any)
	require.Len(t, jobs, 1)
	job := jobs[0].(map[string]any)
	assert.Equal(t, adhoc.ID, job["job_id"])
	assert.Equal(t, "https://adhoc.example.com/", job["target"])
	assert.Equal(t, "pending", job["status"])
}

func TestHandleLocateLogo(t *testing.T) {
	site := logoSite(t)
	s := testServer(t, nil)

	t.Run("found", func(t *testing.T) {
		res, err := s.handleLocateLogo(context.Background(), toolRequest(map[string]any{"url": site.URL + "/"}))
		require.NoError(t, err)
		out := decodeResult(t, res)
		assert.Equal(t, true, out["found"])
		assert.Equal(t, site.URL+"/l.png", out["logo_url"])
		assert.Equal(t, "logo", out["keyword"])
	})

	t.Run("not found", func(t *testing.T) {
		res, err := s.handleLocateLogo(context.Background(), toolRequest(map[string]any{"url": site.URL + "/plain"}))
		require.NoError(t, err)
		out := decodeResult(t, res)
		assert.Equal(t, false, out["found"])
		assert.NotContains(t, out, "logo_url")
	})

	t.Run("custom keyword", func(t *testing.T) {
		res, err := s.handleLocateLogo(context.Background(), toolRequest(map[string]any{"url": site.URL + "/plain", "keyword": "BANNER"}))
		require.NoError(t, err)
		out := decodeResult(t, res)
		assert.Equal(t, site.URL+"/b.png", out["logo_url"])
	})

	t.Run("missing url", func(t *testing.T) {
		res, err := s.handleLocateLogo(context.Background(), toolRequest(map[string]any{}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})

	t.Run("unreachable", func(t *testing.T) {
		res, err := s.handleLocateLogo(context.Background(), toolRequest(map[string]any{"url": site.URL + "/missing"}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), "start page unreachable")
	})
}

func TestHandleCrawlSite_ByURL(t *testing.T) {
	site := logoSite(t)
	s := testServer(t, nil)

	res, err := s.handleCrawlSite(context.Background(), toolRequest(map[string]any{"url": site.URL + "/", "max_pages": 10}))
	require.NoError(t, err)
	started := decodeResult(t, res)
	assert.Equal(t, "started", started["status"])
	jobID := started["job_id"].(string)
	require.NotEmpty(t, jobID)

	status := waitForJob(t, s, jobID)
	assert.Equal(t, "completed", status["status"])
	assert.Equal(t, site.URL+"/l.png", status["logo_url"])
	assert.Equal(t, float64(3), status["pages_visited"])
	assert.Equal(t, float64(2), status["match_count"])
	matches := status["matches"].([]any)
	require.Len(t, matches, 2)
	assert.Equal(t, site.URL+"/", matches[0].(map[string]any)["page_url"])
	assert.Equal(t, site.URL+"/about", matches[1].(map[string]any)["page_url"])
}

func TestHandleCrawlSite_BySiteKeyWritesReport(t *testing.T) {
	site := logoSite(t)
	s := testServer(t, map[string]config.SiteConfig{
		"demo": {StartURL: site.URL + "/", DisallowedPathPatterns: []string{"^/contact"}},
	})

	res, err := s.handleCrawlSite(context.Background(), toolRequest(map[string]any{"site_key": "demo"}))
	require.NoError(t, err)
	jobID := decodeResult(t, res)["job_id"].(string)

	status := waitForJob(t, s, jobID)
	assert.Equal(t, "completed", status["status"])
	assert.Equal(t, "demo", status["site_key"])
	assert.Equal(t, float64(2), status["pages_visited"])

	last := s.readLastReport("demo", s.cfg.AppConfig.Sites["demo"])
	require.NotNil(t, last)
	assert.Equal(t, jobID, last.RunID)
	assert.Len(t, last.Matches, 2)
}

func TestHandleCrawlSite_AbortedJobFails(t *testing.T) {
	site := logoSite(t)
	s := testServer(t, nil)

	res, err := s.handleCrawlSite(context.Background(), toolRequest(map[string]any{"url": site.URL + "/plain"}))
	require.NoError(t, err)
	jobID := decodeResult(t, res)["job_id"].(string)

	status := waitForJob(t, s, jobID)
	assert.Equal(t, "failed", status["status"])
	assert.Equal(t, "logo_not_found", status["abort_reason"])
	assert.NotEmpty(t, status["error_message"])
}

func TestHandleCrawlSite_InvalidArguments(t *testing.T) {
	s := testServer(t, map[string]config.SiteConfig{"demo": {StartURL: "https://demo.example.com/"}})

	tests := []struct {
		name string
		args map[string]any
	}{
		{"neither", map[string]any{}},
		{"both", map[string]any{"site_key": "demo", "url": "https://demo.example.com/"}},
		{"unknown site", map[string]any{"site_key": "ghost"}},
		{"bad url", map[string]any{"url": "notaurl"}},
		{"negative max_pages", map[string]any{"url": "https://demo.example.com/", "max_pages": -1}},
		{"zero max_pages", map[string]any{"url": "https://demo.example.com/", "max_pages": 0}},
		{"zero max_pages for a site", map[string]any{"site_key": "demo", "max_pages": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleCrawlSite(context.Background(), toolRequest(tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
	assert.Empty(t, s.jobManager.ListJobs())
}

func TestHandleCrawlSite_AlreadyRunning(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, `<img alt="logo" src="/l.png">`)
	}))
	t.Cleanup(slow.Close)
	t.Cleanup(func() { close(release) })

	s := testServer(t, map[string]config.SiteConfig{"slow": {StartURL: slow.URL + "/"}})

	res, err := s.handleCrawlSite(context.Background(), toolRequest(map[string]any{"site_key": "slow"}))
	require.NoError(t, err)
	first := decodeResult(t, res)

	res, err = s.handleCrawlSite(context.Background(), toolRequest(map[string]any{"site_key": "slow"}))
	require.NoError(t, err)
	second := decodeResult(t, res)
	assert.Equal(t, "already_running", second["status"])
	assert.Equal(t, first["job_id"], second["job_id"])

	res, err = s.handleCancelJob(context.Background(), toolRequest(map[string]any{"job_id": first["job_id"]}))
	require.NoError(t, err)
	cancelled := decodeResult(t, res)
	assert.Equal(t, true, cancelled["cancelled"])
	assert.Equal(t, "cancelled", cancelled["status"])
}

func TestHandleGetJobStatus_Errors(t *testing.T) {
	s := testServer(t, nil)

	res, err := s.handleGetJobStatus(context.Background(), toolRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleGetJobStatus(context.Background(), toolRequest(map[string]any{"job_id": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "nope")

	res, err = s.handleCancelJob(context.Background(), toolRequest(map[string]any{"job_id": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestFormatJSON(t *testing.T) {
	assert.Equal(t, "{\n  \"a\": 1\n}", formatJSON(map[string]interface{}{"a": 1}))
	assert.Contains(t, formatJSON(map[string]interface{}{"bad": make(chan int)}), "error")
}

func TestNewServer_RequiresAppConfig(t *testing.T) {
	_, err := NewServer(&ServerConfig{})
	assert.Error(t, err)
}

func TestRun_UnknownTransport(t *testing.T) {
	s := testServer(t, nil)
	s.cfg.Transport = "carrier-pigeon"
	assert.ErrorContains(t, s.Run(), "unknown transport")
}
