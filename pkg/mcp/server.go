package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/logo-crawler/pkg/config"
	"github.com/Sriram-PR/logo-crawler/pkg/fetch"
	"github.com/Sriram-PR/logo-crawler/pkg/metrics"
)

const (
	serverName    = "logo-crawler"
	serverVersion = "1.0.0"
)

// Supported transports
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	AppConfig  *config.AppConfig
	ConfigPath string
	Transport  string
	Port       int // SSE only
	Logger     *logrus.Logger
	Metrics    *metrics.Collector // Optional
}

// Server exposes logo lookups and background crawls as MCP tools.
// All tools share one HTTP client and one per-host rate limiter.
type Server struct {
	mcpServer   *server.MCPServer
	cfg         *ServerConfig
	log         *logrus.Entry
	jobManager  *JobManager
	fetcher     *fetch.Fetcher
	rateLimiter *fetch.RateLimiter
	jobsWG      sync.WaitGroup
}

// NewServer creates a new MCP server instance
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.AppConfig == nil {
		return nil, errors.New("mcp: AppConfig is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	log := cfg.Logger.WithField("component", "mcp")

	s := &Server{
		mcpServer:   server.NewMCPServer(serverName, serverVersion, server.WithLogging(), server.WithToolCapabilities(false)),
		cfg:         cfg,
		log:         log,
		jobManager:  NewJobManager(),
		fetcher:     fetch.NewFetcher(fetch.NewClient(cfg.AppConfig.HTTPClientSettings, log), cfg.AppConfig, log),
		rateLimiter: fetch.NewRateLimiter(cfg.AppConfig.DefaultDelayPerHost, log),
	}

	tools := s.tools()
	s.mcpServer.AddTools(tools...)
	log.Infof("Registered %d MCP tools", len(tools))
	return s, nil
}

func jobIDParam() mcp.ToolOption {
	return mcp.WithString("job_id", mcp.Required(), mcp.Description("The job ID returned by crawl_site"))
}

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool:    mcp.NewTool("list_sites", mcp.WithDescription("List all configured sites available for logo crawling")),
			Handler: s.handleListSites,
		},
		{
			Tool: mcp.NewTool("locate_logo",
				mcp.WithDescription("Fetch one page and return the URL of the first image whose alt, class or id contains the keyword"),
				mcp.WithString("url", mcp.Required(), mcp.Description("Absolute http(s) URL of the page")),
				mcp.WithString("keyword", mcp.Description("Case-insensitive keyword identifying the logo (defaults to 'logo')")),
			),
			Handler: s.handleLocateLogo,
		},
		{
			Tool: mcp.NewTool("crawl_site",
				mcp.WithDescription("Start a background crawl that lists the pages displaying the site's logo. Returns immediately with a job ID."),
				mcp.WithString("site_key", mcp.Description("Site key from the config file; mutually exclusive with url")),
				mcp.WithString("url", mcp.Description("Start URL for an ad-hoc crawl; mutually exclusive with site_key")),
				mcp.WithNumber("max_pages", mcp.Description("Maximum number of pages to attempt (defaults to the configured value)")),
				mcp.WithString("keyword", mcp.Description("Case-insensitive logo keyword (defaults to the configured value)")),
			),
			Handler: s.handleCrawlSite,
		},
		{
			Tool: mcp.NewTool("get_job_status",
				mcp.WithDescription("Get the status, counters and matches of a crawl job"),
				jobIDParam(),
			),
			Handler: s.handleGetJobStatus,
		},
		{
			Tool: mcp.NewTool("cancel_job",
				mcp.WithDescription("Cancel a pending or running crawl job; matches found so far are kept"),
				jobIDParam(),
			),
			Handler: s.handleCancelJob,
		},
	}
}

// Run serves MCP on the configured transport until the transport stops
func (s *Server) Run() error {
	switch s.cfg.Transport {
	case TransportStdio:
		s.log.Info("Serving MCP over stdio")
		return server.ServeStdio(s.mcpServer)
	case TransportSSE:
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.log.Infof("Serving MCP over SSE on %s", addr)
		return server.NewSSEServer(s.mcpServer).Start(addr)
	default:
		return fmt.Errorf("unknown transport %q (supported: %s, %s)", s.cfg.Transport, TransportStdio, TransportSSE)
	}
}

// Shutdown cancels running jobs and waits until each has recorded its partial result
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down MCP server")
	s.jobManager.CancelAll()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.jobsWG.Wait()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
