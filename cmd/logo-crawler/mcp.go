package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	applog "github.com/Sriram-PR/logo-crawler/pkg/log"
	"github.com/Sriram-PR/logo-crawler/pkg/mcp"
	"github.com/Sriram-PR/logo-crawler/pkg/metrics"
)

// runMcpServer handles the mcp-server subcommand
func runMcpServer(args []string) {
	fs := flag.NewFlagSet("mcp-server", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to config file (optional; ad-hoc url crawls work without one)")
	transport := fs.String("transport", mcp.TransportStdio, "Transport type (stdio, sse)")
	port := fs.Int("port", 8080, "HTTP port (for sse transport)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error)")
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :2112")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: logo-crawler mcp-server [options]

Start an MCP (Model Context Protocol) server for AI tool integration.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Start with stdio transport
  logo-crawler mcp-server -config config.yaml

  # Start with SSE transport on port 8080
  logo-crawler mcp-server -config config.yaml -transport sse -port 8080

Available MCP Tools:
  list_sites      List all configured sites
  locate_logo     Identify the logo on a single page
  crawl_site      Start a background logo crawl for a site or URL
  get_job_status  Get status and matches of a crawl job
  cancel_job      Cancel a running crawl job
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(exitInvalid)
	}

	exitCode := doMcpServer(*configFile, *transport, *port, *logLevel, *metricsAddr, os.Stderr)
	os.Exit(exitCode)
}

// doMcpServer is the testable implementation of the MCP server.
// The protocol owns stdout, so everything here goes to stderr.
func doMcpServer(configPath, transport string, port int, logLevel, metricsAddr string, stderr io.Writer) int {
	if transport != mcp.TransportStdio && transport != mcp.TransportSSE {
		fmt.Fprintf(stderr, "Unknown transport: %s (supported: stdio, sse)\n", transport)
		return exitInvalid
	}

	log := applog.New(logLevel, stderr)

	appCfg, err := loadOrDefaultConfig(configPath, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return exitInvalid
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var collector *metrics.Collector
	if metricsAddr != "" {
		collector = metrics.NewCollector()
		go func() {
			if err := collector.Serve(ctx, metricsAddr, applog.Component(log, "metrics")); err != nil {
				log.Errorf("Metrics server error: %v", err)
			}
		}()
	}

	server, err := mcp.NewServer(&mcp.ServerConfig{
		AppConfig:  appCfg,
		ConfigPath: configPath,
		Transport:  transport,
		Port:       port,
		Logger:     log,
		Metrics:    collector,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error creating MCP server: %v\n", err)
		return exitInvalid
	}

	runErr := server.Run()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Background crawls did not stop in time: %v", err)
	}

	if runErr != nil {
		fmt.Fprintf(stderr, "MCP server error: %v\n", runErr)
		return exitInvalid
	}
	return exitOK
}
