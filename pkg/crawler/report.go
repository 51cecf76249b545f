package crawler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/logo-crawler/pkg/models"
	"github.com/Sriram-PR/logo-crawler/pkg/utils"
)

// Supported report formats
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// WriteReport serializes report to path as YAML or JSON, creating parent directories as needed
func WriteReport(path, format string, report models.CrawlReport) error {
	if report.Matches == nil {
		report.Matches = []models.MatchRecord{}
	}

	var data []byte
	var err error
	switch strings.ToLower(format) {
	case FormatYAML, "yml", "":
		data, err = yaml.Marshal(&report)
	case FormatJSON:
		data, err = json.MarshalIndent(report, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	default:
		return fmt.Errorf("%w: unsupported report format '%s'", utils.ErrConfigValidation, format)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal crawl report for '%s': %w", report.StartURL, err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory '%s': %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write crawl report '%s': %w", path, err)
	}
	return nil
}

// WriteMatches prints matches in the human-readable listing used by the CLI
func WriteMatches(w io.Writer, matches []models.MatchRecord) error {
	if _, err := fmt.Fprintln(w, "Pages containing the logo:"); err != nil {
		return err
	}
	for _, m := range matches {
		if _, err := fmt.Fprintf(w, "- Page: %s\n  Logo URL: %s\n\n", m.PageURL, m.LogoURL); err != nil {
			return err
		}
	}
	return nil
}
