package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// WriteVisitedLog writes one URL per line to filePath, creating parent directories as needed.
// The first write, flush or sync error is returned.
func WriteVisitedLog(filePath string, urls []string, log *logrus.Entry) error {
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create visited log dir '%s': %w", dir, err)
		}
	}

	file, err := os.Create(filePath)
	if err != nil {
		log.Errorf("Failed create visited log '%s': %v", filePath, err)
		return fmt.Errorf("create visited log '%s': %w", filePath, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	var firstErr error
	for _, u := range urls {
		if _, writeErr := writer.WriteString(u + "\n"); writeErr != nil && firstErr == nil {
			firstErr = writeErr
		}
	}

	if flushErr := writer.Flush(); flushErr != nil && firstErr == nil {
		firstErr = flushErr
	}
	if syncErr := file.Sync(); syncErr != nil && firstErr == nil {
		firstErr = syncErr
	}

	if firstErr != nil {
		log.Warnf("Finished writing visited log with errors: %v", firstErr)
		return fmt.Errorf("write visited log '%s': %w", filePath, firstErr)
	}
	log.Infof("Wrote %d URLs to visited log: %s", len(urls), filePath)
	return nil
}
