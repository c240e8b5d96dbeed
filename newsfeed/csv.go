package newsfeed

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

var csvHeader = []string{
	"url", "content", "source", "entity",
	"title_stub", "title_fetched", "date_stub", "date_fetched",
	"authors", "run_id", "fetched_at",
}

// CSVSink writes enriched articles as CSV rows, one per article.
type CSVSink struct {
	file  *os.File
	w     *csv.Writer
	runID string
}

// NewCSVSink creates (or truncates) path and writes the header row.
func NewCSVSink(path, runID string) (*CSVSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create csv file: %w", err)
	}

	s := &CSVSink{file: f, w: csv.NewWriter(f), runID: runID}
	if err := s.w.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	return s, nil
}

// Append buffers one row.
func (s *CSVSink) Append(a EnrichedArticle) error {
	row := []string{
		a.URL, a.Content, a.Source, a.Entity,
		a.Title.Stub, a.Title.Fetched, a.Date.Stub, a.Date.Fetched,
		strings.Join(a.Authors, "; "), s.runID, formatTime(a.FetchedAt),
	}
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}
	return nil
}

// Flush writes buffered rows to the file.
func (s *CSVSink) Flush() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (s *CSVSink) Close() error {
	flushErr := s.Flush()
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close csv file: %w", err)
	}
	return flushErr
}
