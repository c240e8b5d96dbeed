package newsfeed

import (
	"path/filepath"
	"strings"
)

// Sink receives enriched articles as they are produced. Append may buffer;
// Flush persists everything appended so far. Implementations need not be
// safe for concurrent use.
type Sink interface {
	Append(a EnrichedArticle) error
	Flush() error
	Close() error
}

// OpenSink opens the sink for path: CSV for a .csv extension, SQLite
// otherwise. Rows are tagged with runID.
func OpenSink(path, runID string) (Sink, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return NewCSVSink(path, runID)
	}
	return NewContentStore(path, runID)
}
