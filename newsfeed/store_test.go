package newsfeed

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create a content store in a temp directory
func setupTestStore(t *testing.T) *ContentStore {
	t.Helper()
	store, err := NewContentStore(filepath.Join(t.TempDir(), "articles.db"), "run-1")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// Test helper: an enriched article for url
func createTestArticle(url string) EnrichedArticle {
	return EnrichedArticle{
		URL:       url,
		Source:    "digi24",
		Entity:    "CEZ",
		Title:     CandidatePair{Stub: "CEZ vinde", Fetched: "CEZ vinde activele din România"},
		Date:      CandidatePair{Stub: "2024-03-10T10:00:00Z", Fetched: "2024-03-10T09:58:00+02:00"},
		Authors:   []string{"Ana Popescu", "Ion Ionescu"},
		Content:   "Grupul ceh CEZ a anunțat...",
		FetchedAt: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

// TestContentStore_AppendFlush verifies rows become visible after Flush
func TestContentStore_AppendFlush(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.Append(createTestArticle("https://b")))
	require.NoError(t, store.Append(createTestArticle("https://a")))
	require.NoError(t, store.Flush())

	got, err := store.List()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://a", got[0].URL)
	assert.Equal(t, createTestArticle("https://a"), got[0])
}

// TestContentStore_ReplacesURL verifies one row per URL
func TestContentStore_ReplacesURL(t *testing.T) {
	store := setupTestStore(t)

	first := createTestArticle("https://a")
	second := createTestArticle("https://a")
	second.Content = "updated"

	require.NoError(t, store.Append(first))
	require.NoError(t, store.Flush())
	require.NoError(t, store.Append(second))
	require.NoError(t, store.Flush())

	got, err := store.List()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "updated", got[0].Content)
}

// TestContentStore_FlushWithoutAppend verifies an empty flush is a no-op
func TestContentStore_FlushWithoutAppend(t *testing.T) {
	store := setupTestStore(t)
	assert.NoError(t, store.Flush())
}

// TestContentStore_CloseDiscardsUnflushed verifies Close rolls back staged rows
func TestContentStore_CloseDiscardsUnflushed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.db")
	store, err := NewContentStore(path, "run-1")
	require.NoError(t, err)

	require.NoError(t, store.Append(createTestArticle("https://a")))
	require.NoError(t, store.Close())

	reopened, err := NewContentStore(path, "run-2")
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.List()
	require.NoError(t, err)
	assert.Empty(t, got)
}

// TestCSVSink verifies header and rows are written on Flush
func TestCSVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.csv")
	sink, err := NewCSVSink(path, "run-1")
	require.NoError(t, err)

	require.NoError(t, sink.Append(createTestArticle("https://a")))
	require.NoError(t, sink.Flush())
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "https://a", rows[1][0])
	assert.Equal(t, "Grupul ceh CEZ a anunțat...", rows[1][1])
	assert.Equal(t, "Ana Popescu; Ion Ionescu", rows[1][8])
}

// TestOpenSink verifies the sink is chosen by extension
func TestOpenSink(t *testing.T) {
	dir := t.TempDir()

	csvSink, err := OpenSink(filepath.Join(dir, "out.CSV"), "run-1")
	require.NoError(t, err)
	assert.IsType(t, &CSVSink{}, csvSink)
	require.NoError(t, csvSink.Close())

	dbSink, err := OpenSink(filepath.Join(dir, "out.db"), "run-1")
	require.NoError(t, err)
	assert.IsType(t, &ContentStore{}, dbSink)
	require.NoError(t, dbSink.Close())
}
