package newsfeed

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ContentStore persists enriched articles in SQLite, one row per URL.
// Appends go into an open transaction that Flush commits.
type ContentStore struct {
	db    *sql.DB
	runID string
	tx    *sql.Tx
}

// NewContentStore creates a content store with the given database path.
func NewContentStore(dbPath, runID string) (*ContentStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &ContentStore{db: db, runID: runID}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the articles table if it doesn't exist.
func (c *ContentStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		url TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		entity TEXT,
		title_stub TEXT,
		title_fetched TEXT,
		date_stub TEXT,
		date_fetched TEXT,
		authors TEXT,
		content TEXT NOT NULL,
		run_id TEXT,
		fetched_at TEXT NOT NULL
	);
	`

	_, err := c.db.Exec(schema)
	return err
}

// Append stages an article. It is visible to readers after Flush.
func (c *ContentStore) Append(a EnrichedArticle) error {
	if c.tx == nil {
		tx, err := c.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		c.tx = tx
	}

	authors, err := json.Marshal(a.Authors)
	if err != nil {
		return fmt.Errorf("failed to marshal authors: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO articles (
		url, source, entity, title_stub, title_fetched, date_stub, date_fetched,
		authors, content, run_id, fetched_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = c.tx.Exec(query,
		a.URL, a.Source, a.Entity,
		a.Title.Stub, a.Title.Fetched,
		a.Date.Stub, a.Date.Fetched,
		string(authors), a.Content, c.runID,
		formatTime(a.FetchedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

// Flush commits everything appended since the last flush.
func (c *ContentStore) Flush() error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit articles: %w", err)
	}
	return nil
}

// Close rolls back anything not flushed and closes the database.
func (c *ContentStore) Close() error {
	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
	}
	return c.db.Close()
}

// List returns the stored articles ordered by URL.
func (c *ContentStore) List() ([]EnrichedArticle, error) {
	query := `
	SELECT url, source, entity, title_stub, title_fetched, date_stub, date_fetched,
		authors, content, fetched_at
	FROM articles ORDER BY url
	`
	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []EnrichedArticle
	for rows.Next() {
		var (
			a                       EnrichedArticle
			entity, authors         sql.NullString
			titleStub, titleFetched sql.NullString
			dateStub, dateFetched   sql.NullString
			fetchedAt               string
		)
		err := rows.Scan(&a.URL, &a.Source, &entity, &titleStub, &titleFetched,
			&dateStub, &dateFetched, &authors, &a.Content, &fetchedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}

		a.Entity = entity.String
		a.Title = CandidatePair{Stub: titleStub.String, Fetched: titleFetched.String}
		a.Date = CandidatePair{Stub: dateStub.String, Fetched: dateFetched.String}
		a.FetchedAt = parseTime(fetchedAt)
		if authors.Valid && authors.String != "" {
			if err := json.Unmarshal([]byte(authors.String), &a.Authors); err != nil {
				return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
			}
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate articles: %w", err)
	}

	return articles, nil
}

func formatTime(t time.Time) string {
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	// Try RFC3339Nano first, fall back to RFC3339 for compatibility
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
