// Package newsfeed holds the article records produced by a run and the
// sinks they are written to.
package newsfeed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteStubs saves stubs to path as a single JSON array. Non-ASCII text is
// written as it is.
func WriteStubs(path string, stubs []ArticleStub) error {
	if stubs == nil {
		stubs = []ArticleStub{}
	}

	// Create the parent directory if it doesn't exist (0700: owner-only access)
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stubs); err != nil {
		return fmt.Errorf("failed to marshal stubs: %w", err)
	}

	// Write to file (0600: owner-only read/write)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write stubs: %w", err)
	}

	return nil
}

// ReadStubs loads a JSON array written by WriteStubs. Entries without a
// title or URL are skipped.
func ReadStubs(path string) ([]ArticleStub, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stubs: %w", err)
	}

	var stubs []ArticleStub
	if err := json.Unmarshal(data, &stubs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stubs: %w", err)
	}

	valid := stubs[:0]
	for _, s := range stubs {
		if s.Valid() {
			valid = append(valid, s)
		}
	}
	return valid, nil
}
