package newsfeed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: stubs for a couple of sources
func createTestStubs() []ArticleStub {
	return []ArticleStub{
		{
			Title:  "Hidroelectrica anunță profit record",
			URL:    "https://www.digi24.ro/stiri/economie/hidroelectrica-profit",
			Date:   "2024-03-10T10:00:00Z",
			Source: "digi24",
			Entity: "HIDROELECTRICA",
			Query:  "Hidroelectrica",
		},
		{
			Title:  "E.ON & Delgaz: investiții <noi>",
			URL:    "https://www.zf.ro/companii/eon-delgaz?utm=1&x=2",
			Source: "zf",
			Entity: "E.ON",
			Query:  "E.ON",
		},
	}
}

// TestWriteStubs verifies a readable JSON array with text kept as it is
func TestWriteStubs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.json")
	stubs := createTestStubs()

	require.NoError(t, WriteStubs(path, stubs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "anunță")
	assert.Contains(t, text, "E.ON & Delgaz: investiții <noi>")
	assert.Contains(t, text, "\n  {\n    \"title\"")
	assert.Equal(t, byte('['), data[0])

	got, err := ReadStubs(path)
	require.NoError(t, err)
	assert.Equal(t, stubs, got)
}

// TestWriteStubs_Empty verifies an empty run writes an empty array
func TestWriteStubs_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, WriteStubs(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

// TestReadStubs_SkipsInvalid verifies entries without title or URL are dropped
func TestReadStubs_SkipsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	doc := `[{"title":"ok","url":"https://a"},{"title":"","url":"https://b"},{"title":"no url"}]`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	got, err := ReadStubs(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://a", got[0].URL)
}

// TestReadStubs_Errors verifies missing and corrupt files are reported
func TestReadStubs_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadStubs(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	_, err = ReadStubs(bad)
	assert.Error(t, err)
}
