package sources

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create a test health store
func createTestHealthStore(t *testing.T) *HealthStore {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")
	store, err := NewHealthStore(dbPath)
	require.NoError(t, err, "should create health store")
	t.Cleanup(func() { store.Close() })
	return store
}

// TestNewHealthStore_InitializesSchema verifies an empty ledger is queryable
func TestNewHealthStore_InitializesSchema(t *testing.T) {
	store := createTestHealthStore(t)

	entries, err := store.List(Filter{})
	require.NoError(t, err, "source_health table should exist")
	assert.Empty(t, entries)
}

// TestRecordRun_Accumulates verifies counters add up across runs
func TestRecordRun_Accumulates(t *testing.T) {
	store := createTestHealthStore(t)
	first := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	require.NoError(t, store.RecordRun("run-1", first, []Outcome{
		{Source: "digi24", Tasks: 3, Failed: 1, NoContent: 1, Stubs: 7, LastError: "navigation failed"},
	}))
	require.NoError(t, store.RecordRun("run-2", second, []Outcome{
		{Source: "digi24", Tasks: 3, Stubs: 2},
	}))

	h, err := store.Get("digi24")
	require.NoError(t, err)
	assert.Equal(t, 2, h.Runs)
	assert.Equal(t, 6, h.TasksRun)
	assert.Equal(t, 1, h.TasksFailed)
	assert.Equal(t, 1, h.NoContent)
	assert.Equal(t, 9, h.StubsFound)
	assert.Equal(t, 0, h.FailureStreak)
	assert.Equal(t, "run-2", h.LastRunID)
	assert.True(t, second.Equal(h.LastRunAt))
	require.NotNil(t, h.LastError, "last error should survive a clean run")
	assert.Equal(t, "navigation failed", *h.LastError)
	require.NotNil(t, h.LastSuccessAt)
	assert.True(t, second.Equal(*h.LastSuccessAt))
}

// TestRecordRun_FailureStreak verifies the streak grows and resets
func TestRecordRun_FailureStreak(t *testing.T) {
	store := createTestHealthStore(t)
	at := time.Now()
	failing := Outcome{Source: "antena3", Tasks: 2, Failed: 2, LastError: "timeout"}

	require.NoError(t, store.RecordRun("r1", at, []Outcome{failing}))
	require.NoError(t, store.RecordRun("r2", at, []Outcome{failing}))

	h, err := store.Get("antena3")
	require.NoError(t, err)
	assert.Equal(t, 2, h.FailureStreak)
	assert.Nil(t, h.LastSuccessAt)

	failingOnly, err := store.List(Filter{FailingOnly: true})
	require.NoError(t, err)
	require.Len(t, failingOnly, 1)

	require.NoError(t, store.RecordRun("r3", at, []Outcome{{Source: "antena3", Tasks: 2, Failed: 1}}))
	h, err = store.Get("antena3")
	require.NoError(t, err)
	assert.Equal(t, 0, h.FailureStreak)
}

// TestGet_NotFound verifies unknown sources
func TestGet_NotFound(t *testing.T) {
	store := createTestHealthStore(t)

	_, err := store.Get("nope")
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

// TestList_OrderAndLimit verifies entries are sorted by name
func TestList_OrderAndLimit(t *testing.T) {
	store := createTestHealthStore(t)
	require.NoError(t, store.RecordRun("r1", time.Now(), []Outcome{
		{Source: "zf", Tasks: 1},
		{Source: "digi24", Tasks: 1},
		{Source: "mediafax", Tasks: 1},
	}))

	all, err := store.List(Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "digi24", all[0].Source)
	assert.Equal(t, "zf", all[2].Source)

	limited, err := store.List(Filter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

// TestOutcome_AllFailed verifies the all-failed predicate
func TestOutcome_AllFailed(t *testing.T) {
	assert.True(t, Outcome{Tasks: 2, Failed: 2}.AllFailed())
	assert.False(t, Outcome{Tasks: 2, Failed: 1}.AllFailed())
	assert.False(t, Outcome{}.AllFailed())
}
