package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: a normalizer pinned to a fixed instant
func fixedNormalizer(now time.Time) *DateNormalizer {
	n := NewDateNormalizer(nil)
	n.Now = func() time.Time { return now }
	return n
}

// TestNormalize_MinutesAgo verifies the result is within a second of now-5m
func TestNormalize_MinutesAgo(t *testing.T) {
	n := NewDateNormalizer(nil)

	got := n.Normalize("acum 5 minute", "digi24")
	parsed, err := time.Parse(time.RFC3339, got)
	require.NoError(t, err)

	want := time.Now().Add(-5 * time.Minute)
	assert.WithinDuration(t, want, parsed, time.Second)
}

// TestNormalize_RelativeUnits verifies each recognized unit
func TestNormalize_RelativeUnits(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	n := fixedNormalizer(now)

	tests := []struct {
		raw  string
		want time.Time
	}{
		{"acum 5 minute", now.Add(-5 * time.Minute)},
		{"Acum 1 minut", now.Add(-time.Minute)},
		{"2 ore în urmă", now.Add(-2 * time.Hour)},
		{"acum 3 ore", now.Add(-3 * time.Hour)},
		{"acum 1 oră", now.Add(-time.Hour)},
		{"ora 4", now.Add(-4 * time.Hour)},
		{"acum 4 zile", now.Add(-4 * 24 * time.Hour)},
		{"1 zi in urma", now.Add(-24 * time.Hour)},
		{"acum 12 minute si 30 secunde", now.Add(-12 * time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want.Format(time.RFC3339), n.Normalize(tt.raw, "test"))
		})
	}
}

// TestNormalize_AbsolutePassthrough verifies unrecognized text is unchanged
func TestNormalize_AbsolutePassthrough(t *testing.T) {
	n := NewDateNormalizer(nil)

	for _, raw := range []string{"12 ianuarie 2024", "10.03.2024 14:30", "2024-01-12T10:00:00Z", ""} {
		assert.Equal(t, raw, n.Normalize(raw, "test"))
	}
}

// TestNormalize_NoDigits verifies a relative phrase without a number is empty
func TestNormalize_NoDigits(t *testing.T) {
	n := NewDateNormalizer(nil)

	assert.Equal(t, "", n.Normalize("acum câteva minute", "test"))
	assert.Equal(t, "", n.Normalize("azi", "test"))
}

// TestNormalize_OutOfRange verifies offsets too large for a duration are empty
func TestNormalize_OutOfRange(t *testing.T) {
	n := fixedNormalizer(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))

	assert.Equal(t, "", n.Normalize("acum 999999999 zile", "test"))
	assert.Equal(t, "", n.Normalize("acum 99999999999999999999 minute", "test"))
	assert.Equal(t, "2021-03-11T12:00:00Z", n.Normalize("acum 1095 zile", "test"))
}

// TestNormalize_MinutesBeforeHours verifies marker precedence
func TestNormalize_MinutesBeforeHours(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	n := fixedNormalizer(now)

	// "minute" is checked before the hour markers
	assert.Equal(t, now.Add(-7*time.Minute).Format(time.RFC3339), n.Normalize("7 minute, ora exacta", "test"))
}
