package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/pevans/newshound/content"
	"github.com/pevans/newshound/discovery"
	"github.com/pevans/newshound/scraper"
	"github.com/pevans/newshound/sources"
)

// cell pads or truncates s to exactly width terminal columns.
func cell(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "..."), width)
}

// printRow prints one table row with the given column widths; the last
// column is not padded.
func printRow(w io.Writer, widths []int, cols ...string) {
	parts := make([]string, len(cols))
	for i, col := range cols {
		if i < len(widths) {
			parts[i] = cell(col, widths[i])
		} else {
			parts[i] = col
		}
	}
	fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, " "), " "))
}

// printSearchSummary prints a per-source table of search outcomes
func printSearchSummary(w io.Writer, result *discovery.SearchResult) {
	widths := []int{16, 6, 7, 11, 6}
	printRow(w, widths, "SOURCE", "TASKS", "FAILED", "NO CONTENT", "STUBS", "LAST ERROR")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for _, o := range result.Outcomes() {
		printRow(w, widths,
			o.Source,
			fmt.Sprint(o.Tasks),
			fmt.Sprint(o.Failed),
			fmt.Sprint(o.NoContent),
			fmt.Sprint(o.Stubs),
			runewidth.Truncate(o.LastError, 40, "..."),
		)
	}
}

// printContentSummary prints the content phase report
func printContentSummary(w io.Writer, report *content.Report, path string) {
	fmt.Fprintf(w, "\nFetched %d of %d articles into %s", report.Written, report.Submitted, path)
	if report.Failed > 0 {
		fmt.Fprintf(w, " (%d failed)", report.Failed)
	}
	if report.Skipped > 0 {
		fmt.Fprintf(w, " (%d skipped, budget exhausted)", report.Skipped)
	}
	fmt.Fprintln(w)
}

// printSourceRules prints the configured sources
func printSourceRules(w io.Writer, rules []*scraper.SourceRule) {
	if len(rules) == 0 {
		fmt.Fprintln(w, "No sources configured.")
		return
	}

	widths := []int{16, 9, 9}
	printRow(w, widths, "NAME", "KIND", "ENABLED", "SEARCH URL")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, r := range rules {
		kind := r.Kind
		if kind == "" {
			kind = scraper.KindRendered
		}
		enabled := "yes"
		if r.Disabled {
			enabled = "no"
		}
		printRow(w, widths, r.Name, kind, enabled, runewidth.Truncate(r.SearchURL, 64, "..."))
	}
}

// printHealth prints the source health ledger
func printHealth(w io.Writer, entries []sources.Health) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	widths := []int{16, 5, 7, 7, 7, 7, 17}
	printRow(w, widths, "SOURCE", "RUNS", "TASKS", "FAILED", "STUBS", "STREAK", "LAST RUN", "LAST ERROR")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, h := range entries {
		lastError := ""
		if h.LastError != nil {
			lastError = runewidth.Truncate(*h.LastError, 30, "...")
		}
		printRow(w, widths,
			h.Source,
			fmt.Sprint(h.Runs),
			fmt.Sprint(h.TasksRun),
			fmt.Sprint(h.TasksFailed),
			fmt.Sprint(h.StubsFound),
			fmt.Sprint(h.FailureStreak),
			h.LastRunAt.Local().Format("2006-01-02 15:04"),
			lastError,
		)
	}
}
