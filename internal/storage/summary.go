package storage

import (
	"fmt"
	"io"
	"strings"

	"github.com/IshaanNene/isoscrape/internal/types"
)

// Summary holds the aggregate counts of a run.
type Summary struct {
	Total   int
	Success int
	Skipped int
	Failed  int

	// FieldCounts maps each column to the number of products where it is non-empty.
	FieldCounts map[string]int
}

// Summarize computes outcome and per-field counts.
func Summarize(results types.Results) Summary {
	s := Summary{
		Total:       results.Total(),
		Success:     len(results.Products),
		Skipped:     len(results.Skipped),
		Failed:      len(results.Failed),
		FieldCounts: make(map[string]int, len(types.ProductColumns)),
	}
	for _, col := range types.ProductColumns {
		s.FieldCounts[col] = 0
	}
	for _, p := range results.Products {
		for _, col := range types.ProductColumns {
			if p.Get(col) != "" {
				s.FieldCounts[col]++
			}
		}
	}
	return s
}

// PrintSummary renders the summary as a plain-text table.
func PrintSummary(out io.Writer, s Summary) {
	line := strings.Repeat("=", 48)
	fmt.Fprintln(out, line)
	fmt.Fprintln(out, "SCRAPE SUMMARY")
	fmt.Fprintln(out, line)
	fmt.Fprintf(out, "%-22s %d\n", "Total URLs:", s.Total)
	fmt.Fprintf(out, "%-22s %d\n", "Successful:", s.Success)
	fmt.Fprintf(out, "%-22s %d\n", "Skipped (not found):", s.Skipped)
	fmt.Fprintf(out, "%-22s %d\n", "Failed:", s.Failed)

	if s.Success == 0 {
		fmt.Fprintln(out, line)
		return
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Data quality:")
	for _, col := range types.ProductColumns {
		if col == types.ColURL {
			continue
		}
		n := s.FieldCounts[col]
		fmt.Fprintf(out, "  %-20s %d/%d (%.1f%%)\n", col+":", n, s.Success, 100*float64(n)/float64(s.Success))
	}
	fmt.Fprintln(out, line)
}
