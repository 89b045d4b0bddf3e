package reconcile

import (
	"fmt"
	"strings"
	"time"

	"klineRecon/internal/domain"
)

// Outcome classifies the overall result of a comparison.
type Outcome int

const (
	// OutcomeMatch means every shared row compared equal.
	OutcomeMatch Outcome = iota
	// OutcomeDiverged means at least one shared row differs.
	OutcomeDiverged
	// OutcomeNoOverlap means the two artifacts share no open-time keys.
	// Informational, not an error.
	OutcomeNoOverlap
)

// CellDiff is one differing column within a row, with both rendered values.
type CellDiff struct {
	Column    string
	Reference string
	Canonical string
}

// RowDivergence describes one row whose values differ between the two
// artifacts.
type RowDivergence struct {
	// Key is the shared open time of the row.
	Key time.Time
	// Position is the 1-based ordinal of the row within the intersected,
	// sorted canonical table.
	Position int
	// SourceLine is the 1-based line number of the row in the original
	// canonical CSV file, counting the header as line 1. Zero when the key
	// was absent from the line mapping.
	SourceLine int
	// Cells lists the differing columns in canonical column order.
	Cells []CellDiff
}

// DivergenceReport is the structured result of comparing a reference
// artifact against a canonical export.
type DivergenceReport struct {
	Outcome       Outcome
	ReferenceRows int  // Rows loaded from the reference artifact (after dropLast)
	CanonicalRows int  // Rows loaded from the canonical artifact (after dropLast)
	CommonRows    int  // Size of the open-time intersection
	SizeMismatch  bool // True when the intersection is smaller than either input
	DroppedLast   bool // True when the trailing row of each input was trimmed
	Rows          []RowDivergence
}

// String renders the report as the human-readable text emitted by the
// compare tool: one block per differing row, in table order.
func (r *DivergenceReport) String() string {
	var sb strings.Builder

	if r.Outcome == OutcomeNoOverlap {
		sb.WriteString("No common timestamps to compare.\n")
		return sb.String()
	}

	if r.SizeMismatch {
		fmt.Fprintf(&sb, "Warning: different sizes (reference=%d, canonical=%d). Comparing %d common timestamps.\n",
			r.ReferenceRows, r.CanonicalRows, r.CommonRows)
	}

	if r.Outcome == OutcomeMatch {
		if r.DroppedLast {
			sb.WriteString("OK: data matches (ignoring the last row).\n")
		} else {
			sb.WriteString("OK: data matches.\n")
		}
		return sb.String()
	}

	fmt.Fprintf(&sb, "Differences found in %d rows.\n", len(r.Rows))
	for _, row := range r.Rows {
		line := "n/a"
		if row.SourceLine > 0 {
			line = fmt.Sprintf("%d", row.SourceLine)
		}
		fmt.Fprintf(&sb, "\nRow %d (timestamp %s, csv line %s):\n",
			row.Position, row.Key.UTC().Format(domain.TimeLayout), line)
		for _, cell := range row.Cells {
			fmt.Fprintf(&sb, "  %s: reference=%s canonical=%s\n",
				cell.Column, cell.Reference, cell.Canonical)
		}
	}
	return sb.String()
}
