// Package reconcile loads two independently produced kline artifacts (a
// raw JSON reference dump and a canonical CSV export), aligns them on open
// time, and reports any row-level divergence with source-line traceability.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"klineRecon/internal/domain"
	"klineRecon/internal/export"
	"klineRecon/internal/ports"
)

// Comparer performs artifact reconciliation. Purely local and in-memory:
// both artifacts are read fully before any comparison begins.
type Comparer struct {
	logger ports.Logger
}

// NewComparer creates a comparer with the given logging sink.
func NewComparer(logger ports.Logger) (*Comparer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for comparer")
	}
	return &Comparer{logger: logger}, nil
}

// Compare reconciles the reference artifact at referencePath against the
// canonical artifact at canonicalPath. With dropLast, the trailing row of
// each input is trimmed before comparison. Any load failure aborts the
// whole comparison; size mismatches and empty intersections are outcomes,
// not errors.
func (c *Comparer) Compare(ctx context.Context, referencePath, canonicalPath string, dropLast bool) (*DivergenceReport, error) {
	// The line map is built from an independent raw read so that dropLast and
	// normalization cannot shift the reported file positions.
	lineMap, err := BuildLineMap(canonicalPath)
	if err != nil {
		return nil, err
	}

	reference, err := LoadReference(referencePath, dropLast)
	if err != nil {
		return nil, err
	}
	canonical, err := LoadCanonical(canonicalPath, dropLast)
	if err != nil {
		return nil, err
	}

	report := &DivergenceReport{
		ReferenceRows: len(reference),
		CanonicalRows: len(canonical),
		DroppedLast:   dropLast,
	}

	refByKey := reference.ByKey()
	common := make(domain.KlineTable, 0, len(canonical))
	for _, rec := range canonical {
		if _, ok := refByKey[rec.OpenTime.UnixMilli()]; ok {
			common = append(common, rec)
		}
	}
	report.CommonRows = len(common)

	if len(common) == 0 {
		c.logger.Info(ctx, "No common timestamps to compare",
			map[string]interface{}{"reference": referencePath, "canonical": canonicalPath})
		report.Outcome = OutcomeNoOverlap
		return report, nil
	}

	if len(common) != len(reference) || len(common) != len(canonical) {
		report.SizeMismatch = true
		c.logger.Warn(ctx, "Artifact sizes differ, comparing common timestamps only",
			map[string]interface{}{
				"referenceRows": len(reference),
				"canonicalRows": len(canonical),
				"commonRows":    len(common),
			})
	}

	for pos, canRec := range common {
		key := canRec.OpenTime.UnixMilli()
		refRec := refByKey[key]
		cells := diffRecords(refRec, canRec)
		if len(cells) == 0 {
			continue
		}
		line := lineMap[key] // zero when absent, rendered "n/a"
		report.Rows = append(report.Rows, RowDivergence{
			Key:        canRec.OpenTime,
			Position:   pos + 1,
			SourceLine: line,
			Cells:      cells,
		})
	}

	if len(report.Rows) == 0 {
		report.Outcome = OutcomeMatch
		c.logger.Info(ctx, "Artifacts match", map[string]interface{}{"rows": len(common)})
	} else {
		report.Outcome = OutcomeDiverged
		c.logger.Warn(ctx, "Artifacts diverge",
			map[string]interface{}{"differingRows": len(report.Rows), "comparedRows": len(common)})
	}
	return report, nil
}

// diffRecords compares two records across the shared canonical columns and
// returns the differing cells in canonical column order. Magnitudes compare
// by exact value: both sides parse the same decimal text, so equal text
// yields equal floats.
func diffRecords(ref, can domain.KlineRecord) []CellDiff {
	var cells []CellDiff

	addFloat := func(col string, r, c float64) {
		if r != c {
			cells = append(cells, CellDiff{
				Column:    col,
				Reference: export.FormatMagnitude(r),
				Canonical: export.FormatMagnitude(c),
			})
		}
	}

	if !ref.OpenTime.Equal(can.OpenTime) {
		cells = append(cells, CellDiff{
			Column:    domain.ColOpenTime,
			Reference: formatTime(ref.OpenTime),
			Canonical: formatTime(can.OpenTime),
		})
	}
	addFloat(domain.ColOpen, ref.Open, can.Open)
	addFloat(domain.ColHigh, ref.High, can.High)
	addFloat(domain.ColLow, ref.Low, can.Low)
	addFloat(domain.ColClose, ref.Close, can.Close)
	addFloat(domain.ColVolume, ref.Volume, can.Volume)
	if !ref.CloseTime.Equal(can.CloseTime) {
		cells = append(cells, CellDiff{
			Column:    domain.ColCloseTime,
			Reference: formatTime(ref.CloseTime),
			Canonical: formatTime(can.CloseTime),
		})
	}
	addFloat(domain.ColQuoteVolume, ref.QuoteVolume, can.QuoteVolume)
	if !countsEqual(ref.Trades, can.Trades) {
		cells = append(cells, CellDiff{
			Column:    domain.ColTrades,
			Reference: export.FormatCount(ref.Trades),
			Canonical: export.FormatCount(can.Trades),
		})
	}
	addFloat(domain.ColTakerBuyVolume, ref.TakerBuyVolume, can.TakerBuyVolume)
	addFloat(domain.ColTakerBuyQuoteVolume, ref.TakerBuyQuoteVolume, can.TakerBuyQuoteVolume)

	return cells
}

func countsEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(domain.TimeLayout)
}
