// Package export writes a normalized kline table to a CSV artifact in the
// canonical 11-column schema.
package export

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"klineRecon/internal/domain"
)

// WriteTableCSV writes the table to filename with a header row and one row
// per kline, in table order (ascending open time). Parent directories are
// created as needed. No row-index column is written.
func WriteTableCSV(table domain.KlineTable, filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating export directory %q: %w", dir, err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating export file %q: %w", filename, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(domain.CanonicalColumns); err != nil {
		return err
	}

	for _, rec := range table {
		if err := writer.Write(recordToRow(rec)); err != nil {
			return err
		}
	}
	if err := writer.Error(); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// recordToRow renders one record in canonical column order.
func recordToRow(rec domain.KlineRecord) []string {
	return []string{
		rec.OpenTime.UTC().Format(domain.TimeLayout),
		FormatMagnitude(rec.Open),
		FormatMagnitude(rec.High),
		FormatMagnitude(rec.Low),
		FormatMagnitude(rec.Close),
		FormatMagnitude(rec.Volume),
		rec.CloseTime.UTC().Format(domain.TimeLayout),
		FormatMagnitude(rec.QuoteVolume),
		FormatCount(rec.Trades),
		FormatMagnitude(rec.TakerBuyVolume),
		FormatMagnitude(rec.TakerBuyQuoteVolume),
	}
}

// FormatMagnitude renders a numeric cell with the shortest exact decimal
// representation. NaN (the lenient parse-failure sentinel) renders as an
// empty cell.
func FormatMagnitude(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatCount renders a nullable trade count; nil renders as an empty cell.
func FormatCount(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}
