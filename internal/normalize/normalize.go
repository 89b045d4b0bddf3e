// Package normalize converts raw positional kline rows into the canonical
// typed table. One routine serves both the fetcher (strict: any unparseable
// cell rejects the whole batch) and the reconciler's reference loader
// (lenient: the source dump is trusted as already clean), so the policy
// difference is an explicit parameter instead of duplicated logic.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"klineRecon/internal/domain"
	"klineRecon/internal/ports"
)

// Strictness selects the post-parse validation policy.
type Strictness int

const (
	// Strict rejects the whole batch when any required cell fails to parse or
	// when two rows share the same open time.
	Strict Strictness = iota
	// Lenient keeps parse-failure sentinels (NaN, nil trades, zero times) in
	// place and keeps the first occurrence of a duplicated open time.
	Lenient
)

// Positional indexes into a wire row, per domain.WireFields order.
const (
	idxOpenTime = iota
	idxOpen
	idxHigh
	idxLow
	idxClose
	idxVolume
	idxCloseTime
	idxQuoteVolume
	idxTrades
	idxTakerBuyVolume
	idxTakerBuyQuoteVolume
	idxIgnore
)

// magnitudeColumns are the numeric columns covered by the strict gate,
// alongside trades.
var magnitudeColumns = []string{
	domain.ColOpen,
	domain.ColHigh,
	domain.ColLow,
	domain.ColClose,
	domain.ColVolume,
	domain.ColQuoteVolume,
	domain.ColTakerBuyVolume,
	domain.ColTakerBuyQuoteVolume,
}

// Table converts raw wire rows into a canonical KlineTable: parses each
// cell, drops the trailing "ignore" field, applies the strictness gate,
// then sorts ascending by open time.
//
// An empty input yields an empty table and no error. A row with the wrong
// arity fails with ErrInvalidArgument regardless of strictness.
func Table(rows []domain.RawKline, mode Strictness) (domain.KlineTable, error) {
	if len(rows) == 0 {
		return domain.KlineTable{}, nil
	}

	table := make(domain.KlineTable, 0, len(rows))
	defects := make(map[string]int)

	for i, row := range rows {
		if len(row) != domain.WireFieldCount {
			return nil, fmt.Errorf("row %d: %w: expected %d fields, got %d",
				i, ports.ErrInvalidArgument, domain.WireFieldCount, len(row))
		}

		rec := domain.KlineRecord{
			OpenTime:  parseMillis(row[idxOpenTime]),
			CloseTime: parseMillis(row[idxCloseTime]),
			Trades:    parseCount(row[idxTrades]),
		}
		magnitudes := []struct {
			col  string
			idx  int
			dest *float64
		}{
			{domain.ColOpen, idxOpen, &rec.Open},
			{domain.ColHigh, idxHigh, &rec.High},
			{domain.ColLow, idxLow, &rec.Low},
			{domain.ColClose, idxClose, &rec.Close},
			{domain.ColVolume, idxVolume, &rec.Volume},
			{domain.ColQuoteVolume, idxQuoteVolume, &rec.QuoteVolume},
			{domain.ColTakerBuyVolume, idxTakerBuyVolume, &rec.TakerBuyVolume},
			{domain.ColTakerBuyQuoteVolume, idxTakerBuyQuoteVolume, &rec.TakerBuyQuoteVolume},
		}
		for _, m := range magnitudes {
			*m.dest = parseFloat(row[m.idx])
			if math.IsNaN(*m.dest) {
				defects[m.col]++
			}
		}
		if rec.Trades == nil {
			defects[domain.ColTrades]++
		}
		// row[idxIgnore] is dropped by construction.

		table = append(table, rec)
	}

	if mode == Strict && len(defects) > 0 {
		return nil, fmt.Errorf("%w: unparseable cells per column: %s",
			ports.ErrDataIntegrity, formatDefects(defects))
	}

	sort.SliceStable(table, func(i, j int) bool {
		return table[i].OpenTime.Before(table[j].OpenTime)
	})

	return dedupe(table, mode)
}

// dedupe enforces key uniqueness on a sorted table. Strict mode treats a
// repeated open time as a data defect; lenient mode keeps the first
// occurrence in input order (the sort above is stable).
func dedupe(table domain.KlineTable, mode Strictness) (domain.KlineTable, error) {
	out := make(domain.KlineTable, 0, len(table))
	dupes := 0
	for _, rec := range table {
		if len(out) > 0 && rec.OpenTime.Equal(out[len(out)-1].OpenTime) {
			dupes++
			continue
		}
		out = append(out, rec)
	}
	if dupes > 0 && mode == Strict {
		return nil, fmt.Errorf("%w: %d duplicate %s value(s)",
			ports.ErrDataIntegrity, dupes, domain.ColOpenTime)
	}
	return out, nil
}

// DefectCounts reports the per-column unparseable-cell counts without
// applying the gate. Used for diagnostics on lenient loads.
func DefectCounts(table domain.KlineTable) map[string]int {
	defects := make(map[string]int)
	for _, rec := range table {
		vals := map[string]float64{
			domain.ColOpen:                rec.Open,
			domain.ColHigh:                rec.High,
			domain.ColLow:                 rec.Low,
			domain.ColClose:               rec.Close,
			domain.ColVolume:              rec.Volume,
			domain.ColQuoteVolume:         rec.QuoteVolume,
			domain.ColTakerBuyVolume:      rec.TakerBuyVolume,
			domain.ColTakerBuyQuoteVolume: rec.TakerBuyQuoteVolume,
		}
		for col, v := range vals {
			if math.IsNaN(v) {
				defects[col]++
			}
		}
		if rec.Trades == nil {
			defects[domain.ColTrades]++
		}
	}
	return defects
}

func formatDefects(defects map[string]int) string {
	// Stable column order for error messages and tests.
	parts := make([]string, 0, len(defects))
	for _, col := range append(append([]string{}, magnitudeColumns...), domain.ColTrades) {
		if n, ok := defects[col]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", col, n))
		}
	}
	return strings.Join(parts, ", ")
}

// parseMillis converts a millisecond-epoch cell to UTC time. The zero time
// is the parse-failure sentinel.
func parseMillis(cell any) time.Time {
	ms, ok := cellInt(cell)
	if !ok {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// parseFloat converts a numeric cell (quoted decimal string or JSON number)
// to float64. NaN is the parse-failure sentinel.
func parseFloat(cell any) float64 {
	switch v := cell.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case float64:
		return v
	default:
		return math.NaN()
	}
}

// parseCount converts a trade-count cell to a nullable integer.
func parseCount(cell any) *int64 {
	n, ok := cellInt(cell)
	if !ok {
		return nil
	}
	return &n
}

func cellInt(cell any) (int64, bool) {
	switch v := cell.(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}
