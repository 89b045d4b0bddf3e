package reconcile

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"klineRecon/internal/domain"
	"klineRecon/internal/normalize"
	"klineRecon/internal/ports"
)

// Column indexes into a canonical CSV row, per domain.CanonicalColumns.
const (
	canIdxOpenTime = iota
	canIdxOpen
	canIdxHigh
	canIdxLow
	canIdxClose
	canIdxVolume
	canIdxCloseTime
	canIdxQuoteVolume
	canIdxTrades
	canIdxTakerBuyVolume
	canIdxTakerBuyQuoteVolume
)

// LoadReference reads a reference artifact: a JSON array of 12-field wire
// rows. It applies the same parsing rules as the fetcher's normalization
// but in lenient mode; the reference source is trusted as already clean, so
// no integrity gate is applied. With dropLast, the final row of a non-empty
// table is discarded (compensates for a trailing partial candle in the
// reference source).
func LoadReference(path string, dropLast bool) (domain.KlineTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading reference artifact %q: %w", ports.ErrInput, path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rows []domain.RawKline
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: reference artifact %q is not a JSON array of rows: %w",
			ports.ErrInput, path, err)
	}
	for i, row := range rows {
		if len(row) != domain.WireFieldCount {
			return nil, fmt.Errorf("%w: reference artifact %q row %d has %d fields, want %d",
				ports.ErrSchema, path, i, len(row), domain.WireFieldCount)
		}
	}

	table, err := normalize.Table(rows, normalize.Lenient)
	if err != nil {
		return nil, err
	}
	return trimLast(table, dropLast), nil
}

// LoadCanonical reads a canonical artifact: a CSV file with a header row
// naming the 11 canonical columns and calendar-formatted timestamps. With
// dropLast, the final row of the file is discarded before sorting; the
// returned table is sorted ascending by open time regardless of file order.
func LoadCanonical(path string, dropLast bool) (domain.KlineTable, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: canonical artifact %q has no header row", ports.ErrSchema, path)
	}

	if err := checkHeader(path, records[0]); err != nil {
		return nil, err
	}

	table := make(domain.KlineTable, 0, len(records)-1)
	for i, row := range records[1:] {
		rec, err := parseCanonicalRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: canonical artifact %q line %d: %w", ports.ErrInput, path, i+2, err)
		}
		table = append(table, rec)
	}

	// Trim in file order first: the trailing-partial-candle artifact is the
	// last line of the file, not the latest timestamp.
	table = trimLast(table, dropLast)
	sort.SliceStable(table, func(i, j int) bool {
		return table[i].OpenTime.Before(table[j].OpenTime)
	})
	return table, nil
}

// BuildLineMap re-reads the canonical artifact's raw rows and maps each
// row's open time (ms epoch) to its 1-based line number in the file, with
// the header counted as line 1. Rows whose timestamp cell does not parse
// are skipped; the map is diagnostic, not load-bearing.
func BuildLineMap(path string) (map[int64]int, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: canonical artifact %q has no header row", ports.ErrSchema, path)
	}

	lineMap := make(map[int64]int, len(records)-1)
	for i, row := range records[1:] {
		if len(row) == 0 {
			continue
		}
		ts, err := parseCalendarTime(row[canIdxOpenTime])
		if err != nil {
			continue
		}
		lineMap[ts.UnixMilli()] = i + 2
	}
	return lineMap, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading canonical artifact %q: %w", ports.ErrInput, path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(domain.CanonicalColumns)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: canonical artifact %q is not well-formed CSV: %w",
			ports.ErrSchema, path, err)
	}
	return records, nil
}

func checkHeader(path string, header []string) error {
	if len(header) != len(domain.CanonicalColumns) {
		return fmt.Errorf("%w: canonical artifact %q header has %d columns, want %d",
			ports.ErrSchema, path, len(header), len(domain.CanonicalColumns))
	}
	for i, want := range domain.CanonicalColumns {
		if strings.TrimSpace(header[i]) != want {
			return fmt.Errorf("%w: canonical artifact %q header column %d is %q, want %q",
				ports.ErrSchema, path, i+1, header[i], want)
		}
	}
	return nil
}

func parseCanonicalRow(row []string) (domain.KlineRecord, error) {
	var rec domain.KlineRecord
	var err error

	if rec.OpenTime, err = parseCalendarTime(row[canIdxOpenTime]); err != nil {
		return rec, fmt.Errorf("column %s: %w", domain.ColOpenTime, err)
	}
	if rec.CloseTime, err = parseCalendarTime(row[canIdxCloseTime]); err != nil {
		return rec, fmt.Errorf("column %s: %w", domain.ColCloseTime, err)
	}

	magnitudes := []struct {
		col  string
		idx  int
		dest *float64
	}{
		{domain.ColOpen, canIdxOpen, &rec.Open},
		{domain.ColHigh, canIdxHigh, &rec.High},
		{domain.ColLow, canIdxLow, &rec.Low},
		{domain.ColClose, canIdxClose, &rec.Close},
		{domain.ColVolume, canIdxVolume, &rec.Volume},
		{domain.ColQuoteVolume, canIdxQuoteVolume, &rec.QuoteVolume},
		{domain.ColTakerBuyVolume, canIdxTakerBuyVolume, &rec.TakerBuyVolume},
		{domain.ColTakerBuyQuoteVolume, canIdxTakerBuyQuoteVolume, &rec.TakerBuyQuoteVolume},
	}
	for _, m := range magnitudes {
		*m.dest, err = strconv.ParseFloat(strings.TrimSpace(row[m.idx]), 64)
		if err != nil {
			return rec, fmt.Errorf("column %s: %w", m.col, err)
		}
	}

	if cell := strings.TrimSpace(row[canIdxTrades]); cell != "" {
		n, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return rec, fmt.Errorf("column %s: %w", domain.ColTrades, err)
		}
		rec.Trades = &n
	}
	return rec, nil
}

// parseCalendarTime parses a canonical timestamp cell. The primary layout
// is the export's "2006-01-02 15:04:05"; RFC3339 is accepted as a fallback
// for artifacts produced by other tooling.
func parseCalendarTime(cell string) (time.Time, error) {
	cell = strings.TrimSpace(cell)
	if t, err := time.ParseInLocation(domain.TimeLayout, cell, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, cell)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", cell)
	}
	return t.UTC(), nil
}

func trimLast(table domain.KlineTable, dropLast bool) domain.KlineTable {
	if dropLast && len(table) > 0 {
		return table[:len(table)-1]
	}
	return table
}
