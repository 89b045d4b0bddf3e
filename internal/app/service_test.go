package app

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klineRecon/internal/domain"
	"klineRecon/internal/ports"
)

// Mock implementations
type mockLogger struct {
	infoMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.infoMsgs = append(m.infoMsgs, msg)
}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockSource struct {
	table domain.KlineTable
	err   error
}

func (m *mockSource) FetchRaw(ctx context.Context) ([]domain.RawKline, error) {
	return nil, errors.New("not used in these tests")
}

func (m *mockSource) FetchTable(ctx context.Context) (domain.KlineTable, error) {
	return m.table, m.err
}

type mockArchive struct {
	savedSymbol   string
	savedInterval string
	savedRows     int
	err           error
}

func (m *mockArchive) SaveTable(ctx context.Context, symbol, interval string, table domain.KlineTable) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.savedSymbol = symbol
	m.savedInterval = interval
	m.savedRows = len(table)
	return int64(len(table)), nil
}

func (m *mockArchive) FindBySymbolInterval(ctx context.Context, symbol, interval string, limit int) (domain.KlineTable, error) {
	return nil, nil
}

func (m *mockArchive) Close() error { return nil }

func testTable() domain.KlineTable {
	trades := int64(10)
	return domain.KlineTable{
		{
			OpenTime:            time.UnixMilli(0).UTC(),
			Open:                1,
			High:                2,
			Low:                 0.5,
			Close:               1.5,
			Volume:              100,
			CloseTime:           time.UnixMilli(60000).UTC(),
			QuoteVolume:         150,
			Trades:              &trades,
			TakerBuyVolume:      50,
			TakerBuyQuoteVolume: 75,
		},
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{Source: &mockSource{}})
	require.Error(t, err, "logger is required")

	_, err = New(Config{Logger: &mockLogger{}})
	require.Error(t, err, "source is required")
}

func TestRun_FetchExportArchive(t *testing.T) {
	out := filepath.Join(t.TempDir(), "candles.csv")
	archive := &mockArchive{}

	svc, err := New(Config{
		Source:     &mockSource{table: testTable()},
		Archive:    archive,
		Logger:     &mockLogger{},
		Symbol:     "BNBUSDT",
		Interval:   "4h",
		OutputPath: out,
	})
	require.NoError(t, err)

	table, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, table, 1)

	// Export happened with header + one data row.
	file, err := os.Open(out)
	require.NoError(t, err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 2)

	// Archive received the table under the configured key.
	assert.Equal(t, "BNBUSDT", archive.savedSymbol)
	assert.Equal(t, "4h", archive.savedInterval)
	assert.Equal(t, 1, archive.savedRows)
}

func TestRun_NoArchiveNoExport(t *testing.T) {
	svc, err := New(Config{
		Source: &mockSource{table: testTable()},
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	table, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, table, 1)
}

func TestRun_FetchFailurePropagatesUnchanged(t *testing.T) {
	fetchErr := ports.ErrTransport
	svc, err := New(Config{
		Source: &mockSource{err: fetchErr},
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	_, err = svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrTransport)
}

func TestRun_ArchiveFailureSurfaces(t *testing.T) {
	svc, err := New(Config{
		Source:  &mockSource{table: testTable()},
		Archive: &mockArchive{err: ports.ErrArchive},
		Logger:  &mockLogger{},
	})
	require.NoError(t, err)

	_, err = svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrArchive)
}
