package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klineRecon/internal/domain"
	"klineRecon/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestArchive creates a temporary database for testing
func setupTestArchive(t *testing.T) *Archive {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	archive, err := NewArchive(Config{
		DBPath: dbPath,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { archive.Close() })
	return archive
}

func sampleTable(n int) domain.KlineTable {
	table := make(domain.KlineTable, 0, n)
	for i := 0; i < n; i++ {
		trades := int64(100 + i)
		open := time.UnixMilli(int64(i) * 60000).UTC()
		table = append(table, domain.KlineRecord{
			OpenTime:            open,
			Open:                1.0 + float64(i),
			High:                2.0 + float64(i),
			Low:                 0.5 + float64(i),
			Close:               1.5 + float64(i),
			Volume:              100,
			CloseTime:           open.Add(time.Minute - time.Millisecond),
			QuoteVolume:         150,
			Trades:              &trades,
			TakerBuyVolume:      50,
			TakerBuyQuoteVolume: 75,
		})
	}
	return table
}

func TestArchive_SaveAndFind(t *testing.T) {
	archive := setupTestArchive(t)
	ctx := context.Background()

	written, err := archive.SaveTable(ctx, "BNBUSDT", "1m", sampleTable(3))
	require.NoError(t, err)
	assert.Equal(t, int64(3), written)

	got, err := archive.FindBySymbolInterval(ctx, "BNBUSDT", "1m", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, sampleTable(3), got)

	// Ascending by open time.
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].OpenTime.Before(got[i].OpenTime))
	}
}

func TestArchive_SaveIsIdempotent(t *testing.T) {
	archive := setupTestArchive(t)
	ctx := context.Background()

	_, err := archive.SaveTable(ctx, "BNBUSDT", "1m", sampleTable(3))
	require.NoError(t, err)
	// Re-fetch of the same window overwrites instead of duplicating.
	_, err = archive.SaveTable(ctx, "BNBUSDT", "1m", sampleTable(3))
	require.NoError(t, err)

	got, err := archive.FindBySymbolInterval(ctx, "BNBUSDT", "1m", 0)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestArchive_FindLimit(t *testing.T) {
	archive := setupTestArchive(t)
	ctx := context.Background()

	_, err := archive.SaveTable(ctx, "BNBUSDT", "1m", sampleTable(5))
	require.NoError(t, err)

	got, err := archive.FindBySymbolInterval(ctx, "BNBUSDT", "1m", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestArchive_KeyedBySymbolAndInterval(t *testing.T) {
	archive := setupTestArchive(t)
	ctx := context.Background()

	_, err := archive.SaveTable(ctx, "BNBUSDT", "1m", sampleTable(2))
	require.NoError(t, err)
	_, err = archive.SaveTable(ctx, "ETHUSDT", "1m", sampleTable(4))
	require.NoError(t, err)

	got, err := archive.FindBySymbolInterval(ctx, "ETHUSDT", "1m", 0)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	got, err = archive.FindBySymbolInterval(ctx, "BNBUSDT", "5m", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestArchive_NullTrades(t *testing.T) {
	archive := setupTestArchive(t)
	ctx := context.Background()

	table := sampleTable(1)
	table[0].Trades = nil
	_, err := archive.SaveTable(ctx, "BNBUSDT", "1m", table)
	require.NoError(t, err)

	got, err := archive.FindBySymbolInterval(ctx, "BNBUSDT", "1m", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Trades)
}

func TestArchive_EmptyTableAndValidation(t *testing.T) {
	archive := setupTestArchive(t)
	ctx := context.Background()

	written, err := archive.SaveTable(ctx, "BNBUSDT", "1m", nil)
	require.NoError(t, err)
	assert.Zero(t, written)

	_, err = archive.SaveTable(ctx, "", "1m", sampleTable(1))
	assert.ErrorIs(t, err, ports.ErrInvalidArgument)
}
