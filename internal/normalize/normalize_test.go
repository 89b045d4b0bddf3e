package normalize

import (
	"encoding/json"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klineRecon/internal/domain"
	"klineRecon/internal/ports"
)

// rawRow builds a wire row the way the endpoint encodes it: timestamps and
// trade counts as JSON numbers, magnitudes as quoted decimal strings.
func rawRow(openMs int64, open, high, low, closeP, vol string, closeMs int64, quoteVol string, trades int64, takerBuyVol, takerBuyQuoteVol, ignore string) domain.RawKline {
	return domain.RawKline{
		json.Number(strconv.FormatInt(openMs, 10)),
		open, high, low, closeP, vol,
		json.Number(strconv.FormatInt(closeMs, 10)),
		quoteVol,
		json.Number(strconv.FormatInt(trades, 10)),
		takerBuyVol, takerBuyQuoteVol, ignore,
	}
}

func validRow(openMs int64) domain.RawKline {
	return rawRow(openMs, "1", "2", "0.5", "1.5", "100", openMs+60000, "150", 10, "50", "75", "0")
}

func TestTable_EmptyInput(t *testing.T) {
	table, err := Table(nil, Strict)
	require.NoError(t, err)
	assert.Empty(t, table)

	table, err = Table([]domain.RawKline{}, Lenient)
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestTable_ParsesRow(t *testing.T) {
	table, err := Table([]domain.RawKline{validRow(0)}, Strict)
	require.NoError(t, err)
	require.Len(t, table, 1)

	rec := table[0]
	assert.Equal(t, time.UnixMilli(0).UTC(), rec.OpenTime)
	assert.Equal(t, time.UnixMilli(60000).UTC(), rec.CloseTime)
	assert.Equal(t, 1.0, rec.Open)
	assert.Equal(t, 2.0, rec.High)
	assert.Equal(t, 0.5, rec.Low)
	assert.Equal(t, 1.5, rec.Close)
	assert.Equal(t, 100.0, rec.Volume)
	assert.Equal(t, 150.0, rec.QuoteVolume)
	require.NotNil(t, rec.Trades)
	assert.Equal(t, int64(10), *rec.Trades)
	assert.Equal(t, 50.0, rec.TakerBuyVolume)
	assert.Equal(t, 75.0, rec.TakerBuyQuoteVolume)
}

func TestTable_WrongArity(t *testing.T) {
	short := domain.RawKline{json.Number("0"), "1", "2"}
	_, err := Table([]domain.RawKline{short}, Strict)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrInvalidArgument)

	// Arity is malformed shape, not a data defect: lenient rejects it too.
	_, err = Table([]domain.RawKline{short}, Lenient)
	assert.ErrorIs(t, err, ports.ErrInvalidArgument)
}

func TestTable_StrictGateNamesColumnsAndCounts(t *testing.T) {
	rows := []domain.RawKline{
		rawRow(0, "1", "2", "0.5", "oops", "100", 60000, "150", 10, "50", "75", "0"),
		rawRow(60000, "1", "2", "0.5", "1.5", "bad", 120000, "150", 10, "50", "75", "0"),
		rawRow(120000, "1", "2", "0.5", "1.5", "also-bad", 180000, "150", 10, "50", "75", "0"),
	}

	_, err := Table(rows, Strict)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrDataIntegrity)
	assert.Contains(t, err.Error(), "close=1")
	assert.Contains(t, err.Error(), "volume=2")
	assert.NotContains(t, err.Error(), "open=")
}

func TestTable_StrictGateOnTrades(t *testing.T) {
	row := validRow(0)
	row[8] = "not-a-count"
	_, err := Table([]domain.RawKline{row}, Strict)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrDataIntegrity)
	assert.Contains(t, err.Error(), "trades=1")
}

func TestTable_LenientKeepsSentinels(t *testing.T) {
	rows := []domain.RawKline{
		rawRow(0, "1", "2", "0.5", "oops", "100", 60000, "150", 10, "50", "75", "0"),
	}
	table, err := Table(rows, Lenient)
	require.NoError(t, err)
	require.Len(t, table, 1)

	defects := DefectCounts(table)
	assert.Equal(t, map[string]int{domain.ColClose: 1}, defects)
}

func TestTable_SortOrderIndependence(t *testing.T) {
	rows := []domain.RawKline{validRow(120000), validRow(0), validRow(60000), validRow(180000)}

	want, err := Table(rows, Strict)
	require.NoError(t, err)
	require.Len(t, want, 4)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]domain.RawKline, len(rows))
		copy(shuffled, rows)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := Table(shuffled, Strict)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	for i := 1; i < len(want); i++ {
		assert.True(t, want[i-1].OpenTime.Before(want[i].OpenTime),
			"table must be sorted ascending by open time")
	}
}

func TestTable_DuplicateOpenTime(t *testing.T) {
	rows := []domain.RawKline{validRow(0), validRow(0), validRow(60000)}

	_, err := Table(rows, Strict)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrDataIntegrity)
	assert.Contains(t, err.Error(), "duplicate")

	table, err := Table(rows, Lenient)
	require.NoError(t, err)
	assert.Len(t, table, 2)
}

func TestTable_DropsIgnoreField(t *testing.T) {
	// The twelfth cell can hold anything; it never influences the result.
	a := validRow(0)
	b := validRow(0)
	b[11] = "something-else"

	ta, err := Table([]domain.RawKline{a}, Strict)
	require.NoError(t, err)
	tb, err := Table([]domain.RawKline{b}, Strict)
	require.NoError(t, err)
	assert.Equal(t, ta, tb)
}
