package domain

import "time"

// KlineRecord is one normalized candlestick interval in the canonical schema.
// The raw wire payload's twelfth ("ignore") field is dropped during
// normalization and never appears here.
type KlineRecord struct {
	OpenTime            time.Time // Start of the interval (ms epoch on the wire)
	Open                float64   // Opening price
	High                float64   // Highest price
	Low                 float64   // Lowest price
	Close               float64   // Closing price
	Volume              float64   // Base asset volume
	CloseTime           time.Time // End of the interval
	QuoteVolume         float64   // Quote asset volume
	Trades              *int64    // Number of trades; nil when absent/unparseable
	TakerBuyVolume      float64   // Taker buy base asset volume
	TakerBuyQuoteVolume float64   // Taker buy quote asset volume
}

// KlineTable is an ordered sequence of KlineRecord, sorted ascending by
// OpenTime with unique keys after normalization.
type KlineTable []KlineRecord

// Keys returns the open times of all rows, in table order, as millisecond
// epochs.
func (t KlineTable) Keys() []int64 {
	keys := make([]int64, len(t))
	for i, rec := range t {
		keys[i] = rec.OpenTime.UnixMilli()
	}
	return keys
}

// ByKey builds a lookup from open time (ms epoch) to record.
func (t KlineTable) ByKey() map[int64]KlineRecord {
	m := make(map[int64]KlineRecord, len(t))
	for _, rec := range t {
		m[rec.OpenTime.UnixMilli()] = rec
	}
	return m
}
