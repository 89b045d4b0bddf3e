package domain

// The exchange's kline endpoint returns rows as fixed-arity positional
// arrays. Both the 12-field wire layout and the 11-column canonical layout
// are pinned here by name so that any drift in field order is caught by
// validation instead of silently misaligning columns.

// WireSchemaVersion identifies the positional layout below. Bump it if the
// endpoint ever changes its field order.
const WireSchemaVersion = 1

// Wire schema field names, in endpoint order.
const (
	ColOpenTime            = "open_time"
	ColOpen                = "open"
	ColHigh                = "high"
	ColLow                 = "low"
	ColClose               = "close"
	ColVolume              = "volume"
	ColCloseTime           = "close_time"
	ColQuoteVolume         = "quote_volume"
	ColTrades              = "trades"
	ColTakerBuyVolume      = "taker_buy_volume"
	ColTakerBuyQuoteVolume = "taker_buy_quote_volume"
	ColIgnore              = "ignore"
)

// WireFields is the positional field order of one raw kline row as returned
// by the endpoint.
var WireFields = []string{
	ColOpenTime,
	ColOpen,
	ColHigh,
	ColLow,
	ColClose,
	ColVolume,
	ColCloseTime,
	ColQuoteVolume,
	ColTrades,
	ColTakerBuyVolume,
	ColTakerBuyQuoteVolume,
	ColIgnore,
}

// WireFieldCount is the required arity of a raw kline row.
const WireFieldCount = 12

// CanonicalColumns is the exported/compared column set: the wire schema in
// the same order with the trailing "ignore" field dropped.
var CanonicalColumns = []string{
	ColOpenTime,
	ColOpen,
	ColHigh,
	ColLow,
	ColClose,
	ColVolume,
	ColCloseTime,
	ColQuoteVolume,
	ColTrades,
	ColTakerBuyVolume,
	ColTakerBuyQuoteVolume,
}

// TimeLayout is the calendar rendering of timestamp columns in canonical
// CSV artifacts. Timestamps are always UTC.
const TimeLayout = "2006-01-02 15:04:05"

// RawKline is one undecoded row from the wire: WireFieldCount positional
// cells. Cells are json.Number or string depending on the field (the
// endpoint sends timestamps and trade counts as numbers, magnitudes as
// quoted decimal strings).
type RawKline []any
