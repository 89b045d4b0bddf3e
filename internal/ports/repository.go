package ports

import (
	"context"

	"klineRecon/internal/domain"
)

// KlineArchive defines the interface for persisting fetched klines beyond
// the flat CSV export. Archiving is optional; the pipeline runs without an
// archive when none is configured.
type KlineArchive interface {
	// SaveTable upserts all rows of the table under (symbol, interval),
	// keyed by open time. Returns the number of rows written.
	SaveTable(ctx context.Context, symbol, interval string, table domain.KlineTable) (int64, error)
	// FindBySymbolInterval retrieves archived klines for a symbol/interval,
	// ordered ascending by open time, up to limit rows (0 means no limit).
	FindBySymbolInterval(ctx context.Context, symbol, interval string, limit int) (domain.KlineTable, error)
	// Close releases the underlying store.
	Close() error
}
