package ports

import (
	"context"

	"klineRecon/internal/domain"
)

// KlineSource defines the interface for fetching candlestick data from an
// exchange. This abstraction decouples the pipeline from the concrete HTTP
// client so it can be mocked in tests.
type KlineSource interface {
	// FetchRaw performs one request against the kline endpoint and returns the
	// decoded raw rows in wire schema order. No retry is performed; failures
	// surface immediately as ErrTransport / ErrRemote wrappers.
	FetchRaw(ctx context.Context) ([]domain.RawKline, error)

	// FetchTable composes FetchRaw with strict normalization and returns the
	// canonical table, sorted ascending by open time. Failures from either
	// stage propagate unchanged.
	FetchTable(ctx context.Context) (domain.KlineTable, error)
}
