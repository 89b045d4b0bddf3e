// Package app sequences the fetch → normalize → export pipeline with
// injected collaborators. It owns no business logic of its own; failures
// from any stage propagate unchanged to the entry point, which is the only
// place that converts them into a process exit.
package app

import (
	"context"
	"fmt"

	"klineRecon/internal/domain"
	"klineRecon/internal/export"
	"klineRecon/internal/ports"
)

// Service runs one fetch/export invocation. Stateless across runs.
type Service struct {
	source   ports.KlineSource
	archive  ports.KlineArchive // optional
	logger   ports.Logger
	symbol   string
	interval string
	output   string
}

// Config holds the dependencies and parameters for one pipeline run.
type Config struct {
	Source   ports.KlineSource
	Archive  ports.KlineArchive // nil disables archiving
	Logger   ports.Logger
	Symbol   string
	Interval string
	// OutputPath is the CSV export destination; empty disables the export.
	OutputPath string
}

// New validates dependencies and creates the pipeline service.
func New(cfg Config) (*Service, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for pipeline service")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("kline source is required for pipeline service")
	}
	return &Service{
		source:   cfg.Source,
		archive:  cfg.Archive,
		logger:   cfg.Logger,
		symbol:   cfg.Symbol,
		interval: cfg.Interval,
		output:   cfg.OutputPath,
	}, nil
}

// Run executes one fetch → normalize → export (→ archive) sequence and
// returns the normalized table.
func (s *Service) Run(ctx context.Context) (domain.KlineTable, error) {
	table, err := s.source.FetchTable(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Fetched and normalized klines",
		map[string]interface{}{"symbol": s.symbol, "interval": s.interval, "rows": len(table)})

	if s.output != "" {
		if err := export.WriteTableCSV(table, s.output); err != nil {
			s.logger.Error(ctx, err, "CSV export failed",
				map[string]interface{}{"path": s.output})
			return nil, err
		}
		s.logger.Info(ctx, "Klines exported",
			map[string]interface{}{"path": s.output, "rows": len(table)})
	}

	if s.archive != nil {
		written, err := s.archive.SaveTable(ctx, s.symbol, s.interval, table)
		if err != nil {
			s.logger.Error(ctx, err, "Kline archiving failed",
				map[string]interface{}{"symbol": s.symbol, "interval": s.interval})
			return nil, err
		}
		s.logger.Info(ctx, "Klines archived",
			map[string]interface{}{"symbol": s.symbol, "interval": s.interval, "rows": written})
	}

	return table, nil
}
