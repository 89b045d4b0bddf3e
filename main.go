package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"

	"github.com/google/uuid"

	"klineRecon/config"
	"klineRecon/internal/adapters/binanceclient"
	"klineRecon/internal/adapters/logger"
	"klineRecon/internal/adapters/sqlite"
	"klineRecon/internal/app"
	"klineRecon/internal/ports"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := newLogger(cfg)
	ctx := context.Background()
	runID := uuid.NewString()
	runFields := map[string]interface{}{"runID": runID, "level": cfg.LogLevel.String()}
	appLogger.Debug(ctx, "Start", runFields)
	appLogger.Info(ctx, "Logger initialized", runFields)

	// 3. Initialize Kline Source (Binance Adapter)
	source, err := binanceclient.New(binanceclient.Config{
		Symbol:   cfg.Symbol,
		Interval: cfg.Interval,
		Limit:    cfg.Limit,
		BaseURL:  cfg.BaseURL,
		Logger:   appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize kline client", runFields)
		os.Exit(1)
	}

	// 4. Initialize optional Archive
	var archive ports.KlineArchive
	if cfg.ArchiveDBPath != "" {
		sqliteArchive, err := sqlite.NewArchive(sqlite.Config{
			DBPath: cfg.ArchiveDBPath,
			Logger: appLogger,
		})
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize kline archive", runFields)
			os.Exit(1)
		}
		defer func() {
			if err := sqliteArchive.Close(); err != nil {
				appLogger.Error(ctx, err, "Error closing kline archive")
			}
		}()
		archive = sqliteArchive
	}

	// 5. Run the pipeline: fetch -> normalize -> export (-> archive).
	// Indicator computation and downstream analysis stages will slot in here.
	service, err := app.New(app.Config{
		Source:     source,
		Archive:    archive,
		Logger:     appLogger,
		Symbol:     source.Symbol(),
		Interval:   source.Interval(),
		OutputPath: cfg.OutputCSV,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize pipeline service", runFields)
		os.Exit(1)
	}

	table, err := service.Run(ctx)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Pipeline run failed", runFields)
		os.Exit(1)
	}

	appLogger.Info(ctx, "Pipeline run completed",
		map[string]interface{}{"runID": runID, "rows": len(table), "output": cfg.OutputCSV})
	appLogger.Debug(ctx, "Finish", runFields)
}

// newLogger selects the logging adapter from configuration: plain text to
// stderr, or structured JSON with optional file rotation.
func newLogger(cfg *config.Config) ports.Logger {
	if cfg.LogFormat == "json" {
		return logger.NewZapLogger(logger.ZapConfig{
			Level:    cfg.LogLevel,
			FilePath: cfg.LogFile,
		})
	}
	return logger.NewStdLogger(cfg.LogLevel)
}
