package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"klineRecon/config"
	"klineRecon/internal/adapters/binanceclient"
	"klineRecon/internal/adapters/logger"
	"klineRecon/internal/adapters/sqlite"
	"klineRecon/internal/app"
	"klineRecon/internal/ports"
)

func main() {
	// 1. Load Configuration (env defaults, overridable by flags)
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	symbol := flag.String("symbol", cfg.Symbol, "Trading pair, e.g. BNBUSDT")
	interval := flag.String("interval", cfg.Interval, "Kline interval, e.g. 4h")
	limit := flag.Int("limit", cfg.Limit, "Number of klines to fetch (endpoint max 1000)")
	out := flag.String("out", cfg.OutputCSV, "CSV output path")
	archivePath := flag.String("archive", cfg.ArchiveDBPath, "SQLite archive path (empty disables archiving)")
	flag.Parse()

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	// 3. Initialize Kline Source
	source, err := binanceclient.New(binanceclient.Config{
		Symbol:   *symbol,
		Interval: *interval,
		Limit:    *limit,
		BaseURL:  cfg.BaseURL,
		Logger:   appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "Failed to initialize kline client")
		os.Exit(1)
	}

	// 4. Optional Archive
	var archive ports.KlineArchive
	if *archivePath != "" {
		sqliteArchive, err := sqlite.NewArchive(sqlite.Config{DBPath: *archivePath, Logger: appLogger})
		if err != nil {
			appLogger.Error(ctx, err, "Failed to initialize kline archive")
			os.Exit(1)
		}
		defer sqliteArchive.Close()
		archive = sqliteArchive
	}

	// 5. Fetch, normalize, export
	service, err := app.New(app.Config{
		Source:     source,
		Archive:    archive,
		Logger:     appLogger,
		Symbol:     source.Symbol(),
		Interval:   source.Interval(),
		OutputPath: *out,
	})
	if err != nil {
		appLogger.Error(ctx, err, "Failed to initialize pipeline service")
		os.Exit(1)
	}

	table, err := service.Run(ctx)
	if err != nil {
		appLogger.Error(ctx, err, "Fetch failed")
		os.Exit(1)
	}

	fmt.Printf("Fetched %d klines for %s %s, saved to %s\n",
		len(table), source.Symbol(), source.Interval(), *out)
}
