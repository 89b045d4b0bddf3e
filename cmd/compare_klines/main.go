package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"klineRecon/config"
	"klineRecon/internal/adapters/logger"
	"klineRecon/internal/reconcile"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	refPath := flag.String("ref", "", "Reference artifact: JSON array of raw 12-field kline rows")
	csvPath := flag.String("csv", "", "Canonical artifact: CSV export with the 11-column header")
	dropLast := flag.Bool("drop-last", cfg.DropLast, "Trim the trailing (possibly partial) row of each input")
	flag.Parse()

	if *refPath == "" || *csvPath == "" {
		fmt.Fprintln(os.Stderr, "usage: compare_klines -ref <reference.json> -csv <canonical.csv> [-drop-last=false]")
		os.Exit(2)
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	comparer, err := reconcile.NewComparer(appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "Failed to initialize comparer")
		os.Exit(1)
	}

	report, err := comparer.Compare(ctx, *refPath, *csvPath, *dropLast)
	if err != nil {
		appLogger.Error(ctx, err, "Comparison failed",
			map[string]interface{}{"ref": *refPath, "csv": *csvPath})
		os.Exit(1)
	}

	fmt.Print(report.String())
}
