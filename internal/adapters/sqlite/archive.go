// Package sqlite implements the ports.KlineArchive interface using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"klineRecon/internal/domain"
	"klineRecon/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Archive persists fetched klines keyed by (symbol, interval, open_time).
type Archive struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite archive.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewArchive creates a new SQLite archive instance.
func NewArchive(cfg Config) (*Archive, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite archive")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/klines.db" // Default path
	}

	// Create data directory if it doesn't exist (skip for :memory: databases)
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			err = fmt.Errorf("%w: failed to create data directory %q: %w", ports.ErrArchive, filepath.Dir(dbPath), err)
			cfg.Logger.Error(context.Background(), err, "SQLite archive initialization failed")
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("%w: failed to open database at %q: %w", ports.ErrArchive, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite archive initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at %q: %w", ports.ErrArchive, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite archive initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from a
	// single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	archive := &Archive{db: db, logger: cfg.Logger}

	if err := archive.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to initialize database schema: %w", ports.ErrArchive, err)
		cfg.Logger.Error(context.Background(), err, "SQLite archive initialization failed")
		return nil, err
	}

	cfg.Logger.Info(context.Background(), "SQLite kline archive ready", map[string]interface{}{"path": dbPath})
	return archive, nil
}

func (a *Archive) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS klines (
		symbol TEXT NOT NULL,
		interval TEXT NOT NULL,
		open_time INTEGER NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		close_time INTEGER NOT NULL,
		quote_volume REAL NOT NULL,
		trades INTEGER DEFAULT NULL,
		taker_buy_volume REAL NOT NULL,
		taker_buy_quote_volume REAL NOT NULL,
		PRIMARY KEY (symbol, interval, open_time)
	);
	CREATE INDEX IF NOT EXISTS idx_klines_symbol_interval_open_time
		ON klines (symbol, interval, open_time);
	`
	_, err := a.db.ExecContext(ctx, schema)
	return err
}

// SaveTable upserts all rows of the table under (symbol, interval) in one
// transaction. A re-fetch of the same window overwrites the previous rows.
func (a *Archive) SaveTable(ctx context.Context, symbol, interval string, table domain.KlineTable) (int64, error) {
	if symbol == "" || interval == "" {
		return 0, fmt.Errorf("%w: symbol and interval are required", ports.ErrInvalidArgument)
	}
	if len(table) == 0 {
		return 0, nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %w", ports.ErrArchive, err)
	}
	defer tx.Rollback()

	const query = `
	INSERT OR REPLACE INTO klines (
		symbol, interval, open_time, open, high, low, close, volume,
		close_time, quote_volume, trades, taker_buy_volume, taker_buy_quote_volume
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("%w: prepare insert: %w", ports.ErrArchive, err)
	}
	defer stmt.Close()

	var written int64
	for _, rec := range table {
		trades := sql.NullInt64{}
		if rec.Trades != nil {
			trades = sql.NullInt64{Int64: *rec.Trades, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			symbol, interval, rec.OpenTime.UnixMilli(),
			rec.Open, rec.High, rec.Low, rec.Close, rec.Volume,
			rec.CloseTime.UnixMilli(), rec.QuoteVolume, trades,
			rec.TakerBuyVolume, rec.TakerBuyQuoteVolume,
		); err != nil {
			return 0, fmt.Errorf("%w: insert kline at %d: %w", ports.ErrArchive, rec.OpenTime.UnixMilli(), err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %w", ports.ErrArchive, err)
	}

	a.logger.Info(ctx, "Klines archived",
		map[string]interface{}{"symbol": symbol, "interval": interval, "rows": written})
	return written, nil
}

// FindBySymbolInterval retrieves archived klines ordered ascending by open
// time; limit 0 means no limit.
func (a *Archive) FindBySymbolInterval(ctx context.Context, symbol, interval string, limit int) (domain.KlineTable, error) {
	query := `
	SELECT open_time, open, high, low, close, volume, close_time,
	       quote_volume, trades, taker_buy_volume, taker_buy_quote_volume
	FROM klines WHERE symbol = ? AND interval = ?
	ORDER BY open_time ASC`
	args := []any{symbol, interval}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query klines: %w", ports.ErrArchive, err)
	}
	defer rows.Close()

	var table domain.KlineTable
	for rows.Next() {
		var rec domain.KlineRecord
		var openMs, closeMs int64
		var trades sql.NullInt64
		if err := rows.Scan(&openMs, &rec.Open, &rec.High, &rec.Low, &rec.Close, &rec.Volume,
			&closeMs, &rec.QuoteVolume, &trades, &rec.TakerBuyVolume, &rec.TakerBuyQuoteVolume); err != nil {
			return nil, fmt.Errorf("%w: scan kline row: %w", ports.ErrArchive, err)
		}
		rec.OpenTime = time.UnixMilli(openMs).UTC()
		rec.CloseTime = time.UnixMilli(closeMs).UTC()
		if trades.Valid {
			n := trades.Int64
			rec.Trades = &n
		}
		table = append(table, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate kline rows: %w", ports.ErrArchive, err)
	}
	return table, nil
}

// Close closes the underlying database connection.
func (a *Archive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
