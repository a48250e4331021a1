// Package store persists per-ticker fundamental data in SQLite and
// provides the consistent-copy and integrity primitives the snapshot
// engine uses for the database member.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"kabu-vault/internal/finance"
)

const schema = `
CREATE TABLE IF NOT EXISTS fundamentals (
	ticker              TEXT NOT NULL,
	period_end          TEXT NOT NULL,
	revenue             REAL,
	operating_income    REAL,
	ordinary_income     REAL,
	net_income          REAL,
	eps                 REAL,
	operating_cf        REAL,
	equity              REAL,
	total_assets        REAL,
	current_assets      REAL,
	current_liabilities REAL,
	PRIMARY KEY (ticker, period_end)
);
CREATE INDEX IF NOT EXISTS idx_fundamentals_ticker ON fundamentals(ticker);
`

// PeriodRecord is one fiscal period of fundamentals for a ticker.
// Nil fields were not reported.
type PeriodRecord struct {
	PeriodEnd          string
	Revenue            *float64
	OperatingIncome    *float64
	OrdinaryIncome     *float64
	NetIncome          *float64
	EPS                *float64
	OperatingCF        *float64
	Equity             *float64
	TotalAssets        *float64
	CurrentAssets      *float64
	CurrentLiabilities *float64
}

// Store wraps the application SQLite database
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database at path and applies the schema
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertPeriod inserts or replaces one period of fundamentals
func (s *Store) UpsertPeriod(ctx context.Context, ticker string, rec PeriodRecord) error {
	if ticker == "" {
		return fmt.Errorf("ticker is required")
	}
	if rec.PeriodEnd == "" {
		return fmt.Errorf("period end is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fundamentals (
			ticker, period_end, revenue, operating_income, ordinary_income,
			net_income, eps, operating_cf, equity, total_assets,
			current_assets, current_liabilities
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticker, period_end) DO UPDATE SET
			revenue = excluded.revenue,
			operating_income = excluded.operating_income,
			ordinary_income = excluded.ordinary_income,
			net_income = excluded.net_income,
			eps = excluded.eps,
			operating_cf = excluded.operating_cf,
			equity = excluded.equity,
			total_assets = excluded.total_assets,
			current_assets = excluded.current_assets,
			current_liabilities = excluded.current_liabilities`,
		ticker, rec.PeriodEnd, rec.Revenue, rec.OperatingIncome, rec.OrdinaryIncome,
		rec.NetIncome, rec.EPS, rec.OperatingCF, rec.Equity, rec.TotalAssets,
		rec.CurrentAssets, rec.CurrentLiabilities,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert period %s for %s: %w", rec.PeriodEnd, ticker, err)
	}
	return nil
}

// Periods returns a ticker's history oldest first, ready for analysis
func (s *Store) Periods(ctx context.Context, ticker string) ([]finance.PeriodData, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT period_end, revenue, operating_income, ordinary_income,
		       net_income, eps, operating_cf, equity, total_assets,
		       current_assets, current_liabilities
		FROM fundamentals
		WHERE ticker = ?
		ORDER BY period_end ASC`, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods for %s: %w", ticker, err)
	}
	defer rows.Close()

	var periods []finance.PeriodData
	for rows.Next() {
		var (
			periodEnd string
			cols      [10]sql.NullFloat64
		)
		if err := rows.Scan(&periodEnd, &cols[0], &cols[1], &cols[2], &cols[3],
			&cols[4], &cols[5], &cols[6], &cols[7], &cols[8], &cols[9]); err != nil {
			return nil, fmt.Errorf("failed to scan period row: %w", err)
		}

		periods = append(periods, finance.PeriodData{
			PeriodEnd:          periodEnd,
			Revenue:            nullDecimal(cols[0]),
			OperatingIncome:    nullDecimal(cols[1]),
			OrdinaryIncome:     nullDecimal(cols[2]),
			NetIncome:          nullDecimal(cols[3]),
			EPS:                nullDecimal(cols[4]),
			OperatingCF:        nullDecimal(cols[5]),
			Equity:             nullDecimal(cols[6]),
			TotalAssets:        nullDecimal(cols[7]),
			CurrentAssets:      nullDecimal(cols[8]),
			CurrentLiabilities: nullDecimal(cols[9]),
		})
	}
	return periods, rows.Err()
}

// Tickers lists all tickers with stored fundamentals
func (s *Store) Tickers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT ticker FROM fundamentals ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

// DeleteTicker removes all periods for a ticker
func (s *Store) DeleteTicker(ctx context.Context, ticker string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM fundamentals WHERE ticker = ?`, ticker)
	if err != nil {
		return 0, fmt.Errorf("failed to delete ticker %s: %w", ticker, err)
	}
	return res.RowsAffected()
}

// SnapshotTo writes a consistent copy of this database to dst using
// VACUUM INTO, which runs inside a read transaction.
func (s *Store) SnapshotTo(ctx context.Context, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("snapshot destination already exists: %s", dst)
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, dst); err != nil {
		return fmt.Errorf("failed to vacuum into %s: %w", dst, err)
	}
	return nil
}

// IntegrityCheck runs PRAGMA integrity_check on this database
func (s *Store) IntegrityCheck(ctx context.Context) error {
	return integrityCheck(ctx, s.db)
}

func nullDecimal(v sql.NullFloat64) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	return finance.D(v.Float64)
}
