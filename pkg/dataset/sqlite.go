package dataset

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Writer persists cleaned listings to a SQLite file. The same file is
// later read by the predictor's filter-option loader.
type Writer struct {
	db *sql.DB
}

// NewWriter opens (or creates) the dataset database and runs migrations.
func NewWriter(path string) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open dataset db: %w", err)
	}

	// WAL mode so the predictor can read options while a rebuild runs.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	w := &Writer{db: db}
	if err := w.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return w, nil
}

func (w *Writer) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS listings (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			title           TEXT NOT NULL,
			brand           TEXT,
			model           TEXT,
			segment         TEXT,
			body_type       TEXT,
			fuel_type       TEXT,
			main_province   TEXT,
			year            INTEGER NOT NULL,
			age             INTEGER NOT NULL,
			km              INTEGER NOT NULL,
			cv              REAL,
			price           REAL NOT NULL,
			adjusted_price  REAL NOT NULL,
			is_professional INTEGER,
			includes_taxes  INTEGER,
			has_warranty    INTEGER,
			warranty_months INTEGER,
			source_folder   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_brand ON listings(brand)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_age ON listings(age)`,
	}

	for _, s := range stmts {
		if _, err := w.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// Replace swaps the stored dataset for the given rows in one transaction.
func (w *Writer) Replace(ctx context.Context, listings []Listing) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM listings`); err != nil {
		return fmt.Errorf("clear listings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO listings
		(title, brand, model, segment, body_type, fuel_type, main_province,
		 year, age, km, cv, price, adjusted_price,
		 is_professional, includes_taxes, has_warranty, warranty_months, source_folder)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range listings {
		_, err := stmt.ExecContext(ctx,
			l.Title, l.Brand, l.Model, l.Segment, l.BodyType, l.FuelType, l.MainProvince,
			l.Year, l.Age, l.KM, l.CV, l.Price, l.AdjustedPrice,
			l.IsProfessional, l.IncludesTaxes, l.HasWarranty, l.WarrantyMonths, l.SourceFolder,
		)
		if err != nil {
			return fmt.Errorf("insert listing %q: %w", l.Title, err)
		}
	}
	return tx.Commit()
}

// Count reports the number of stored listings.
func (w *Writer) Count(ctx context.Context) (int, error) {
	var n int
	if err := w.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return n, nil
}

func (w *Writer) Close() error {
	return w.db.Close()
}
