// Package options reads the filter-option artifact produced by the
// dataset builder: the distinct values a caller may select for each
// categorical vehicle field, plus the observed age range.
package options

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// Options holds the selectable values for each filter dimension. Slices
// are sorted ascending; a dimension missing from the artifact comes back
// as an empty slice rather than an error.
type Options struct {
	FuelTypes []string `json:"fuel_types"`
	Brands    []string `json:"brands"`
	Segments  []string `json:"segments"`
	BodyTypes []string `json:"body_types"`
	AgeRange  AgeRange `json:"age_range"`
}

// AgeRange is the inclusive span of vehicle ages present in the dataset.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Loader reads option sets from SQLite artifacts and keeps one parsed
// copy per path for the lifetime of the loader.
type Loader struct {
	mu     sync.Mutex
	byPath map[string]*Options
}

// NewLoader returns an empty Loader.
func NewLoader() *Loader {
	return &Loader{byPath: make(map[string]*Options)}
}

// Load returns the options stored in the artifact at path, reading the
// file at most once per loader.
func (l *Loader) Load(path string) (*Options, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if opts, ok := l.byPath[path]; ok {
		return opts, nil
	}

	opts, err := read(path)
	if err != nil {
		return nil, err
	}
	l.byPath[path] = opts
	return opts, nil
}

func read(path string) (*Options, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open options artifact: %w", err)
	}
	defer db.Close()

	opts := &Options{}
	if opts.FuelTypes, err = distinct(db, "fuel_type"); err != nil {
		return nil, err
	}
	if opts.Brands, err = distinct(db, "brand"); err != nil {
		return nil, err
	}
	if opts.Segments, err = distinct(db, "segment"); err != nil {
		return nil, err
	}
	if opts.BodyTypes, err = distinct(db, "body_type"); err != nil {
		return nil, err
	}
	if opts.AgeRange, err = ageRange(db); err != nil {
		return nil, err
	}
	return opts, nil
}

// distinct lists the sorted distinct non-empty values of one column. A
// column the artifact does not carry degrades to an empty list.
func distinct(db *sql.DB, column string) ([]string, error) {
	rows, err := db.Query(fmt.Sprintf(
		`SELECT DISTINCT %s FROM listings WHERE %s IS NOT NULL AND %s != ''`,
		column, column, column))
	if err != nil {
		if missingColumn(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("query %s options: %w", column, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s option: %w", column, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s options: %w", column, err)
	}
	sort.Strings(values)
	return values, nil
}

func ageRange(db *sql.DB) (AgeRange, error) {
	var min, max sql.NullInt64
	err := db.QueryRow(`SELECT MIN(age), MAX(age) FROM listings`).Scan(&min, &max)
	if err != nil {
		if missingColumn(err) {
			return AgeRange{}, nil
		}
		return AgeRange{}, fmt.Errorf("query age range: %w", err)
	}
	if !min.Valid || !max.Valid {
		return AgeRange{}, nil
	}
	return AgeRange{Min: int(min.Int64), Max: int(max.Int64)}, nil
}

func missingColumn(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "no such column") ||
		strings.Contains(err.Error(), "no such table"))
}
