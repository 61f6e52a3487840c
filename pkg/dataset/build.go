package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Builder runs the full dataset pipeline: walk the raw harvest tree,
// extract listing fragments, clean, join metadata, write SQLite.
type Builder struct {
	// RawDir is the harvest root; one subfolder per source.
	RawDir string

	// Metadata joins vehicle identity onto rows, keyed by folder name.
	Metadata map[string]Meta

	// Now stubs the clock in tests. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Build produces the dataset file at outPath and returns the number of
// rows written.
func (b *Builder) Build(ctx context.Context, outPath string) (int, error) {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	raw, err := b.collect(logger)
	if err != nil {
		return 0, err
	}
	logger.Info("extracted raw listings", "count", len(raw))

	listings := Clean(raw, now().Year())
	listings = Join(listings, b.Metadata)
	logger.Info("cleaned dataset", "rows", len(listings))

	w, err := NewWriter(outPath)
	if err != nil {
		return 0, err
	}
	defer w.Close()

	if err := w.Replace(ctx, listings); err != nil {
		return 0, err
	}
	return len(listings), nil
}

// collect walks the harvest folders in name order and extracts every
// HTML page. A page that fails to parse is logged and skipped; one bad
// download must not sink the rebuild.
func (b *Builder) collect(logger *slog.Logger) ([]RawListing, error) {
	folders, err := os.ReadDir(b.RawDir)
	if err != nil {
		return nil, fmt.Errorf("read raw dir: %w", err)
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name() < folders[j].Name() })

	var all []RawListing
	for _, folder := range folders {
		if !folder.IsDir() {
			continue
		}

		dir := filepath.Join(b.RawDir, folder.Name())
		pages, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read source folder %s: %w", folder.Name(), err)
		}
		sort.Slice(pages, func(i, j int) bool { return pages[i].Name() < pages[j].Name() })

		for _, page := range pages {
			if !strings.EqualFold(filepath.Ext(page.Name()), ".html") {
				continue
			}

			path := filepath.Join(dir, page.Name())
			f, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("open page %s: %w", path, err)
			}

			listings, err := ExtractListings(f)
			f.Close()
			if err != nil {
				logger.Warn("skipping unparseable page", "path", path, "error", err)
				continue
			}

			for i := range listings {
				listings[i].SourceFolder = folder.Name()
			}
			all = append(all, listings...)
		}
	}
	return all, nil
}
