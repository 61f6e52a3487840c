package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/zikzero/carvalue/pkg/tls"
)

// Pacing between page fetches. The portal rate-limits aggressively;
// jittered delays in this band have proven stable.
const (
	minDelay = 5500 * time.Millisecond
	maxDelay = 20800 * time.Millisecond
)

// browserHeaders makes the proxy request look like an ordinary session.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Accept-Encoding": "gzip, deflate, br",
	"Accept-Language": "es-ES,en;q=0.9",
	"Referer":         "https://www.bing.com/",
}

// Harvester pulls listing pages source by source, one page at a time.
// It is deliberately sequential: a single slow client is the politest
// shape for a scraper, and the schedule has hours to spare.
type Harvester struct {
	client    *http.Client
	outputDir string
	logger    *slog.Logger

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// NewHarvester builds a harvester storing pages under outputDir, fetching
// through the proxy described by creds.
func NewHarvester(creds Credentials, outputDir string, logger *slog.Logger) (*Harvester, error) {
	proxyURL, err := url.Parse(creds.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}
	proxyURL.User = url.User(creds.ProxyAPIKey)

	tlsConfig, err := tls.NewClientTLSConfig(creds.CACertPath)
	if err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			Proxy:           http.ProxyURL(proxyURL),
			TLSClientConfig: tlsConfig,
		},
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Harvester{
		client:    client,
		outputDir: outputDir,
		logger:    logger,
		sleep:     time.Sleep,
	}, nil
}

// Run harvests every enabled source in order. A failed page is logged
// and skipped; a cancelled context stops the run.
func (h *Harvester) Run(ctx context.Context, sources []Source) error {
	for _, src := range Enabled(sources) {
		if err := h.harvestSource(ctx, src); err != nil {
			return err
		}
		h.logger.Info("source done", "folder", src.DestinationFolder)
	}
	return nil
}

func (h *Harvester) harvestSource(ctx context.Context, src Source) error {
	dir := filepath.Join(h.outputDir, src.DestinationFolder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}

	for page := 1; page <= src.Pages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		pageURL := PageURL(src.FirstURL, page)
		body, err := h.fetch(ctx, pageURL)
		if err != nil {
			h.logger.Warn("page fetch failed", "url", pageURL, "page", page, "error", err)
		} else {
			path := filepath.Join(dir, PageFileName(page))
			if err := os.WriteFile(path, body, 0o644); err != nil {
				return fmt.Errorf("save page: %w", err)
			}
			h.logger.Info("page saved", "path", path)
		}

		h.sleep(jitteredDelay())
	}
	return nil
}

func (h *Harvester) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// PageURL appends the pagination suffix for pages past the first.
func PageURL(base string, page int) string {
	if page <= 1 {
		return base
	}
	return fmt.Sprintf("%s&pg=%d", base, page)
}

// PageFileName gives the zero-padded file name pages are stored under,
// so directory listings sort in fetch order.
func PageFileName(page int) string {
	return fmt.Sprintf("page_%02d.html", page)
}

func jitteredDelay() time.Duration {
	return minDelay + time.Duration(rand.Int63n(int64(maxDelay-minDelay)))
}
