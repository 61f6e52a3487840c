package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testHarvester(t *testing.T, client *http.Client) (*Harvester, string) {
	t.Helper()
	dir := t.TempDir()
	return &Harvester{
		client:    client,
		outputDir: dir,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		sleep:     func(time.Duration) {},
	}, dir
}

func TestHarvester_Run(t *testing.T) {
	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.String())
		if r.Header.Get("Accept-Language") == "" {
			t.Error("browser headers not set")
		}
		fmt.Fprintf(w, "<html>page %s</html>", r.URL.RawQuery)
	}))
	defer srv.Close()

	h, dir := testHarvester(t, srv.Client())
	sources := []Source{
		{FirstURL: srv.URL + "/coches/seat-leon?sort=price", Pages: 3, DestinationFolder: "seat-leon", Load: true},
		{FirstURL: srv.URL + "/coches/audi-a4?sort=price", Pages: 5, DestinationFolder: "audi-a4", Load: false},
	}

	if err := h.Run(context.Background(), sources); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Disabled sources never hit the portal.
	if len(requested) != 3 {
		t.Fatalf("made %d requests, want 3: %v", len(requested), requested)
	}
	if requested[0] != "/coches/seat-leon?sort=price" {
		t.Errorf("first page url = %q, want no pagination suffix", requested[0])
	}
	if requested[2] != "/coches/seat-leon?sort=price&pg=3" {
		t.Errorf("third page url = %q", requested[2])
	}

	for page := 1; page <= 3; page++ {
		path := filepath.Join(dir, "seat-leon", PageFileName(page))
		if _, err := os.Stat(path); err != nil {
			t.Errorf("page %d not saved: %v", page, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "audi-a4")); !os.IsNotExist(err) {
		t.Error("disabled source folder must not be created")
	}
}

func TestHarvester_FailedPageIsSkipped(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, "<html>ok</html>")
	}))
	defer srv.Close()

	h, dir := testHarvester(t, srv.Client())
	sources := []Source{{FirstURL: srv.URL + "/s?x=1", Pages: 3, DestinationFolder: "s", Load: true}}

	if err := h.Run(context.Background(), sources); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("made %d requests, want 3 (failed page skipped, not fatal)", calls)
	}

	if _, err := os.Stat(filepath.Join(dir, "s", PageFileName(2))); !os.IsNotExist(err) {
		t.Error("failed page must not leave a file")
	}
	if _, err := os.Stat(filepath.Join(dir, "s", PageFileName(3))); err != nil {
		t.Errorf("later pages must still be saved: %v", err)
	}
}

func TestHarvester_ContextCancelStopsRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>ok</html>")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	h, _ := testHarvester(t, srv.Client())
	var fetched int
	h.sleep = func(time.Duration) {
		fetched++
		cancel()
	}

	sources := []Source{{FirstURL: srv.URL + "/s?x=1", Pages: 10, DestinationFolder: "s", Load: true}}
	if err := h.Run(ctx, sources); err == nil {
		t.Fatal("want context error, got nil")
	}
	if fetched != 1 {
		t.Errorf("fetched %d pages after cancel, want 1", fetched)
	}
}

func TestJitteredDelay(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := jitteredDelay()
		if d < minDelay || d > maxDelay {
			t.Fatalf("delay %v outside [%v, %v]", d, minDelay, maxDelay)
		}
	}
}
