//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/zikzero/carvalue/cmd/predictor/pipeline"
	"github.com/zikzero/carvalue/cmd/predictor/router"
	"github.com/zikzero/carvalue/pkg/gateway"
	"github.com/zikzero/carvalue/pkg/options"
	"github.com/zikzero/carvalue/pkg/pricecache"
	"github.com/zikzero/carvalue/pkg/vehicle"
)

// TestPredictorE2E runs the full request path against a real Redis
// container and a mock model gateway: HTTP API → pipeline → memoized
// gateway → model server, with predictions cached in Redis.
func TestPredictorE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(redisContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}
	addr := endpoint
	if len(endpoint) > 8 && endpoint[:8] == "redis://" {
		addr = endpoint[8:]
	}

	// Mock model gateway: a linear value curve per brand, counting calls
	// so caching is observable.
	var gatewayCalls atomic.Int64
	modelServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gatewayCalls.Add(1)

		var req struct {
			Observations []vehicle.Observation `json:"observations"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		prices := make([]float64, len(req.Observations))
		for i, o := range req.Observations {
			base := 20000.0
			if o.Brand == "audi" {
				base = 32000.0
			}
			prices[i] = base - float64(o.Age)*1500 - float64(o.KM)*0.01
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"prices": prices})
	}))
	defer modelServer.Close()

	cache, err := pricecache.NewRedisCache(addr, "", 0, time.Minute)
	if err != nil {
		t.Fatalf("failed to create redis cache: %v", err)
	}
	defer cache.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := gateway.NewHTTPGateway(modelServer.URL, "e2e-model", 10*time.Second)
	memo := gateway.Memoized(gw, cache, logger)

	p := pipeline.New(memo, []int{5, 10}, logger, nil)
	opts := &options.Options{
		FuelTypes: []string{"diesel", "gasolina"},
		Brands:    []string{"audi", "seat"},
		Segments:  []string{"c", "d"},
		BodyTypes: []string{"compacto", "sedan"},
		AgeRange:  options.AgeRange{Min: 0, Max: 20},
	}

	api := httptest.NewServer(router.SetupRoutes(p, opts, logger))
	defer api.Close()

	estimateBody := []byte(`{
		"fuel_type": "gasolina",
		"brand": "seat",
		"segment": "c",
		"body_type": "compacto",
		"current_age": 2,
		"current_km": 20000
	}`)

	post := func(path string) *http.Response {
		t.Helper()
		resp, err := http.Post(api.URL+path, "application/json", bytes.NewReader(estimateBody))
		if err != nil {
			t.Fatalf("POST %s failed: %v", path, err)
		}
		return resp
	}

	t.Run("Estimate", func(t *testing.T) {
		resp := post("/v1/estimate")
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
		}

		var result struct {
			ModelVersion string `json:"model_version"`
			Rows         []struct {
				Age   int     `json:"age"`
				Value float64 `json:"value"`
			} `json:"rows"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode response: %v", err)
		}

		if result.ModelVersion != "e2e-model" {
			t.Errorf("model_version = %q", result.ModelVersion)
		}
		if len(result.Rows) != 11 {
			t.Fatalf("got %d rows, want 11", len(result.Rows))
		}
		if result.Rows[0].Value <= result.Rows[10].Value {
			t.Error("value curve must decrease with age")
		}
	})

	t.Run("EstimateIsCached", func(t *testing.T) {
		before := gatewayCalls.Load()

		resp := post("/v1/estimate")
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}

		if after := gatewayCalls.Load(); after != before {
			t.Errorf("repeated request hit the model server %d more times, want 0", after-before)
		}
	})

	t.Run("CompareBrands", func(t *testing.T) {
		resp := post("/v1/compare/brands")
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
		}

		var result struct {
			Series []struct {
				Label string `json:"label"`
			} `json:"series"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(result.Series) != 2 {
			t.Fatalf("got %d series, want 2", len(result.Series))
		}
		if result.Series[0].Label != "seat" {
			t.Errorf("first series = %q, want the selected brand", result.Series[0].Label)
		}
	})

	t.Run("GatewayDown", func(t *testing.T) {
		modelServer.Close()

		body := []byte(`{
			"fuel_type": "diesel",
			"brand": "audi",
			"segment": "d",
			"body_type": "sedan",
			"current_age": 4,
			"current_km": 60000
		}`)
		resp, err := http.Post(api.URL+"/v1/estimate", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("POST failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("status = %d, want 502 when the model server is down", resp.StatusCode)
		}
	})
}
