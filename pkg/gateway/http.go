package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zikzero/carvalue/pkg/validate"
	"github.com/zikzero/carvalue/pkg/vehicle"
)

// HTTPGateway talks to a model server that hosts the serialized
// regression artifact. The server loads the artifact once per version and
// answers POST requests with price vectors.
//
// Failures map onto the error taxonomy: HTTP 404 means the requested
// model version does not exist on the server (ModelNotFound); connection
// errors, timeouts and 5xx responses mean the service cannot answer right
// now (GatewayUnavailable). Neither is retried here; predictions are
// cheap and idempotent to re-issue.
type HTTPGateway struct {
	endpoint     string
	modelVersion string
	client       *http.Client
}

type predictRequest struct {
	Model        string                `json:"model"`
	Observations []vehicle.Observation `json:"observations"`
}

type predictResponse struct {
	Prices []float64 `json:"prices"`
}

// NewHTTPGateway creates a gateway for the given model server endpoint
// and model version. timeout bounds each prediction call; 0 falls back to
// 30 seconds.
func NewHTTPGateway(endpoint, modelVersion string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGateway{
		endpoint:     endpoint,
		modelVersion: modelVersion,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 2,
			},
		},
	}
}

// ModelVersion returns the configured model artifact version.
func (g *HTTPGateway) ModelVersion() string {
	return g.modelVersion
}

// Predict submits the observation batch and returns the price vector.
func (g *HTTPGateway) Predict(ctx context.Context, obs []vehicle.Observation) ([]float64, error) {
	if len(obs) == 0 {
		return nil, validate.ErrEmptyInput
	}

	body, err := json.Marshal(predictRequest{Model: g.modelVersion, Observations: obs})
	if err != nil {
		return nil, fmt.Errorf("gateway: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", validate.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: model version %q at %s", validate.ErrModelNotFound, g.modelVersion, g.endpoint)
	case resp.StatusCode >= 500:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: http %d: %s", validate.ErrGatewayUnavailable, resp.StatusCode, string(detail))
	case resp.StatusCode != http.StatusOK:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("gateway: http %d: %s", resp.StatusCode, string(detail))
	}

	var predResp predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&predResp); err != nil {
		return nil, fmt.Errorf("gateway: decode response: %w", err)
	}

	if len(predResp.Prices) == 0 {
		return nil, validate.ErrEmptyPrediction
	}
	if len(predResp.Prices) != len(obs) {
		return nil, &validate.ShapeMismatchError{What: "gateway response", Want: len(obs), Got: len(predResp.Prices)}
	}

	return predResp.Prices, nil
}
