package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// BYOMRegressor delegates training and prediction to an external HTTP
// service, so any model (gradient boosting, neural nets, a Python
// RandomForest) can be plugged in without changing the pipeline.
//
// Contract:
//
//	POST {endpoint}/fit      {"features": [[..]], "targets": [[..]]}  -> 2xx
//	POST {endpoint}/predict  {"features": [[..]]}  -> {"predictions": [[..]]}
//
// A service that is trained out of band may answer /fit with 404 or 501;
// that is accepted and Predict is used as is.
type BYOMRegressor struct {
	endpoint string
	client   *http.Client
	outputs  int
	fitted   bool
}

type byomFitRequest struct {
	Features [][]float64 `json:"features"`
	Targets  [][]float64 `json:"targets"`
}

type byomPredictRequest struct {
	Features [][]float64 `json:"features"`
}

type byomPredictResponse struct {
	Predictions [][]float64 `json:"predictions"`
}

// NewBYOMRegressor creates a regressor backed by the service at endpoint.
// If client is nil a plain client with a 30s timeout is used.
func NewBYOMRegressor(endpoint string, client *http.Client) *BYOMRegressor {
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 2,
			},
		}
	}
	return &BYOMRegressor{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   client,
	}
}

// Name returns the model identifier.
func (m *BYOMRegressor) Name() string {
	return "byom"
}

// Fit sends the training matrices to {endpoint}/fit.
func (m *BYOMRegressor) Fit(ctx context.Context, X, Y [][]float64) error {
	_, _, k, err := checkFit(X, Y)
	if err != nil {
		return fmt.Errorf("byom: %w", err)
	}

	resp, err := m.post(ctx, "/fit", byomFitRequest{Features: X, Targets: Y})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNotImplemented:
		// trained out of band
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return statusError(resp)
	}

	m.outputs = k
	m.fitted = true
	return nil
}

// Predict sends X to {endpoint}/predict. Every returned row must have as
// many values as Y had columns during Fit.
func (m *BYOMRegressor) Predict(ctx context.Context, X [][]float64) ([][]float64, error) {
	if !m.fitted {
		return nil, fmt.Errorf("byom: %w", ErrNotFitted)
	}
	if len(X) == 0 {
		return [][]float64{}, nil
	}

	resp, err := m.post(ctx, "/predict", byomPredictRequest{Features: X})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var out byomPredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("byom: decode response: %w", err)
	}

	if len(out.Predictions) != len(X) {
		return nil, fmt.Errorf("byom: expected %d predictions, got %d", len(X), len(out.Predictions))
	}
	for i, row := range out.Predictions {
		if len(row) != m.outputs {
			return nil, fmt.Errorf("byom: prediction %d has %d values, want %d", i, len(row), m.outputs)
		}
	}

	return out.Predictions, nil
}

func (m *BYOMRegressor) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("byom: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("byom: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("byom: http request failed: %w", err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("byom: http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}
