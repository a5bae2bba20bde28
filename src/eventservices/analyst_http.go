package eventservices

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"optionsedge/src/eventmodels"
)

// HttpAnalyst asks a remote analysis service for a recommendation. Calls can
// take a while; the client timeout is generous and the context still governs
// cancellation.
type HttpAnalyst struct {
	baseURL string
	client  http.Client
}

func NewHttpAnalyst(baseURL string) *HttpAnalyst {
	return &HttpAnalyst{
		baseURL: baseURL,
		client: http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type analyzeRequestDTO struct {
	Ticker string `json:"ticker"`
}

type analyzeResponseDTO struct {
	Decision   string  `json:"decision"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func (a *HttpAnalyst) AnalyzeTicker(ctx context.Context, ticker string) (*eventmodels.AnalysisResult, error) {
	payload, err := json.Marshal(analyzeRequestDTO{Ticker: ticker})
	if err != nil {
		return nil, fmt.Errorf("HttpAnalyst:AnalyzeTicker(): failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/v1/analyze", a.baseURL), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("HttpAnalyst:AnalyzeTicker(): failed to create request: %w", err)
	}

	req.Header.Add("Accept", "application/json")
	req.Header.Add("Content-Type", "application/json")

	log.Debugf("analyst request: %s", ticker)

	res, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HttpAnalyst:AnalyzeTicker(): %w", err)
	}

	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("HttpAnalyst:AnalyzeTicker(): failed to read response body: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HttpAnalyst:AnalyzeTicker(): unexpected status %d: %s", res.StatusCode, string(data))
	}

	var dto analyzeResponseDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("HttpAnalyst:AnalyzeTicker(): failed to parse response body: %w", err)
	}

	return &eventmodels.AnalysisResult{
		Ticker:     ticker,
		Decision:   dto.Decision,
		Confidence: dto.Confidence,
		Reasoning:  dto.Reasoning,
	}, nil
}
