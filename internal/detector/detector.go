// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package detector scores text for likely machine-generated authorship.
// The scorer model itself is external; this package talks to it and turns
// its continuous score into the two calibrated binary predictions.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/corpus-collector/pkg/types"
)

// Scorer computes a machine-generated-text score for a passage. Higher
// scores indicate human-written text.
type Scorer interface {
	ComputeScore(ctx context.Context, text string) (float64, error)
}

// Labels for the binary predictions.
const (
	Human   = 0
	Machine = 1
)

// Prediction derives the binary class by thresholding: at or above the
// cutoff is human (0), below is machine-generated (1).
func Prediction(score, threshold float64) int {
	if score >= threshold {
		return Human
	}
	return Machine
}

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
)

// HTTPScorer calls a scoring service over HTTP: POST {endpoint}/score
// with {"text": ...}, receiving {"score": ...}. A 429 response is retried
// after a fixed delay up to a bounded attempt count.
type HTTPScorer struct {
	client     *http.Client
	endpoint   string
	userAgent  string
	retryDelay time.Duration
	maxRetries int

	// sleep is time.Sleep in production; tests stub it out.
	sleep func(time.Duration)
}

// NewHTTPScorer builds a scorer from the detector configuration.
func NewHTTPScorer(cfg types.DetectorConfig) *HTTPScorer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return &HTTPScorer{
		client:     &http.Client{Timeout: timeout},
		endpoint:   cfg.Endpoint,
		userAgent:  cfg.UserAgent,
		retryDelay: delay,
		maxRetries: retries,
		sleep:      time.Sleep,
	}
}

type scoreRequest struct {
	Text string `json:"text"`
}

type scoreResponse struct {
	Score float64 `json:"score"`
}

// ComputeScore sends text to the scoring service and returns its score.
func (s *HTTPScorer) ComputeScore(ctx context.Context, text string) (float64, error) {
	if s.endpoint == "" {
		return 0, fmt.Errorf("detector endpoint is not configured")
	}
	body, err := json.Marshal(scoreRequest{Text: text})
	if err != nil {
		return 0, fmt.Errorf("marshaling score request: %w", err)
	}

	var lastStatus int
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.sleep(s.retryDelay)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/score", bytes.NewReader(body))
		if err != nil {
			return 0, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if s.userAgent != "" {
			req.Header.Set("User-Agent", s.userAgent)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return 0, fmt.Errorf("scoring service request: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastStatus = resp.StatusCode
			continue
		}
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return 0, fmt.Errorf("scoring service returned HTTP %d", resp.StatusCode)
		}

		var sr scoreResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&sr)
		resp.Body.Close()
		if decodeErr != nil {
			return 0, fmt.Errorf("parsing score response: %w", decodeErr)
		}
		return sr.Score, nil
	}
	return 0, fmt.Errorf("scoring service rate limited (HTTP %d) after %d attempts", lastStatus, s.maxRetries+1)
}
