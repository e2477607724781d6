package usecase

import (
	"sync"
	"time"

	"github.com/example/captcha-solver/internal/solver"
)

// MetricsSummary represents aggregated solve insights since process start.
type MetricsSummary struct {
	TotalRequests      int64   `json:"total_requests"`
	SuccessfulRequests int64   `json:"successful_requests"`
	FailedRequests     int64   `json:"failed_requests"`
	CacheHits          int64   `json:"cache_hits"`
	SuccessRate        float64 `json:"success_rate"`
	AverageConfidence  float64 `json:"average_confidence"`
	AverageLatencyMs   float64 `json:"average_latency_ms"`
}

type metrics struct {
	mu            sync.Mutex
	total         int64
	succeeded     int64
	cacheHits     int64
	confidenceSum float64
	latencySum    time.Duration
}

func (m *metrics) record(result *solver.Result, cached bool, err error, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.latencySum += latency
	if err != nil || result == nil {
		return
	}
	m.succeeded++
	m.confidenceSum += result.Confidence
	if cached {
		m.cacheHits++
	}
}

// GetMetricsSummary aggregates the counters recorded by Solve.
func (uc *SolveUseCase) GetMetricsSummary() *MetricsSummary {
	m := uc.metrics
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := &MetricsSummary{
		TotalRequests:      m.total,
		SuccessfulRequests: m.succeeded,
		FailedRequests:     m.total - m.succeeded,
		CacheHits:          m.cacheHits,
	}

	if m.total > 0 {
		summary.SuccessRate = float64(m.succeeded) / float64(m.total)
		summary.AverageLatencyMs = float64(m.latencySum.Microseconds()) / 1000 / float64(m.total)
	}
	if m.succeeded > 0 {
		summary.AverageConfidence = m.confidenceSum / float64(m.succeeded)
	}

	return summary
}
