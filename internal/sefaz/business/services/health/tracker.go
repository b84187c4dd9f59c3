package health

import (
	"sync"
	"time"
)

const DefaultWindowSize = 50
const metricsWindow = 10

// Status values reported for the upstream service.
const (
	StatusUnknown     = "unknown"
	StatusOperational = "operational"
	StatusSlow        = "slow"
	StatusUnstable    = "unstable"
	StatusDown        = "down"
)

type sample struct {
	at        time.Time
	latencyMs int64
	success   bool
}

// Tracker is a passive recorder of recent upstream outcomes. It never
// blocks a caller and never gates a call; it only informs backoff and
// observability surfaces.
type Tracker struct {
	mu      sync.Mutex
	samples []sample
	max     int
}

// Metrics is computed over the most recent samples. Pointer fields are nil
// while the buffer is empty.
type Metrics struct {
	Status        string   `json:"status"`
	LastLatencyMs *int64   `json:"lastLatencyMs"`
	AvgLatencyMs  *float64 `json:"avgLatencyMs"`
	SuccessRate   *float64 `json:"successRate"`
	SampleCount   int      `json:"sampleCount"`
	Issues        []string `json:"issues"`
}

func NewTracker(windowSize int) *Tracker {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Tracker{max: windowSize}
}

// RecordResponse appends one sample, silently dropping the oldest once the
// buffer is full.
func (t *Tracker) RecordResponse(latencyMs int64, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.samples = append(t.samples, sample{at: time.Now(), latencyMs: latencyMs, success: success})
	if len(t.samples) > t.max {
		t.samples = t.samples[len(t.samples)-t.max:]
	}
}

func (t *Tracker) SampleCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.samples)
}

// GetMetrics classifies upstream health over the last few samples.
// Success-rate thresholds take precedence over latency thresholds.
func (t *Tracker) GetMetrics() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.samples) == 0 {
		return Metrics{Status: StatusUnknown, Issues: []string{}}
	}

	recent := t.samples
	if len(recent) > metricsWindow {
		recent = recent[len(recent)-metricsWindow:]
	}

	var totalLatency int64
	successes := 0
	for _, s := range recent {
		totalLatency += s.latencyMs
		if s.success {
			successes++
		}
	}

	last := recent[len(recent)-1].latencyMs
	avg := float64(totalLatency) / float64(len(recent))
	rate := float64(successes) / float64(len(recent))

	metrics := Metrics{
		LastLatencyMs: &last,
		AvgLatencyMs:  &avg,
		SuccessRate:   &rate,
		SampleCount:   len(t.samples),
		Issues:        []string{},
	}

	switch {
	case rate < 0.5:
		metrics.Status = StatusDown
		metrics.Issues = append(metrics.Issues, "success rate below 50%, service effectively down")
	case rate < 0.8:
		metrics.Status = StatusUnstable
		metrics.Issues = append(metrics.Issues, "success rate below 80%, intermittent failures")
	case avg > 60000:
		metrics.Status = StatusDown
		metrics.Issues = append(metrics.Issues, "average latency above 60s, requests are timing out")
	case avg > 30000:
		metrics.Status = StatusSlow
		metrics.Issues = append(metrics.Issues, "average latency above 30s, service severely degraded")
	case avg > 10000:
		metrics.Status = StatusSlow
		metrics.Issues = append(metrics.Issues, "average latency above 10s, responses are sluggish")
	default:
		metrics.Status = StatusOperational
	}

	return metrics
}
