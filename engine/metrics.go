package engine

import (
	"sync/atomic"
	"time"
)

// metrics holds the engine-instance counters. All fields are updated with
// atomic operations since one engine may serve concurrent requests.
type metrics struct {
	requests    atomic.Int64
	successes   atomic.Int64
	failures    atomic.Int64
	totalMillis atomic.Int64
	tokens      atomic.Int64
}

func (m *metrics) begin() time.Time {
	m.requests.Add(1)
	return time.Now()
}

func (m *metrics) complete(start time.Time, success bool) {
	m.totalMillis.Add(time.Since(start).Milliseconds())
	if success {
		m.successes.Add(1)
	} else {
		m.failures.Add(1)
	}
}

func (m *metrics) addTokens(n int64) {
	m.tokens.Add(n)
}

// Stats is a point-in-time snapshot of the engine's counters. The average is
// derived from the totals on every read, never stored.
type Stats struct {
	Requests       int64         `json:"requests"`
	Successes      int64         `json:"successes"`
	Failures       int64         `json:"failures"`
	TotalTokens    int64         `json:"total_tokens"`
	AverageLatency time.Duration `json:"average_latency"`
}

// Stats returns current telemetry, scoped to this engine instance.
func (e *Engine) Stats() Stats {
	s := Stats{
		Requests:    e.metrics.requests.Load(),
		Successes:   e.metrics.successes.Load(),
		Failures:    e.metrics.failures.Load(),
		TotalTokens: e.metrics.tokens.Load(),
	}
	if completed := s.Successes + s.Failures; completed > 0 {
		s.AverageLatency = time.Duration(e.metrics.totalMillis.Load()/completed) * time.Millisecond
	}
	return s
}
