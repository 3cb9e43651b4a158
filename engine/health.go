package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shibata-rui-dn/OneAgent-sub001/provider"
)

const (
	// HealthStatusHealthy indicates the probe completed.
	HealthStatusHealthy = "healthy"
	// HealthStatusUnhealthy indicates the probe failed or the client is unusable.
	HealthStatusUnhealthy = "unhealthy"
)

// Health is the result of a connectivity probe against the configured provider.
type Health struct {
	Status  string        `json:"status"`
	Message string        `json:"message,omitempty"`
	Latency time.Duration `json:"latency"`
	Model   string        `json:"model"`
}

// CheckHealth sends a minimal non-streaming completion to the provider and
// reports whether it answered. The probe uses a single-token budget so it is
// cheap enough to run on a schedule; it does not touch the engine's counters.
func (e *Engine) CheckHealth(ctx context.Context) Health {
	e.mu.Lock()
	cfg := e.cfg.Clone()
	client := e.client
	e.mu.Unlock()

	probe := provider.Request{
		Messages: []provider.Message{
			{Role: "user", Content: "ping"},
		},
		Model:       cfg.Model,
		Temperature: 0,
		MaxTokens:   1,
	}

	probeCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	start := time.Now()
	chunks, errs := client.Generate(probeCtx, probe)
	for chunks != nil || errs != nil {
		select {
		case _, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			// Any answer at all means the provider is reachable.
			return Health{
				Status:  HealthStatusHealthy,
				Latency: time.Since(start),
				Model:   cfg.Model,
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return Health{
					Status:  HealthStatusUnhealthy,
					Message: fmt.Sprintf("health probe failed: %v", err),
					Latency: time.Since(start),
					Model:   cfg.Model,
				}
			}
		case <-probeCtx.Done():
			return Health{
				Status:  HealthStatusUnhealthy,
				Message: fmt.Sprintf("health probe failed: %v", probeCtx.Err()),
				Latency: time.Since(start),
				Model:   cfg.Model,
			}
		}
	}
	return Health{
		Status:  HealthStatusUnhealthy,
		Message: "provider closed the stream without responding",
		Latency: time.Since(start),
		Model:   cfg.Model,
	}
}
