package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shibata-rui-dn/OneAgent-sub001/config"
	"github.com/shibata-rui-dn/OneAgent-sub001/provider"
)

// turnStream is one live provider turn: a peeked first chunk plus the
// remaining channels and the cancel releasing the per-call timeout context.
type turnStream struct {
	first  *provider.Chunk
	chunks <-chan provider.Chunk
	errs   <-chan error
	cancel context.CancelFunc
}

// callWithRetry starts a provider call and waits for its first chunk.
// Failures before any chunk arrives are transient by definition and retried
// with linear backoff (delay × attempt number) up to the configured attempt
// count, emitting one EventRetry per re-attempt. Errors after streaming has
// begun are not retried here; the turn consumer surfaces them.
//
// The returned turnStream's cancel must be called once the turn is consumed.
func (e *Engine) callWithRetry(
	ctx context.Context,
	cfg config.Config,
	client provider.Client,
	req provider.Request,
	emit func(Event) bool,
) (*turnStream, error) {
	attempts := cfg.RetryAttempts + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if !emit(newRetryEvent(attempt-1, fmt.Sprintf("retrying provider call (attempt %d of %d)", attempt, attempts))) {
				return nil, ctx.Err()
			}
			backoff := cfg.RetryDelay * time.Duration(attempt-1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		chunks, errs := client.Generate(callCtx, req)

		select {
		case <-ctx.Done():
			cancel()
			return nil, ctx.Err()
		case ck, ok := <-chunks:
			if ok {
				return &turnStream{first: &ck, chunks: chunks, errs: errs, cancel: cancel}, nil
			}
			// Channel closed without output; check for a pending error.
			if err, hasErr := <-errs; hasErr && err != nil {
				lastErr = err
				cancel()
				e.logger.Warn("engine.provider.attempt_failed", "attempt", attempt, "error", err.Error())
				continue
			}
			// Legitimately empty turn.
			return &turnStream{chunks: chunks, errs: errs, cancel: cancel}, nil
		case err, ok := <-errs:
			cancel()
			if !ok || err == nil {
				// Error channel closed cleanly before any chunk: empty turn.
				closed := make(chan provider.Chunk)
				close(closed)
				closedErrs := make(chan error)
				close(closedErrs)
				return &turnStream{chunks: closed, errs: closedErrs, cancel: func() {}}, nil
			}
			lastErr = err
			e.logger.Warn("engine.provider.attempt_failed", "attempt", attempt, "error", err.Error())
		}
	}

	return nil, fmt.Errorf("provider call failed after %d attempts: %w", attempts, lastErr)
}
