package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// EventPublishPolicy governs retries of run-detected event publishes.
// A dropped event only degrades dashboards, so attempts stay modest.
func EventPublishPolicy(log *zap.Logger) Policy {
	return Policy{
		Name:     "run_events_publish",
		Attempts: 4,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 10 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("event publish retry", zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("event publish retries exhausted", zap.Error(err))
			}
		},
	}
}
