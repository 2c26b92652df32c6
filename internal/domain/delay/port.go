package delay

import (
	"context"
	"time"
)

// SampleRepo is the append-only delay-sample log.
type SampleRepo interface {
	// Insert records a sample. Duplicate (model, run date, run hour)
	// inserts are silently ignored so retries and restarts stay
	// idempotent.
	Insert(ctx context.Context, s *Sample) error
	// StatsSince aggregates samples for (model, hour) detected after
	// the cutoff. A zero Count means no samples in the window.
	StatsSince(ctx context.Context, model string, hour int, since time.Time) (Stats, error)
	// DeleteBefore removes samples detected before the cutoff and
	// returns how many rows went away.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
