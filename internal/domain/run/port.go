package run

import (
	"context"
	"time"
)

// WatermarkRepo persists the last notified run per model.
type WatermarkRepo interface {
	// Last returns the watermark for a model, or zero time when unset.
	Last(ctx context.Context, model string) (time.Time, error)
	// Advance moves the watermark to runAt. The store guarantees the
	// watermark never decreases; advancing to an older or equal value
	// is a no-op.
	Advance(ctx context.Context, model string, runAt time.Time) error
}

type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock implementation used outside tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
