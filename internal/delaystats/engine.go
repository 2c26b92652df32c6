// Package delaystats records how late each model run was detected and
// turns that history into availability predictions.
package delaystats

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/windlab/runwatch/internal/domain/delay"
	"github.com/windlab/runwatch/internal/domain/model"
	"github.com/windlab/runwatch/internal/domain/run"
)

const (
	DefaultWindowDays    = 30
	DefaultMinSamples    = 3
	DefaultRetentionDays = 365
)

// ErrInsufficientData is returned by Stats when fewer samples exist in
// the window than the trust threshold requires.
var ErrInsufficientData = errors.New("insufficient delay samples")

type Engine struct {
	repo       delay.SampleRepo
	clock      run.Clock
	windowDays int
	minSamples int
	log        *zap.Logger
}

func NewEngine(repo delay.SampleRepo, clock run.Clock, windowDays, minSamples int, log *zap.Logger) *Engine {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	return &Engine{
		repo:       repo,
		clock:      clock,
		windowDays: windowDays,
		minSamples: minSamples,
		log:        log.With(zap.String("component", "delaystats")),
	}
}

// Record logs the detection delay for a confirmed run. Duplicate
// records for the same (model, run date, run hour) are no-ops, so the
// scheduler may call this again after a watermark write failure.
func (e *Engine) Record(ctx context.Context, r run.Run, detectedAt time.Time) error {
	minutes := int(math.Round(detectedAt.Sub(r.At).Minutes()))
	s := &delay.Sample{
		Model:        r.Model,
		RunDate:      r.Date(),
		RunHour:      r.Hour(),
		DetectedAt:   detectedAt.UTC(),
		DelayMinutes: minutes,
	}
	if err := e.repo.Insert(ctx, s); err != nil {
		return fmt.Errorf("insert delay sample: %w", err)
	}
	e.log.Debug("delay recorded",
		zap.String("model", r.Model),
		zap.Int("run_hour", r.Hour()),
		zap.Int("delay_min", minutes),
	)
	return nil
}

// Stats aggregates the trailing window for (model, hour). Results are
// only trusted above the minimum sample count; below it
// ErrInsufficientData is returned alongside whatever was found.
func (e *Engine) Stats(ctx context.Context, model string, hour int) (delay.Stats, error) {
	since := e.clock.Now().AddDate(0, 0, -e.windowDays)
	st, err := e.repo.StatsSince(ctx, model, hour, since)
	if err != nil {
		return delay.Stats{}, fmt.Errorf("delay stats: %w", err)
	}
	if st.Count < e.minSamples {
		return st, ErrInsufficientData
	}
	return st, nil
}

// PredictETA estimates when the run issued on date at the given hour
// will become available. Trusted history wins; otherwise the model's
// static fallback delay applies. The second return is false when no
// estimate can be made at all.
func (e *Engine) PredictETA(ctx context.Context, m model.Model, hour int, date time.Time) (time.Time, bool, error) {
	runAt := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, time.UTC)

	st, err := e.Stats(ctx, m.ID, hour)
	switch {
	case err == nil:
		d := time.Duration(math.Round(st.AvgMinutes)) * time.Minute
		return runAt.Add(d), true, nil
	case errors.Is(err, ErrInsufficientData):
		if d, ok := m.FallbackDelay[hour]; ok {
			return runAt.Add(d), true, nil
		}
		return time.Time{}, false, nil
	default:
		return time.Time{}, false, err
	}
}

// Cleanup drops samples older than the retention horizon.
func (e *Engine) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	cutoff := e.clock.Now().AddDate(0, 0, -retentionDays)
	n, err := e.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delay cleanup: %w", err)
	}
	if n > 0 {
		e.log.Info("delay samples purged", zap.Int64("removed", n))
	}
	return n, nil
}
