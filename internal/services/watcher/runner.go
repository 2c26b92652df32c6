package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	config "github.com/windlab/runwatch/internal/config/watcher"
	"github.com/windlab/runwatch/internal/domain/alert"
	"github.com/windlab/runwatch/internal/domain/model"
	"github.com/windlab/runwatch/internal/domain/run"
	"github.com/windlab/runwatch/internal/obs/retry"
)

// RunEvents publishes confirmed detections to the event stream. A nil
// implementation disables publishing entirely.
type RunEvents interface {
	PublishRunDetected(ctx context.Context, r run.Run, detectedAt time.Time, subscribers int) error
}

type Runner struct {
	Log    *zap.Logger
	UC     *Usecase
	Cfg    *config.WatchCfg
	Models []model.Model
	Events RunEvents
	Clock  run.Clock

	bg sync.WaitGroup

	mChecked  prometheus.Counter
	mDetected prometheus.Counter
	mNotified prometheus.Counter
	mErr      prometheus.Counter
	mSweepDur prometheus.Histogram
	mCleaned  prometheus.Counter
}

func New(log *zap.Logger, uc *Usecase, cfg *config.WatchCfg, models []model.Model, events RunEvents, clock run.Clock) *Runner {
	return &Runner{
		Log:    log,
		UC:     uc,
		Cfg:    cfg,
		Models: models,
		Events: events,
		Clock:  clock,
		mChecked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watcher_models_checked_total", Help: "Model checks performed",
		}),
		mDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watcher_runs_detected_total", Help: "New runs confirmed available",
		}),
		mNotified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watcher_notifications_sent_total", Help: "Subscriber pushes delivered",
		}),
		mErr: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watcher_errors_total", Help: "Errors in the watch loop",
		}),
		mSweepDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "watcher_sweep_duration_seconds", Help: "Full sweep duration",
			Buckets: prometheus.DefBuckets,
		}),
		mCleaned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watcher_samples_cleaned_total", Help: "Delay samples removed by retention",
		}),
	}
}

// Run drives the sweep loop until ctx is cancelled. The first sweep
// starts immediately rather than one interval in.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Cfg.Interval)
	defer ticker.Stop()

	r.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			r.bg.Wait()
			return ctx.Err()
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep is the outer error boundary: a panic anywhere outside the
// per-model checks, the retention pass included, must not unwind
// through Run and take the process down.
func (r *Runner) sweep(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.mErr.Inc()
			r.Log.Error("sweep panicked", zap.Any("panic", rec))
			r.UC.Alerts.Notify(ctx,
				fmt.Sprintf("Sweep aborted by panic: %v", rec),
				alert.KindSweepCritical)
		}
	}()

	start := time.Now()
	detected := 0

	for i, m := range r.Models {
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.Cfg.ModelPause):
			}
		}
		if r.checkModel(ctx, m) {
			detected++
		}
	}

	r.maybeCleanup(ctx)

	r.mSweepDur.Observe(time.Since(start).Seconds())
	r.Log.Debug("sweep complete",
		zap.Int("models", len(r.Models)),
		zap.Int("detected", detected),
		zap.Duration("took", time.Since(start)))
}

// checkModel is the per-model error boundary: whatever one provider
// does, the sweep moves on to the next model.
func (r *Runner) checkModel(ctx context.Context, m model.Model) (detected bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.mErr.Inc()
			r.Log.Error("model check panicked",
				zap.String("model", m.ID), zap.Any("panic", rec))
			r.UC.Alerts.Notify(ctx,
				fmt.Sprintf("Panic while checking %s: %v", m.ID, rec),
				alert.Unexpected(m.ID))
		}
	}()

	r.mChecked.Inc()

	det, err := r.UC.CheckModel(ctx, m)
	if err != nil {
		r.mErr.Inc()
		r.Log.Warn("model check failed", zap.String("model", m.ID), zap.Error(err))
	}
	if det == nil {
		return false
	}

	r.mDetected.Inc()
	r.mNotified.Add(float64(det.Recipients))
	r.publishDetection(ctx, *det)
	return true
}

// publishDetection hands the event off to a tracked goroutine so a slow
// broker never delays the next model. Failures stay inside the goroutine.
func (r *Runner) publishDetection(ctx context.Context, det Detection) {
	if r.Events == nil {
		return
	}
	r.bg.Add(1)
	go func() {
		defer r.bg.Done()
		err := retry.Do(ctx, func() error {
			return r.Events.PublishRunDetected(ctx, det.Run, det.DetectedAt, det.Recipients)
		}, retry.EventPublishPolicy(r.Log))
		if err != nil {
			r.mErr.Inc()
			r.Log.Error("run event lost",
				zap.String("model", det.Run.Model),
				zap.Time("run_at", det.Run.At),
				zap.Error(err))
		}
	}()
}

// cleanupDue reports whether now falls inside the annual pruning
// window. The sweep cadence is coarse, so a quarter-hour gate on
// January 1st yields exactly one pruning pass per year.
func cleanupDue(now time.Time) bool {
	now = now.UTC()
	if now.Month() != time.January || now.Day() != 1 {
		return false
	}
	return now.Hour() == 3 && now.Minute() < 15
}

func (r *Runner) maybeCleanup(ctx context.Context) {
	if !cleanupDue(r.Clock.Now()) {
		return
	}

	removed, err := r.UC.Stats.Cleanup(ctx, r.Cfg.RetentionDays)
	if err != nil {
		r.mErr.Inc()
		r.Log.Error("retention cleanup failed", zap.Error(err))
		r.UC.Alerts.Notify(ctx,
			fmt.Sprintf("Annual delay-sample cleanup failed: %v", err),
			alert.KindDBError)
		return
	}
	r.mCleaned.Add(float64(removed))
	r.Log.Info("retention cleanup done", zap.Int64("removed", removed))
}
