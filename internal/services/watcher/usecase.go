package watcher

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/windlab/runwatch/internal/delaystats"
	"github.com/windlab/runwatch/internal/domain/alert"
	"github.com/windlab/runwatch/internal/domain/model"
	"github.com/windlab/runwatch/internal/domain/run"
	"github.com/windlab/runwatch/internal/domain/subscriber"
	"github.com/windlab/runwatch/internal/obs"
	"github.com/windlab/runwatch/internal/source"
)

// Detection describes one confirmed new run, for the event stream.
type Detection struct {
	Run        run.Run
	DetectedAt time.Time
	Recipients int
}

type Usecase struct {
	Sources  *source.Registry
	Marks    run.WatermarkRepo
	Subs     subscriber.Store
	Stats    *delaystats.Engine
	Dispatch *Dispatcher
	Alerts   alert.Alerter
	Clock    run.Clock
	Log      *zap.Logger

	// Timeout bounds each outbound call so one stuck provider cannot
	// hold a sweep hostage.
	Timeout time.Duration
}

func NewUC(sources *source.Registry, marks run.WatermarkRepo, subs subscriber.Store,
	stats *delaystats.Engine, dispatch *Dispatcher, alerts alert.Alerter,
	clock run.Clock, timeout time.Duration, log *zap.Logger) *Usecase {
	return &Usecase{
		Sources:  sources,
		Marks:    marks,
		Subs:     subs,
		Stats:    stats,
		Dispatch: dispatch,
		Alerts:   alerts,
		Clock:    clock,
		Timeout:  timeout,
		Log:      log,
	}
}

// CheckModel runs one detection pass for a single model: resolve the
// newest run the provider advertises, compare it against the watermark,
// confirm availability, fan out notifications, record the delay sample
// and advance the watermark. A nil Detection means nothing new.
func (u *Usecase) CheckModel(ctx context.Context, m model.Model) (*Detection, error) {
	tr := otel.Tracer("watcher.uc")
	ctxCheck, span := tr.Start(ctx, "watcher.check_model",
		trace.WithAttributes(attribute.String("model.id", m.ID)),
	)
	defer span.End()

	latest, err := u.latestRun(ctxCheck, m)
	if err != nil {
		span.RecordError(err)
		u.escalateSourceError(ctxCheck, m, err)
		return nil, fmt.Errorf("latest run %s: %w", m.ID, err)
	}
	if latest == nil {
		span.SetAttributes(attribute.String("check.status", "no_run"))
		return nil, nil
	}
	if !m.HasHour(latest.Hour()) {
		u.Log.Warn("provider advertised a run outside the synoptic set",
			zap.String("model", m.ID), zap.Time("run_at", latest.At))
		span.SetAttributes(attribute.String("check.status", "off_cycle"))
		return nil, nil
	}
	span.SetAttributes(attribute.String("run.at", latest.At.Format(time.RFC3339)))

	mark, err := u.Marks.Last(ctxCheck, m.ID)
	if err != nil {
		span.RecordError(err)
		u.Alerts.Notify(ctxCheck,
			fmt.Sprintf("Watermark read failed for %s: %v", m.ID, err),
			alert.KindDBError)
		return nil, fmt.Errorf("watermark read %s: %w", m.ID, err)
	}
	if !mark.IsZero() && !latest.After(mark) {
		span.SetAttributes(attribute.String("check.status", "already_notified"))
		return nil, nil
	}

	available, err := u.confirmAvailable(ctxCheck, *latest)
	if err != nil {
		span.RecordError(err)
		u.escalateSourceError(ctxCheck, m, err)
		return nil, fmt.Errorf("availability %s: %w", m.ID, err)
	}
	if !available {
		u.Log.Debug("run advertised but not served yet",
			zap.String("model", m.ID), zap.Time("run_at", latest.At))
		span.SetAttributes(attribute.String("check.status", "not_available"))
		return nil, nil
	}

	detectedAt := u.Clock.Now()
	obs.WithTrace(ctxCheck, u.Log).Info("new run detected",
		zap.String("model", m.ID),
		zap.Time("run_at", latest.At),
		zap.Time("detected_at", detectedAt))

	recipients, err := u.Subs.ListSubscribed(ctxCheck, m.ID, latest.Hour())
	if err != nil {
		span.RecordError(err)
		u.Alerts.Notify(ctxCheck,
			fmt.Sprintf("Subscriber lookup failed for %s: %v", m.ID, err),
			alert.KindDBError)
		return nil, fmt.Errorf("subscribers %s: %w", m.ID, err)
	}

	sent, failed := u.Dispatch.SendAll(ctxCheck, recipients, BuildRunMessage(m, *latest, detectedAt))
	span.SetAttributes(
		attribute.Int("notify.sent", sent),
		attribute.Int("notify.failed", failed),
	)

	if err := u.Stats.Record(ctxCheck, *latest, detectedAt); err != nil {
		// Losing one sample only blurs the averages, keep going.
		span.RecordError(err)
		u.Log.Warn("delay sample not recorded",
			zap.String("model", m.ID), zap.Error(err))
	}

	det := &Detection{Run: *latest, DetectedAt: detectedAt, Recipients: sent}

	if err := u.Marks.Advance(ctxCheck, m.ID, latest.At); err != nil {
		span.RecordError(err)
		u.Alerts.Notify(ctxCheck,
			fmt.Sprintf("Watermark write failed for %s after notifying %d subscribers: %v. The next sweep will re-detect this run and may notify again.",
				m.ID, sent, err),
			alert.KindDBError)
		return det, fmt.Errorf("watermark advance %s: %w", m.ID, err)
	}

	span.SetAttributes(attribute.String("check.status", "notified"))
	return det, nil
}

func (u *Usecase) latestRun(ctx context.Context, m model.Model) (*run.Run, error) {
	cctx, cancel := u.bound(ctx)
	defer cancel()
	return u.Sources.LatestRun(cctx, m.ID)
}

func (u *Usecase) confirmAvailable(ctx context.Context, r run.Run) (bool, error) {
	cctx, cancel := u.bound(ctx)
	defer cancel()
	return u.Sources.IsAvailable(cctx, r)
}

func (u *Usecase) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if u.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, u.Timeout)
}

// escalateSourceError maps a source failure onto the throttled admin
// alert channel. Auth failures get their own kind so a revoked API key
// is not drowned out by transient network noise.
func (u *Usecase) escalateSourceError(ctx context.Context, m model.Model, err error) {
	f, ok := source.AsFault(err)
	if !ok {
		u.Alerts.Notify(ctx,
			fmt.Sprintf("Unexpected failure while checking %s: %v", m.ID, err),
			alert.Unexpected(m.ID))
		return
	}
	switch f.Kind {
	case source.FaultAuth:
		u.Alerts.Notify(ctx,
			fmt.Sprintf("Authentication rejected by the %s API: %v. Check the API key.", m.ID, f.Err),
			alert.AuthError(m.ID))
	case source.FaultParse:
		u.Alerts.Notify(ctx,
			fmt.Sprintf("Unreadable response from the %s API: %v", m.ID, f.Err),
			alert.APIError(m.ID))
	default:
		u.Alerts.Notify(ctx,
			fmt.Sprintf("Request to the %s API failed: %v", m.ID, f.Err),
			alert.APIError(m.ID))
	}
}
