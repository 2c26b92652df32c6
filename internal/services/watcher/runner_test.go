package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	config "github.com/windlab/runwatch/internal/config/watcher"
	"github.com/windlab/runwatch/internal/delaystats"
	"github.com/windlab/runwatch/internal/domain/alert"
	"github.com/windlab/runwatch/internal/domain/model"
	"github.com/windlab/runwatch/internal/domain/run"
	"github.com/windlab/runwatch/internal/source"
)

func TestCleanupDue(t *testing.T) {
	cases := []struct {
		now  string
		want bool
	}{
		{"2026-01-01T03:00:00Z", true},
		{"2026-01-01T03:14:59Z", true},
		{"2026-01-01T03:15:00Z", false},
		{"2026-01-01T02:59:00Z", false},
		{"2026-01-02T03:05:00Z", false},
		{"2026-02-01T03:05:00Z", false},
	}
	for _, c := range cases {
		now, err := time.Parse(time.RFC3339, c.now)
		if err != nil {
			t.Fatalf("parse %q: %v", c.now, err)
		}
		if got := cleanupDue(now); got != c.want {
			t.Errorf("cleanupDue(%s) = %v, want %v", c.now, got, c.want)
		}
	}
}

// panickySamples fails the retention pass the hard way.
type panickySamples struct{ memSamples }

func (p *panickySamples) DeleteBefore(context.Context, time.Time) (int64, error) {
	panic("delay_samples table gone")
}

type recordingEvents struct {
	mu   sync.Mutex
	runs []run.Run
}

func (e *recordingEvents) PublishRunDetected(_ context.Context, r run.Run, _ time.Time, _ int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runs = append(e.runs, r)
	return nil
}

// The runner registers its metrics in the process-wide registry, so it
// is built exactly once for the whole test binary. Both fault
// boundaries are exercised here: the per-model one and the sweep-level
// one around the retention pass.
func TestRunner_SweepFaultBoundaries(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 10, 10, 20, 0, 0, time.UTC)}
	log := zap.NewNop()

	var gfs, ecmwf model.Model
	for _, m := range model.Catalogue() {
		switch m.ID {
		case "GFS":
			gfs = m
		case "ECMWF":
			ecmwf = m
		}
	}

	gfsRun := run.New("GFS", time.Date(2025, 1, 10, 6, 0, 0, 0, time.UTC))
	good := &fakeAdapter{latest: &gfsRun, available: true}
	bad := &fakeAdapter{latestErr: &source.Fault{Kind: source.FaultTransport, Model: "ECMWF", Err: errors.New("timeout")}}

	registry := source.NewRegistry(source.NewRunCache(time.Minute, clock))
	registry.Register(gfs, good)
	registry.Register(ecmwf, bad)

	marks := &fakeMarks{last: map[string]time.Time{}}
	sender := &fakeSender{}
	alerts := &fakeAlerter{}
	samples := &panickySamples{}
	engine := delaystats.NewEngine(samples, clock, 30, 3, log)
	dispatcher := NewDispatcher(sender, alerts, time.Millisecond, log)
	uc := NewUC(registry, marks, &fakeSubs{ids: []int64{10}}, engine, dispatcher, alerts, clock, time.Second, log)

	events := &recordingEvents{}
	cfg := &config.WatchCfg{
		Interval:      time.Hour,
		ModelPause:    time.Millisecond,
		RetentionDays: 365,
	}
	// ECMWF first so its fault has the chance to derail GFS.
	r := New(log, uc, cfg, []model.Model{ecmwf, gfs}, events, clock)

	r.sweep(context.Background())
	r.bg.Wait()

	if len(sender.sent) != 1 {
		t.Fatalf("the healthy model must still notify, got %d sends", len(sender.sent))
	}
	if got := marks.last["GFS"]; !got.Equal(gfsRun.At) {
		t.Fatalf("watermark not advanced: %v", got)
	}
	if len(events.runs) != 1 || events.runs[0].Model != "GFS" {
		t.Fatalf("detection event not published: %v", events.runs)
	}

	// Move into the retention window: the cleanup pass panics, the
	// sweep boundary must absorb it and escalate.
	clock.t = time.Date(2026, 1, 1, 3, 5, 0, 0, time.UTC)
	r.sweep(context.Background())
	r.bg.Wait()

	if !alerts.sawKind(alert.KindSweepCritical) {
		t.Fatalf("sweep panic must be escalated, got %v", alerts.kinds)
	}
}
