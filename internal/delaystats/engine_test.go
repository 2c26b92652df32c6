package delaystats

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/windlab/runwatch/internal/domain/delay"
	"github.com/windlab/runwatch/internal/domain/model"
	"github.com/windlab/runwatch/internal/domain/run"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

// memSampleRepo mimics the unique-key semantics of the real store.
type memSampleRepo struct {
	samples []*delay.Sample
	nextID  int64
}

func (m *memSampleRepo) key(s *delay.Sample) [3]any {
	return [3]any{s.Model, s.RunDate.Format("2006-01-02"), s.RunHour}
}

func (m *memSampleRepo) Insert(_ context.Context, s *delay.Sample) error {
	for _, have := range m.samples {
		if m.key(have) == m.key(s) {
			return nil // duplicate, silently ignored
		}
	}
	m.nextID++
	cp := *s
	cp.ID = m.nextID
	m.samples = append(m.samples, &cp)
	return nil
}

func (m *memSampleRepo) StatsSince(_ context.Context, mdl string, hour int, since time.Time) (delay.Stats, error) {
	var st delay.Stats
	var sum int
	var last *delay.Sample
	for _, s := range m.samples {
		if s.Model != mdl || s.RunHour != hour || !s.DetectedAt.After(since) {
			continue
		}
		if st.Count == 0 || s.DelayMinutes < st.MinMinutes {
			st.MinMinutes = s.DelayMinutes
		}
		if s.DelayMinutes > st.MaxMinutes {
			st.MaxMinutes = s.DelayMinutes
		}
		if last == nil || s.DetectedAt.After(last.DetectedAt) {
			last = s
		}
		sum += s.DelayMinutes
		st.Count++
	}
	if st.Count > 0 {
		st.AvgMinutes = float64(sum) / float64(st.Count)
		st.LastMinutes = last.DelayMinutes
	}
	return st, nil
}

func (m *memSampleRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []*delay.Sample
	var removed int64
	for _, s := range m.samples {
		if s.DetectedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	m.samples = kept
	return removed, nil
}

func at(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v.UTC()
}

func newTestEngine(repo delay.SampleRepo, now time.Time) *Engine {
	return NewEngine(repo, &fakeClock{t: now}, 30, 3, zap.NewNop())
}

func gfs(t *testing.T) model.Model {
	t.Helper()
	for _, m := range model.Catalogue() {
		if m.ID == "GFS" {
			return m
		}
	}
	t.Fatal("GFS missing from catalogue")
	return model.Model{}
}

func TestEngine_RecordIsIdempotent(t *testing.T) {
	repo := &memSampleRepo{}
	now := at(t, "2025-01-10T10:20:00Z")
	e := newTestEngine(repo, now)

	r := run.New("GFS", at(t, "2025-01-10T06:00:00Z"))
	for i := 0; i < 3; i++ {
		if err := e.Record(context.Background(), r, now); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	if len(repo.samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(repo.samples))
	}
	if repo.samples[0].DelayMinutes != 260 {
		t.Fatalf("got delay %d min, want 260", repo.samples[0].DelayMinutes)
	}
}

func TestEngine_StatsBelowMinimumIsInsufficient(t *testing.T) {
	repo := &memSampleRepo{}
	now := at(t, "2025-01-10T12:00:00Z")
	e := newTestEngine(repo, now)

	r := run.New("GFS", at(t, "2025-01-09T06:00:00Z"))
	if err := e.Record(context.Background(), r, at(t, "2025-01-09T10:30:00Z")); err != nil {
		t.Fatalf("record: %v", err)
	}

	st, err := e.Stats(context.Background(), "GFS", 6)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("got err %v, want ErrInsufficientData", err)
	}
	if st.Count != 1 {
		t.Fatalf("partial stats should still come back, got count %d", st.Count)
	}
}

func TestEngine_PredictETA_FromHistory(t *testing.T) {
	repo := &memSampleRepo{}
	now := at(t, "2025-01-10T00:00:00Z")
	e := newTestEngine(repo, now)
	ctx := context.Background()

	// Three detections of the 06h run: 250, 260 and 270 minutes late.
	days := []struct {
		run, det string
	}{
		{"2025-01-07T06:00:00Z", "2025-01-07T10:10:00Z"},
		{"2025-01-08T06:00:00Z", "2025-01-08T10:20:00Z"},
		{"2025-01-09T06:00:00Z", "2025-01-09T10:30:00Z"},
	}
	for _, d := range days {
		if err := e.Record(ctx, run.New("GFS", at(t, d.run)), at(t, d.det)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	eta, ok, err := e.PredictETA(ctx, gfs(t), 6, at(t, "2025-01-10T00:00:00Z"))
	if err != nil || !ok {
		t.Fatalf("got (%v, %v, %v)", eta, ok, err)
	}
	want := at(t, "2025-01-10T10:20:00Z") // 06:00 + avg 260 min
	if !eta.Equal(want) {
		t.Fatalf("got %v, want %v", eta, want)
	}
}

func TestEngine_PredictETA_FallbackWhenInsufficient(t *testing.T) {
	repo := &memSampleRepo{}
	now := at(t, "2025-01-10T00:00:00Z")
	e := newTestEngine(repo, now)

	m := gfs(t)
	eta, ok, err := e.PredictETA(context.Background(), m, 6, at(t, "2025-01-10T00:00:00Z"))
	if err != nil || !ok {
		t.Fatalf("got (%v, %v, %v)", eta, ok, err)
	}
	want := at(t, "2025-01-10T06:00:00Z").Add(m.FallbackDelay[6])
	if !eta.Equal(want) {
		t.Fatalf("got %v, want fallback %v", eta, want)
	}
}

func TestEngine_PredictETA_NoFallbackHour(t *testing.T) {
	m := model.Model{ID: "TEST", SynopticHours: []int{0}}
	e := newTestEngine(&memSampleRepo{}, at(t, "2025-01-10T00:00:00Z"))

	_, ok, err := e.PredictETA(context.Background(), m, 0, at(t, "2025-01-10T00:00:00Z"))
	if err != nil || ok {
		t.Fatalf("got (ok=%v, err=%v), want no estimate", ok, err)
	}
}

func TestEngine_StatsWindowExcludesOldSamples(t *testing.T) {
	repo := &memSampleRepo{}
	now := at(t, "2025-03-01T00:00:00Z")
	e := newTestEngine(repo, now)
	ctx := context.Background()

	// Inside the 30 day window.
	for _, d := range []string{"2025-02-20", "2025-02-21", "2025-02-22"} {
		if err := e.Record(ctx, run.New("GFS", at(t, d+"T06:00:00Z")), at(t, d+"T10:00:00Z")); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	// Far outside it, with a wildly different delay.
	if err := e.Record(ctx, run.New("GFS", at(t, "2024-12-01T06:00:00Z")), at(t, "2024-12-01T18:00:00Z")); err != nil {
		t.Fatalf("record: %v", err)
	}

	st, err := e.Stats(ctx, "GFS", 6)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Count != 3 {
		t.Fatalf("got count %d, want 3 (old sample excluded)", st.Count)
	}
	if st.AvgMinutes != 240 {
		t.Fatalf("got avg %v, want 240", st.AvgMinutes)
	}
}

func TestEngine_Cleanup(t *testing.T) {
	repo := &memSampleRepo{}
	now := at(t, "2026-01-01T03:05:00Z")
	e := newTestEngine(repo, now)
	ctx := context.Background()

	if err := e.Record(ctx, run.New("GFS", at(t, "2024-06-01T06:00:00Z")), at(t, "2024-06-01T10:00:00Z")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := e.Record(ctx, run.New("GFS", at(t, "2025-12-31T06:00:00Z")), at(t, "2025-12-31T10:00:00Z")); err != nil {
		t.Fatalf("record: %v", err)
	}

	removed, err := e.Cleanup(ctx, 365)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed %d, want 1", removed)
	}
	if len(repo.samples) != 1 {
		t.Fatalf("kept %d samples, want 1", len(repo.samples))
	}
}
