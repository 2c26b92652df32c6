package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/windlab/runwatch/internal/domain/model"
	"github.com/windlab/runwatch/internal/domain/run"
)

// Adapter resolves run availability for one provider. Implementations
// distinguish ordinary absence (no run yet, provider not configured)
// from infrastructure faults: absence is (nil, nil) / (false, nil),
// faults are returned as *Fault so the scheduler can escalate them.
type Adapter interface {
	// LatestRun resolves the most recent run the provider exposes.
	LatestRun(ctx context.Context) (*run.Run, error)
	// IsAvailable confirms a specific run against the provider. It
	// never consults the run cache; the cache serves latest lookups
	// only.
	IsAvailable(ctx context.Context, r run.Run) (bool, error)
}

type FaultKind string

const (
	FaultAuth      FaultKind = "auth"
	FaultParse     FaultKind = "parse"
	FaultTransport FaultKind = "transport"
)

// Fault is an infrastructure failure at a provider boundary, as opposed
// to a routine "no data yet" outcome.
type Fault struct {
	Kind  FaultKind
	Model string
	Err   error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s source %s fault: %v", f.Model, f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// AsFault extracts a *Fault from an error chain.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Registry maps model ids to their adapters and fronts latest-run
// lookups with the shared TTL cache. Built once at configuration time.
type Registry struct {
	cache    *RunCache
	adapters map[string]registration
}

type registration struct {
	model   model.Model
	adapter Adapter
}

func NewRegistry(cache *RunCache) *Registry {
	return &Registry{cache: cache, adapters: make(map[string]registration)}
}

func (g *Registry) Register(m model.Model, a Adapter) {
	g.adapters[m.ID] = registration{model: m, adapter: a}
}

func (g *Registry) Adapter(modelID string) (Adapter, bool) {
	reg, ok := g.adapters[modelID]
	return reg.adapter, ok
}

// LatestRun serves the cached latest run when fresh, otherwise queries
// the adapter and repopulates the cache. An instant outside the model's
// synoptic hours is still returned for the caller to reject, but never
// cached, so a provider glitch cannot pin the model for a whole TTL.
func (g *Registry) LatestRun(ctx context.Context, modelID string) (*run.Run, error) {
	reg, ok := g.adapters[modelID]
	if !ok {
		return nil, nil
	}
	if at, ok := g.cache.Get(modelID); ok {
		r := run.New(modelID, at)
		return &r, nil
	}
	r, err := reg.adapter.LatestRun(ctx)
	if err != nil {
		return nil, err
	}
	if r != nil && reg.model.HasHour(r.Hour()) {
		g.cache.Put(modelID, r.At)
	}
	return r, nil
}

// IsAvailable confirms a run directly against the adapter, bypassing
// the cache.
func (g *Registry) IsAvailable(ctx context.Context, r run.Run) (bool, error) {
	reg, ok := g.adapters[r.Model]
	if !ok {
		return false, nil
	}
	return reg.adapter.IsAvailable(ctx, r)
}
