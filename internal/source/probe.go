package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/windlab/runwatch/internal/domain/run"
)

// ProbeConfig configures the NOMADS-style existence probe.
type ProbeConfig struct {
	Model   string
	BaseURL string // e.g. https://nomads.ncep.noaa.gov/pub/data/nccf/com/gfs/prod
	Hours   []int  // synoptic hours, ascending
}

// ProbeAdapter detects runs by probing a deterministic date/hour-derived
// resource path with HEAD requests. The latest run is found by scanning
// backward over the last two calendar days, newest synoptic hour first.
type ProbeAdapter struct {
	cfg    ProbeConfig
	client *http.Client
	clock  run.Clock
	cache  *RunCache
	log    *zap.Logger
}

func NewProbeAdapter(cfg ProbeConfig, client *http.Client, clock run.Clock, cache *RunCache, log *zap.Logger) *ProbeAdapter {
	return &ProbeAdapter{
		cfg:    cfg,
		client: client,
		clock:  clock,
		cache:  cache,
		log:    log.With(zap.String("component", "source.probe"), zap.String("model", cfg.Model)),
	}
}

func (a *ProbeAdapter) LatestRun(ctx context.Context) (*run.Run, error) {
	now := a.clock.Now().UTC()

	for daysBack := 0; daysBack < 2; daysBack++ {
		day := now.AddDate(0, 0, -daysBack)
		for i := len(a.cfg.Hours) - 1; i >= 0; i-- {
			at := time.Date(day.Year(), day.Month(), day.Day(), a.cfg.Hours[i], 0, 0, 0, time.UTC)
			if at.After(now) {
				continue
			}
			ok, err := a.IsAvailable(ctx, run.New(a.cfg.Model, at))
			if err != nil {
				return nil, err
			}
			if ok {
				r := run.New(a.cfg.Model, at)
				return &r, nil
			}
		}
	}
	return nil, nil
}

func (a *ProbeAdapter) IsAvailable(ctx context.Context, r run.Run) (bool, error) {
	u := a.resourceURL(r.At)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return false, &Fault{Kind: FaultTransport, Model: a.cfg.Model, Err: err}
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return false, &Fault{Kind: FaultTransport, Model: a.cfg.Model, Err: err}
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		// Opportunistic: a confirmed run is by definition the freshest
		// answer a latest-run lookup could give.
		a.cache.Put(a.cfg.Model, run.Normalize(r.At))
		a.log.Debug("run confirmed", zap.Time("run", r.At))
		return true, nil
	}
	return false, nil
}

// resourceURL builds the analysis-file path for a run, the cheapest
// object whose existence implies the run is published.
func (a *ProbeAdapter) resourceURL(at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("%s/gfs.%s/%02d/atmos/gfs.t%02dz.pgrb2.0p25.f000",
		a.cfg.BaseURL, at.Format("20060102"), at.Hour(), at.Hour())
}
