package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/windlab/runwatch/internal/domain/run"
)

// LatestClient answers the vendor distribution's "latest zero-lead-time
// forecast metadata" query.
type LatestClient interface {
	Latest(ctx context.Context) (time.Time, error)
}

// VendorAdapter wraps a provider whose feed only exposes a monotonic
// "latest run" pointer, not a list of available instants. Availability
// of a specific run is therefore latest >= requested, deliberately
// asymmetric to the other adapters: demanding exact equality would
// stall notifications whenever the pointer jumps past an unobserved
// run.
type VendorAdapter struct {
	model  string
	client LatestClient
	log    *zap.Logger
}

func NewVendorAdapter(model string, client LatestClient, log *zap.Logger) *VendorAdapter {
	return &VendorAdapter{
		model:  model,
		client: client,
		log:    log.With(zap.String("component", "source.vendor"), zap.String("model", model)),
	}
}

func (a *VendorAdapter) LatestRun(ctx context.Context) (*run.Run, error) {
	at, err := a.client.Latest(ctx)
	if err != nil {
		return nil, &Fault{Kind: FaultTransport, Model: a.model, Err: err}
	}
	if at.IsZero() {
		return nil, nil
	}
	r := run.New(a.model, at)
	return &r, nil
}

func (a *VendorAdapter) IsAvailable(ctx context.Context, r run.Run) (bool, error) {
	latest, err := a.client.Latest(ctx)
	if err != nil {
		return false, &Fault{Kind: FaultTransport, Model: a.model, Err: err}
	}
	if latest.IsZero() {
		return false, nil
	}
	return !run.Normalize(latest).Before(run.Normalize(r.At)), nil
}

// HTTPLatestClient fetches the vendor's latest-forecast metadata
// document over HTTP.
type HTTPLatestClient struct {
	URL    string
	Client *http.Client
}

func (c *HTTPLatestClient) Latest(ctx context.Context) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return time.Time{}, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return time.Time{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("latest metadata request: status %d", resp.StatusCode)
	}

	var payload struct {
		Datetime time.Time `json:"datetime"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return time.Time{}, fmt.Errorf("decode latest metadata: %w", err)
	}
	return payload.Datetime, nil
}
