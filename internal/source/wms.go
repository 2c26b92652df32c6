package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/windlab/runwatch/internal/domain/run"
)

// WMSConfig configures one capabilities-document provider endpoint.
type WMSConfig struct {
	Model  string
	URL    string // full GetCapabilities URL
	APIKey string // empty key disables the adapter
}

// WMSAdapter watches a Météo-France style WMS endpoint. The latest run
// is the maximum instant advertised in the capabilities time dimension;
// availability of a specific run is exact membership in that set.
type WMSAdapter struct {
	cfg     WMSConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

func NewWMSAdapter(cfg WMSConfig, client *http.Client, log *zap.Logger) *WMSAdapter {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "wms-" + cfg.Model,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &WMSAdapter{
		cfg:     cfg,
		client:  client,
		breaker: cb,
		log:     log.With(zap.String("component", "source.wms"), zap.String("model", cfg.Model)),
	}
}

func (a *WMSAdapter) LatestRun(ctx context.Context) (*run.Run, error) {
	runs, err := a.availableRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	r := run.New(a.cfg.Model, runs[0])
	return &r, nil
}

func (a *WMSAdapter) IsAvailable(ctx context.Context, r run.Run) (bool, error) {
	runs, err := a.availableRuns(ctx)
	if err != nil {
		return false, err
	}
	want := run.Normalize(r.At)
	for _, at := range runs {
		if run.Normalize(at).Equal(want) {
			return true, nil
		}
	}
	return false, nil
}

// availableRuns fetches and parses the capabilities document. Ordinary
// absence (no key, routine non-success status, empty document) comes
// back as an empty slice; credential rejection and malformed payloads
// come back as faults.
func (a *WMSAdapter) availableRuns(ctx context.Context) ([]time.Time, error) {
	if a.cfg.APIKey == "" {
		a.log.Debug("no api key configured, skipping")
		return nil, nil
	}

	body, status, err := a.fetch(ctx)
	if err != nil {
		return nil, &Fault{Kind: FaultTransport, Model: a.cfg.Model, Err: err}
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, &Fault{Kind: FaultAuth, Model: a.cfg.Model, Err: fmt.Errorf("api key rejected with status %d", status)}
	case status != http.StatusOK:
		a.log.Warn("capabilities request failed", zap.Int("status", status))
		return nil, nil
	}

	runs, err := parseCapabilityRuns(body)
	if err != nil {
		return nil, &Fault{Kind: FaultParse, Model: a.cfg.Model, Err: err}
	}
	if len(runs) == 0 {
		a.log.Warn("no runs advertised in capabilities document")
		return nil, nil
	}
	a.log.Debug("capabilities parsed",
		zap.Int("runs", len(runs)),
		zap.Time("latest", runs[0]),
	)
	return runs, nil
}

func (a *WMSAdapter) fetch(ctx context.Context) ([]byte, int, error) {
	u, err := url.Parse(a.cfg.URL)
	if err != nil {
		return nil, 0, fmt.Errorf("parse capabilities url: %w", err)
	}
	q := u.Query()
	q.Set("service", "WMS")
	q.Set("version", "1.3.0")
	q.Set("language", "fre")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("apikey", a.cfg.APIKey)

	res, err := a.breaker.Execute(func() (interface{}, error) {
		resp, doErr := a.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		defer resp.Body.Close()

		b, readErr := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		if readErr != nil {
			return nil, readErr
		}
		return fetchResult{body: b, status: resp.StatusCode}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, 0, fmt.Errorf("circuit open: %w", err)
		}
		return nil, 0, err
	}
	fr := res.(fetchResult)
	return fr.body, fr.status, nil
}

type fetchResult struct {
	body   []byte
	status int
}
