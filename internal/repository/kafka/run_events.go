package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/windlab/runwatch/internal/domain/run"
)

// RunDetectedEvent is published when a sweep confirms a new run. The
// chat front end and any dashboards consume this topic; subscriber
// pushes do not depend on it.
type RunDetectedEvent struct {
	Model       string    `json:"model"`
	RunAt       time.Time `json:"run_at"`
	DetectedAt  time.Time `json:"detected_at"`
	Subscribers int       `json:"subscribers"`
}

type RunEventsKafka struct {
	p *Producer
}

func NewRunEventsKafka(p *Producer) *RunEventsKafka { return &RunEventsKafka{p: p} }

func (e *RunEventsKafka) PublishRunDetected(ctx context.Context, r run.Run, detectedAt time.Time, subscribers int) error {
	key := fmt.Sprintf("%s:%d", r.Model, r.At.Unix())
	return e.p.PublishJSON(ctx, key, RunDetectedEvent{
		Model:       r.Model,
		RunAt:       r.At,
		DetectedAt:  detectedAt.UTC(),
		Subscribers: subscribers,
	})
}
