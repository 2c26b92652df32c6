package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/windlab/runwatch/internal/domain/alert"
	"github.com/windlab/runwatch/internal/domain/run"
)

const DefaultAlertCooldown = 10 * time.Minute

// AdminAlerter pushes operator alerts to a fixed admin recipient,
// throttled per alert kind so a flapping fault cannot flood the chat.
type AdminAlerter struct {
	sender   Sender
	adminID  int64
	cooldown time.Duration
	clock    run.Clock
	log      *zap.Logger

	mu       sync.Mutex
	lastSent map[alert.Kind]time.Time
}

var _ alert.Alerter = (*AdminAlerter)(nil)

func NewAdminAlerter(sender Sender, adminID int64, cooldown time.Duration, clock run.Clock, log *zap.Logger) *AdminAlerter {
	if cooldown <= 0 {
		cooldown = DefaultAlertCooldown
	}
	return &AdminAlerter{
		sender:   sender,
		adminID:  adminID,
		cooldown: cooldown,
		clock:    clock,
		log:      log.With(zap.String("component", "notify.alerter")),
		lastSent: make(map[alert.Kind]time.Time),
	}
}

// Notify sends message tagged with kind, unless an alert of the same
// kind already went out within the cooldown. Returns true only when a
// message was actually delivered.
func (a *AdminAlerter) Notify(ctx context.Context, message string, kind alert.Kind) bool {
	if a.adminID == 0 {
		a.log.Warn("admin recipient not configured, alert dropped", zap.String("kind", string(kind)))
		return false
	}

	now := a.clock.Now()

	a.mu.Lock()
	if last, ok := a.lastSent[kind]; ok && now.Sub(last) < a.cooldown {
		a.mu.Unlock()
		a.log.Debug("alert throttled",
			zap.String("kind", string(kind)),
			zap.Duration("since_last", now.Sub(last)),
		)
		return false
	}
	a.mu.Unlock()

	if err := a.sender.Send(ctx, a.adminID, "🔔 *Admin Alert*\n\n"+message); err != nil {
		a.log.Error("admin alert delivery failed", zap.String("kind", string(kind)), zap.Error(err))
		return false
	}

	a.mu.Lock()
	a.lastSent[kind] = now
	a.mu.Unlock()

	a.log.Info("admin alerted", zap.String("kind", string(kind)))
	return true
}
