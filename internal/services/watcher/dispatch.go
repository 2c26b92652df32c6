package watcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/windlab/runwatch/internal/domain/alert"
	"github.com/windlab/runwatch/internal/notify"
)

// DefaultSendSpacing is the pause between consecutive pushes. Telegram
// starts throttling bots around 30 messages per second.
const DefaultSendSpacing = 50 * time.Millisecond

// Dispatcher fans a single payload out to a list of chat ids,
// sequentially and with a fixed spacing between sends.
type Dispatcher struct {
	Sender  notify.Sender
	Alerts  alert.Alerter
	Spacing time.Duration
	Log     *zap.Logger
}

func NewDispatcher(sender notify.Sender, alerts alert.Alerter, spacing time.Duration, log *zap.Logger) *Dispatcher {
	if spacing <= 0 {
		spacing = DefaultSendSpacing
	}
	return &Dispatcher{Sender: sender, Alerts: alerts, Spacing: spacing, Log: log}
}

// SendAll delivers payload to every recipient. A failed send is logged
// and escalated but never stops delivery to the remaining recipients.
// Cancellation of ctx aborts the loop between sends.
func (d *Dispatcher) SendAll(ctx context.Context, recipients []int64, payload string) (sent, failed int) {
	for i, chatID := range recipients {
		if i > 0 {
			select {
			case <-ctx.Done():
				d.Log.Warn("dispatch aborted",
					zap.Int("sent", sent), zap.Int("remaining", len(recipients)-i))
				return sent, failed
			case <-time.After(d.Spacing):
			}
		}

		if err := d.Sender.Send(ctx, chatID, payload); err != nil {
			failed++
			d.Log.Error("notification failed",
				zap.Int64("chat_id", chatID), zap.Error(err))
			d.Alerts.Notify(ctx,
				fmt.Sprintf("Failed to notify chat %d: %v", chatID, err),
				alert.KindNotifyFailure)
			continue
		}
		sent++
	}
	return sent, failed
}
