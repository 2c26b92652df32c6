package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/windlab/runwatch/internal/domain/alert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(_ context.Context, _ int64, payload string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, payload)
	return nil
}

func TestAdminAlerter_CooldownPerKind(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)}
	sender := &fakeSender{}
	a := NewAdminAlerter(sender, 42, 10*time.Minute, clock, zap.NewNop())
	ctx := context.Background()

	if !a.Notify(ctx, "gfs api down", alert.APIError("GFS")) {
		t.Fatal("first alert must go out")
	}
	if a.Notify(ctx, "gfs api still down", alert.APIError("GFS")) {
		t.Fatal("second alert of the same kind inside cooldown must be suppressed")
	}
	if !a.Notify(ctx, "arome key revoked", alert.AuthError("AROME")) {
		t.Fatal("different kind is throttled independently")
	}

	clock.t = clock.t.Add(10*time.Minute + time.Second)
	if !a.Notify(ctx, "gfs api down again", alert.APIError("GFS")) {
		t.Fatal("alert must go out again once the cooldown lapsed")
	}

	if len(sender.sent) != 3 {
		t.Fatalf("delivered %d alerts, want 3", len(sender.sent))
	}
	if !strings.Contains(sender.sent[0], "Admin Alert") {
		t.Fatalf("alert payload missing header: %q", sender.sent[0])
	}
}

func TestAdminAlerter_NoRecipientConfigured(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)}
	sender := &fakeSender{}
	a := NewAdminAlerter(sender, 0, time.Minute, clock, zap.NewNop())

	if a.Notify(context.Background(), "anything", alert.KindDBError) {
		t.Fatal("alert without a recipient must report not delivered")
	}
	if len(sender.sent) != 0 {
		t.Fatal("nothing should have been sent")
	}
}

func TestAdminAlerter_FailedDeliveryDoesNotStartCooldown(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)}
	sender := &fakeSender{err: errors.New("telegram down")}
	a := NewAdminAlerter(sender, 42, 10*time.Minute, clock, zap.NewNop())
	ctx := context.Background()

	if a.Notify(ctx, "first try", alert.KindDBError) {
		t.Fatal("failed delivery must report false")
	}

	sender.err = nil
	if !a.Notify(ctx, "second try", alert.KindDBError) {
		t.Fatal("retry right after a failed send must not be throttled")
	}
}
