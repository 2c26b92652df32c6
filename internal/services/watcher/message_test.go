package watcher

import (
	"strings"
	"testing"
	"time"

	"github.com/windlab/runwatch/internal/domain/model"
	"github.com/windlab/runwatch/internal/domain/run"
)

func TestBuildRunMessage(t *testing.T) {
	m := model.Model{ID: "ARPEGE", Emoji: "🌍"}
	r := run.New("ARPEGE", time.Date(2025, 1, 10, 6, 0, 0, 0, time.UTC))
	notified := time.Date(2025, 1, 10, 11, 7, 0, 0, time.UTC)

	msg := BuildRunMessage(m, r, notified)
	for _, want := range []string{"🌍", "ARPEGE", "06h UTC", "10/01/2025", "11:07"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestBuildRunMessage_DefaultEmoji(t *testing.T) {
	m := model.Model{ID: "ICON"}
	r := run.New("ICON", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	msg := BuildRunMessage(m, r, time.Now())
	if !strings.Contains(msg, "🌐") {
		t.Error("unknown model should fall back to the generic emoji")
	}
}
