package delay

import "time"

// Sample is one observed detection delay: how long after the nominal
// issuance a run was confirmed available. At most one sample exists per
// (model, run date, run hour).
type Sample struct {
	ID           int64     `json:"id"`
	Model        string    `json:"model"`
	RunDate      time.Time `json:"run_date"`
	RunHour      int       `json:"run_hour"`
	DetectedAt   time.Time `json:"detected_at"`
	DelayMinutes int       `json:"delay_minutes"`
}

// Stats summarizes samples for one (model, run hour) over a trailing window.
type Stats struct {
	Count       int
	AvgMinutes  float64
	MinMinutes  int
	MaxMinutes  int
	LastMinutes int
}
