package run

import "time"

// Run identifies one issuance of a weather model: model id plus the
// synoptic timestamp, always UTC with zero minutes and seconds.
type Run struct {
	Model string    `json:"model"`
	At    time.Time `json:"at"`
}

// New builds a Run with the timestamp normalized to UTC.
func New(model string, at time.Time) Run {
	return Run{Model: model, At: Normalize(at)}
}

// Normalize converts t to UTC and drops sub-minute precision, the
// granularity at which provider feeds and our comparisons operate.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

// After reports whether r is a strictly newer issuance than other.
func (r Run) After(other time.Time) bool {
	return r.At.After(Normalize(other))
}

func (r Run) Hour() int { return r.At.UTC().Hour() }

// Date returns the run's calendar day at midnight UTC.
func (r Run) Date() time.Time {
	y, m, d := r.At.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
