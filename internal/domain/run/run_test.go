package run

import (
	"testing"
	"time"
)

func TestNew_NormalizesToUTC(t *testing.T) {
	paris := time.FixedZone("CET", 3600)
	r := New("AROME", time.Date(2025, 1, 10, 7, 0, 30, 500, paris))

	want := time.Date(2025, 1, 10, 6, 0, 0, 0, time.UTC)
	if !r.At.Equal(want) {
		t.Fatalf("got %v, want %v", r.At, want)
	}
	if r.At.Location() != time.UTC {
		t.Fatalf("location %v, want UTC", r.At.Location())
	}
}

func TestAfter_IsStrict(t *testing.T) {
	at := time.Date(2025, 1, 10, 6, 0, 0, 0, time.UTC)
	r := New("GFS", at)

	if r.After(at) {
		t.Fatal("a run is not after its own timestamp")
	}
	if !r.After(at.Add(-6 * time.Hour)) {
		t.Fatal("run must be after the previous issuance")
	}
	if r.After(at.Add(6 * time.Hour)) {
		t.Fatal("run must not be after a later issuance")
	}
}

func TestHourAndDate(t *testing.T) {
	r := New("ECMWF", time.Date(2025, 1, 10, 18, 0, 0, 0, time.UTC))
	if r.Hour() != 18 {
		t.Fatalf("hour %d, want 18", r.Hour())
	}
	if want := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC); !r.Date().Equal(want) {
		t.Fatalf("date %v, want %v", r.Date(), want)
	}
}
