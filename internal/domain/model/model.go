package model

import "time"

// Model describes one numerical weather model we watch.
type Model struct {
	ID            string
	Description   string
	Emoji         string
	SynopticHours []int
	// FallbackDelay maps run hour to the static delay used for ETA
	// prediction while too few samples have been collected.
	FallbackDelay map[int]time.Duration
}

// HasHour reports whether h is one of the model's issuance hours.
func (m Model) HasHour(h int) bool {
	for _, sh := range m.SynopticHours {
		if sh == h {
			return true
		}
	}
	return false
}

// Catalogue returns the watched models in their fixed sweep order.
func Catalogue() []Model {
	return []Model{
		{
			ID:            "AROME",
			Description:   "Haute résolution France (1.3km)",
			Emoji:         "⛵",
			SynopticHours: []int{0, 3, 6, 12, 18},
			FallbackDelay: map[int]time.Duration{
				0:  4*time.Hour + 30*time.Minute,
				3:  4*time.Hour + 30*time.Minute,
				6:  4*time.Hour + 30*time.Minute,
				12: 4*time.Hour + 30*time.Minute,
				18: 4*time.Hour + 30*time.Minute,
			},
		},
		{
			ID:            "ARPEGE",
			Description:   "Europe/Monde (0.1°)",
			Emoji:         "🌍",
			SynopticHours: []int{0, 6, 12, 18},
			FallbackDelay: map[int]time.Duration{
				0:  5 * time.Hour,
				6:  5 * time.Hour,
				12: 5 * time.Hour,
				18: 5 * time.Hour,
			},
		},
		{
			ID:            "GFS",
			Description:   "Global NOAA (0.25°)",
			Emoji:         "🌎",
			SynopticHours: []int{0, 6, 12, 18},
			FallbackDelay: map[int]time.Duration{
				0:  5 * time.Hour,
				6:  5 * time.Hour,
				12: 5 * time.Hour,
				18: 5 * time.Hour,
			},
		},
		{
			ID:            "ECMWF",
			Description:   "Centre Européen (0.25°)",
			Emoji:         "🇪🇺",
			SynopticHours: []int{0, 6, 12, 18},
			FallbackDelay: map[int]time.Duration{
				0:  7 * time.Hour,
				6:  7 * time.Hour,
				12: 7 * time.Hour,
				18: 7 * time.Hour,
			},
		},
	}
}
