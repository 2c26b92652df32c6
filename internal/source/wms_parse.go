package source

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// The WMS 1.3.0 capabilities document advertises reference times as
// <Dimension> (or legacy <Extent>) elements whose text is either a
// comma-separated instant list or a start/end/period interval.

var timeDimensionNames = map[string]bool{
	"time":           true,
	"reference_time": true,
	"referencetime":  true,
}

// parseCapabilityRuns extracts every advertised run instant from a
// capabilities document, deduplicated and sorted newest first.
func parseCapabilityRuns(doc []byte) ([]time.Time, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))

	var runs []time.Time
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode capabilities: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		local := start.Name.Local
		if local != "Dimension" && local != "Extent" {
			continue
		}
		named := false
		for _, attr := range start.Attr {
			if attr.Name.Local == "name" && timeDimensionNames[strings.ToLower(attr.Value)] {
				named = true
				break
			}
		}
		if !named {
			continue
		}
		var text string
		if err := dec.DecodeElement(&text, &start); err != nil {
			return nil, fmt.Errorf("decode %s element: %w", local, err)
		}
		runs = append(runs, parseTimeDimension(text)...)
	}

	seen := make(map[time.Time]bool, len(runs))
	out := runs[:0]
	for _, r := range runs {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
	return out, nil
}

// parseTimeDimension handles both dimension encodings:
//
//	list:     2025-11-27T00:00:00Z,2025-11-27T06:00:00Z,...
//	interval: 2025-11-26T00:00:00Z/2025-11-27T18:00:00Z/PT6H
func parseTimeDimension(s string) []time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if strings.Count(s, "/") == 2 {
		parts := strings.Split(s, "/")
		start, okS := parseISOInstant(parts[0])
		end, okE := parseISOInstant(parts[1])
		step, okP := parseISODuration(parts[2])
		if okS && okE && okP && step > 0 {
			var out []time.Time
			for cur := start; !cur.After(end); cur = cur.Add(step) {
				out = append(out, cur)
			}
			return out
		}
		return nil
	}

	var out []time.Time
	for _, v := range strings.Split(s, ",") {
		if t, ok := parseISOInstant(strings.TrimSpace(v)); ok {
			out = append(out, t)
		}
	}
	return out
}

var instantLayouts = []string{
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04Z",
	"2006-01-02",
}

func parseISOInstant(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

var durationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?)?$`)

// parseISODuration covers the period forms the capability documents
// actually use: PnD, PTnH, PTnM and their combinations.
func parseISODuration(s string) (time.Duration, bool) {
	m := durationRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return 0, false
	}
	days := atoiDefault(m[1])
	hours := atoiDefault(m[2])
	minutes := atoiDefault(m[3])
	if days == 0 && hours == 0 && minutes == 0 {
		return 0, false
	}
	return time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute, true
}

func atoiDefault(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
