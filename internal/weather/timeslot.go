package weather

import (
	"fmt"
	"time"
)

// CanonicalLayout is the YYYYMMDDHHMMSS form the extraction prompt asks for.
const CanonicalLayout = "20060102150405"

// DisplayLayout is how effective times are shown to the composer.
const DisplayLayout = "2006-01-02 15:04:05"

// ParseExtractedTimestamp parses a 14-digit YYYYMMDDHHMMSS string in the
// location of fallbackNow. Anything malformed yields fallbackNow.
func ParseExtractedTimestamp(raw string, fallbackNow time.Time) time.Time {
	ts, err := ParseCanonical(raw, fallbackNow.Location())
	if err != nil {
		return fallbackNow
	}
	return ts
}

// ParseCanonical is the strict form of ParseExtractedTimestamp.
func ParseCanonical(raw string, loc *time.Location) (time.Time, error) {
	if len(raw) != len(CanonicalLayout) {
		return time.Time{}, fmt.Errorf("%w: want %d digits, got %q", ErrInvalidTimestamp, len(CanonicalLayout), raw)
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return time.Time{}, fmt.Errorf("%w: non-digit in %q", ErrInvalidTimestamp, raw)
		}
	}
	if loc == nil {
		loc = time.Local
	}
	ts, err := time.ParseInLocation(CanonicalLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTimestamp, err)
	}
	return ts, nil
}

// FormatCanonical renders t as YYYYMMDDHHMMSS.
func FormatCanonical(t time.Time) string {
	return t.Format(CanonicalLayout)
}

// SlotKind selects the rounding rule of a SlotPolicy.
type SlotKind int

const (
	// SlotNowcast rounds down to the last fully published window before now.
	SlotNowcast SlotKind = iota
	// SlotForecast rounds to the nearest slot boundary, ties up.
	SlotForecast
)

// SlotPolicy describes a provider's reporting granularity.
type SlotPolicy struct {
	Kind SlotKind
	Size time.Duration
	// Lag is the publication delay of nowcast windows.
	Lag time.Duration
	// Anchor is the zone whose midnight the grid is counted from.
	// Nil means the zone of the time being rounded.
	Anchor *time.Location
}

var (
	// OpenWeatherForecastSlots matches the 5 day / 3 hour forecast list,
	// which is spaced from UTC midnight.
	OpenWeatherForecastSlots = SlotPolicy{Kind: SlotForecast, Size: 3 * time.Hour, Anchor: time.UTC}
	// OpenWeatherNowcastSlots matches the current weather refresh cadence.
	OpenWeatherNowcastSlots = SlotPolicy{Kind: SlotNowcast, Size: time.Hour, Lag: 10 * time.Minute}
)

// Round maps ts onto the provider's slot grid, counted from midnight in
// Anchor. Nowcast rounding depends only on now; forecast rounding depends
// only on ts and may roll over into the next day. The result is in the
// location of the input it was derived from.
func (p SlotPolicy) Round(ts, now time.Time) time.Time {
	if p.Size <= 0 {
		return ts
	}

	switch p.Kind {
	case SlotNowcast:
		ref := p.anchored(now.Add(-p.Lag))
		start := midnight(ref)
		elapsed := ref.Sub(start)
		return start.Add(elapsed / p.Size * p.Size).In(now.Location())
	default:
		t := p.anchored(ts)
		start := midnight(t)
		elapsed := t.Sub(start)
		idx := (elapsed + p.Size/2) / p.Size
		return start.Add(idx * p.Size).In(ts.Location())
	}
}

func (p SlotPolicy) anchored(t time.Time) time.Time {
	if p.Anchor == nil {
		return t
	}
	return t.In(p.Anchor)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
