package readings

import (
	"context"
	"time"
)

// CivilZone is the fixed timezone used to interpret stored timestamps for
// day boundaries and presentation. Timestamps themselves are stored without
// a timezone; only query windows and "today" use this zone.
var CivilZone = time.FixedZone("UTC-3", -3*60*60)

// Reading is a single telemetry sample, immutable once persisted. A
// deployment reports either the distance variant or the temperature
// variant; the envelope carries both as optional values.
type Reading struct {
	ID          int64
	DistanceCM  *float64
	Temperature *float64
	Humidity    *float64
	Alert       bool
	At          time.Time
	Origin      string
}

// Repository persists readings append-only.
type Repository interface {
	Insert(ctx context.Context, reading Reading) (int64, error)
}

// Query loads readings scoped to one origin. Implementations must filter by
// origin in every query; this is the tenancy boundary.
type Query interface {
	QueryByOriginAndDay(ctx context.Context, origin string, day time.Time) ([]Reading, error)
	DistinctDays(ctx context.Context, origin string) ([]time.Time, error)
	CountAlertsByHour(ctx context.Context, origin string, day time.Time) ([24]int, error)
	LatestByOrigin(ctx context.Context, origin string) (*Reading, error)
}

// CivilTime rebases t onto UTC keeping the civil-zone wall clock, so the
// stored value compares correctly against day windows built with DayWindow.
func CivilTime(t time.Time) time.Time {
	t = t.In(CivilZone)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// Today returns the civil day containing now, normalized to UTC midnight.
func Today(now time.Time) time.Time {
	n := now.In(CivilZone)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// DayWindow returns the half-open [start, end) window for the civil day.
func DayWindow(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// PeriodOfDay returns the coarse time-of-day label for an hour (0..23).
func PeriodOfDay(hour int) string {
	switch {
	case hour < 6:
		return "madrugada"
	case hour < 12:
		return "manha"
	case hour < 18:
		return "tarde"
	default:
		return "noite"
	}
}
