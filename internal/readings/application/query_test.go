package application

import (
	"context"
	"testing"
	"time"

	readings "mobility-cloud/internal/readings/domain"
)

type stubQuery struct {
	byDay     map[string][]readings.Reading
	days      []time.Time
	histogram [24]int
	latest    *readings.Reading

	lastOrigin string
	lastDay    time.Time
}

func (s *stubQuery) QueryByOriginAndDay(_ context.Context, origin string, day time.Time) ([]readings.Reading, error) {
	s.lastOrigin, s.lastDay = origin, day
	return s.byDay[origin], nil
}

func (s *stubQuery) DistinctDays(_ context.Context, origin string) ([]time.Time, error) {
	s.lastOrigin = origin
	return s.days, nil
}

func (s *stubQuery) CountAlertsByHour(_ context.Context, origin string, day time.Time) ([24]int, error) {
	s.lastOrigin, s.lastDay = origin, day
	return s.histogram, nil
}

func (s *stubQuery) LatestByOrigin(_ context.Context, origin string) (*readings.Reading, error) {
	s.lastOrigin = origin
	return s.latest, nil
}

func newAggregation(t *testing.T, query readings.Query, opts ...AggregationOption) *AggregationService {
	t.Helper()
	service, err := NewAggregationService(query, testLogger(), opts...)
	if err != nil {
		t.Fatalf("new aggregation service: %v", err)
	}
	return service
}

func TestTodayReadingsShaping(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	query := &stubQuery{byDay: map[string][]readings.Reading{
		"1.2.3.4": {{ID: 1, DistanceCM: floatPtr(45.2), Alert: true, At: at, Origin: "1.2.3.4"}},
	}}
	// Noon UTC on 2024-01-01 is still 2024-01-01 in the civil zone.
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	service := newAggregation(t, query, WithAggregationClock(fixedClock{at: now}))

	views, err := service.TodayReadings(context.Background(), "1.2.3.4")
	if err != nil {
		t.Fatalf("today readings: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("got %d views, want 1", len(views))
	}
	if views[0].Time != "10:00:00" {
		t.Fatalf("time = %q, want 10:00:00", views[0].Time)
	}
	wantDay := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !query.lastDay.Equal(wantDay) {
		t.Fatalf("queried day %v, want %v", query.lastDay, wantDay)
	}
}

func TestTodayReadingsEmptyForForeignOrigin(t *testing.T) {
	query := &stubQuery{byDay: map[string][]readings.Reading{}}
	service := newAggregation(t, query)

	views, err := service.TodayReadings(context.Background(), "5.6.7.8")
	if err != nil {
		t.Fatalf("today readings: %v", err)
	}
	if views == nil || len(views) != 0 {
		t.Fatalf("views = %v, want empty non-nil slice", views)
	}
}

func TestAlertsByHourDense(t *testing.T) {
	query := &stubQuery{}
	query.histogram[5] = 3
	service := newAggregation(t, query)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	histogram, err := service.AlertsByHour(context.Background(), "1.2.3.4", &day)
	if err != nil {
		t.Fatalf("alerts by hour: %v", err)
	}
	if histogram.Day != "2024-01-01" {
		t.Fatalf("day = %q, want 2024-01-01", histogram.Day)
	}
	if len(histogram.Buckets) != 24 {
		t.Fatalf("got %d buckets, want 24", len(histogram.Buckets))
	}
	sum := 0
	for hour, bucket := range histogram.Buckets {
		if bucket.Hour != hour {
			t.Fatalf("bucket %d labeled hour %d", hour, bucket.Hour)
		}
		sum += bucket.Alerts
	}
	if sum != 3 {
		t.Fatalf("histogram sum = %d, want 3", sum)
	}
}

func TestAlertsByHourDefaultsToCivilToday(t *testing.T) {
	query := &stubQuery{}
	// 01:00 UTC on Jan 2 is still Jan 1 in UTC-3.
	now := time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC)
	service := newAggregation(t, query, WithAggregationClock(fixedClock{at: now}))

	histogram, err := service.AlertsByHour(context.Background(), "1.2.3.4", nil)
	if err != nil {
		t.Fatalf("alerts by hour: %v", err)
	}
	if histogram.Day != "2024-01-01" {
		t.Fatalf("default day = %q, want 2024-01-01", histogram.Day)
	}
}

func TestAvailableDaysFormatting(t *testing.T) {
	query := &stubQuery{days: []time.Time{
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
	service := newAggregation(t, query)

	days, err := service.AvailableDays(context.Background(), "1.2.3.4")
	if err != nil {
		t.Fatalf("available days: %v", err)
	}
	if len(days) != 2 || days[0] != "2024-01-02" || days[1] != "2024-01-01" {
		t.Fatalf("days = %v", days)
	}
}

func TestLatestReadingPrefersCache(t *testing.T) {
	cached := ReadingView{DistanceCM: floatPtr(9), Time: "09:00:00"}
	query := &stubQuery{latest: &readings.Reading{ID: 1, DistanceCM: floatPtr(99), At: time.Now()}}
	service := newAggregation(t, query, WithAggregationCache(&stubCache{get: &cached}))

	view, err := service.LatestReading(context.Background(), "1.2.3.4")
	if err != nil {
		t.Fatalf("latest reading: %v", err)
	}
	if view == nil || *view.DistanceCM != 9 {
		t.Fatalf("view = %+v, want cached value", view)
	}
}

func TestLatestReadingStoreFallback(t *testing.T) {
	at := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	query := &stubQuery{latest: &readings.Reading{ID: 1, DistanceCM: floatPtr(50), At: at}}
	service := newAggregation(t, query, WithAggregationCache(&stubCache{}))

	view, err := service.LatestReading(context.Background(), "1.2.3.4")
	if err != nil {
		t.Fatalf("latest reading: %v", err)
	}
	if view == nil || *view.DistanceCM != 50 || view.Time != "08:00:00" {
		t.Fatalf("view = %+v", view)
	}
}

func TestLatestReadingNone(t *testing.T) {
	service := newAggregation(t, &stubQuery{})

	view, err := service.LatestReading(context.Background(), "1.2.3.4")
	if err != nil {
		t.Fatalf("latest reading: %v", err)
	}
	if view != nil {
		t.Fatalf("view = %+v, want nil", view)
	}
}
