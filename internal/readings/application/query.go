package application

import (
	"context"
	"errors"
	"log"
	"time"

	readings "mobility-cloud/internal/readings/domain"
)

const dayLayout = "2006-01-02"

// AggregationService serves the read-only historical queries, scoped to one
// origin per call.
type AggregationService struct {
	query  readings.Query
	cache  LatestCache
	clock  Clock
	logger *log.Logger
}

// AggregationOption configures the aggregation service.
type AggregationOption func(*AggregationService)

// WithAggregationCache enables latest-reading cache lookups.
func WithAggregationCache(cache LatestCache) AggregationOption {
	return func(s *AggregationService) { s.cache = cache }
}

// WithAggregationClock overrides the service clock.
func WithAggregationClock(clock Clock) AggregationOption {
	return func(s *AggregationService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewAggregationService constructs an aggregation service.
func NewAggregationService(query readings.Query, logger *log.Logger, opts ...AggregationOption) (*AggregationService, error) {
	if query == nil {
		return nil, errors.New("aggregation: nil query")
	}
	if logger == nil {
		logger = log.Default()
	}
	service := &AggregationService{query: query, clock: SystemClock{}, logger: logger}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// TodayReadings returns the origin's readings for the current civil day,
// ascending by time.
func (s *AggregationService) TodayReadings(ctx context.Context, origin string) ([]ReadingView, error) {
	day := readings.Today(s.clock.Now())
	return s.DayReadings(ctx, origin, day)
}

// DayReadings returns the origin's readings for one civil day.
func (s *AggregationService) DayReadings(ctx context.Context, origin string, day time.Time) ([]ReadingView, error) {
	rows, err := s.query.QueryByOriginAndDay(ctx, origin, day)
	if err != nil {
		return nil, err
	}
	views := make([]ReadingView, 0, len(rows))
	for _, reading := range rows {
		views = append(views, ViewOf(reading))
	}
	return views, nil
}

// AlertsByHour returns the dense 24-bucket alert histogram for the given
// civil day, defaulting to today when day is nil.
func (s *AggregationService) AlertsByHour(ctx context.Context, origin string, day *time.Time) (AlertHistogram, error) {
	resolved := readings.Today(s.clock.Now())
	if day != nil {
		resolved = *day
	}

	counts, err := s.query.CountAlertsByHour(ctx, origin, resolved)
	if err != nil {
		return AlertHistogram{}, err
	}

	buckets := make([]HourCount, 24)
	for hour := range counts {
		buckets[hour] = HourCount{Hour: hour, Alerts: counts[hour]}
	}
	return AlertHistogram{Day: resolved.Format(dayLayout), Buckets: buckets}, nil
}

// AvailableDays returns the civil days with data for the origin, newest
// first. An empty result means the caller should fall back to today.
func (s *AggregationService) AvailableDays(ctx context.Context, origin string) ([]string, error) {
	days, err := s.query.DistinctDays(ctx, origin)
	if err != nil {
		return nil, err
	}
	formatted := make([]string, 0, len(days))
	for _, day := range days {
		formatted = append(formatted, day.Format(dayLayout))
	}
	return formatted, nil
}

// LatestReading returns the origin's newest reading, preferring the cache
// when one is configured. Returns nil when the origin has no readings.
func (s *AggregationService) LatestReading(ctx context.Context, origin string) (*ReadingView, error) {
	if s.cache != nil {
		view, err := s.cache.GetLatest(ctx, origin)
		if err != nil {
			s.logger.Printf("aggregation: latest cache read error: %v", err)
		} else if view != nil {
			return view, nil
		}
	}

	reading, err := s.query.LatestByOrigin(ctx, origin)
	if err != nil {
		return nil, err
	}
	if reading == nil {
		return nil, nil
	}
	view := ViewOf(*reading)
	return &view, nil
}
