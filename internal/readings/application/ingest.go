package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mobility-cloud/internal/observability/metrics"
	readings "mobility-cloud/internal/readings/domain"
)

// Publisher fans a reading event out to live viewers of one origin.
type Publisher interface {
	Publish(origin string, event any)
}

// LatestCache keeps the newest reading per origin for cheap lookups. Cache
// failures never fail an ingest.
type LatestCache interface {
	SetLatest(ctx context.Context, origin string, view ReadingView) error
	GetLatest(ctx context.Context, origin string) (*ReadingView, error)
}

// IngestPayload is the inbound telemetry shape. `distancia_cm` and
// `distancia` are synonyms for the distance value; the temperature variant
// carries `temperatura` and `umidade` instead.
type IngestPayload struct {
	DistanceCM  *float64 `json:"distancia_cm"`
	Distance    *float64 `json:"distancia"`
	Temperature *float64 `json:"temperatura"`
	Humidity    *float64 `json:"umidade"`
	Alert       bool     `json:"alerta"`
	Timestamp   string   `json:"data_hora"`
}

// Ack acknowledges a persisted reading with the origin the producer was
// classified under.
type Ack struct {
	Origin string
}

// IngestionService validates, persists and fans out inbound readings.
type IngestionService struct {
	repo      readings.Repository
	publisher Publisher
	cache     LatestCache
	clock     Clock
	logger    *log.Logger
}

// IngestOption configures the ingestion service.
type IngestOption func(*IngestionService)

// WithLatestCache enables latest-reading write-through.
func WithLatestCache(cache LatestCache) IngestOption {
	return func(s *IngestionService) { s.cache = cache }
}

// WithClock overrides the service clock.
func WithClock(clock Clock) IngestOption {
	return func(s *IngestionService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewIngestionService constructs an ingestion service.
func NewIngestionService(repo readings.Repository, publisher Publisher, logger *log.Logger, opts ...IngestOption) (*IngestionService, error) {
	if repo == nil {
		return nil, errors.New("ingestion: nil repository")
	}
	if publisher == nil {
		return nil, errors.New("ingestion: nil publisher")
	}
	if logger == nil {
		logger = log.Default()
	}
	service := &IngestionService{repo: repo, publisher: publisher, clock: SystemClock{}, logger: logger}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Submit normalizes and persists one reading under origin, then publishes
// it to that origin's live viewers. One store write and one fan-out per
// call; the fan-out never blocks on slow viewers.
func (s *IngestionService) Submit(ctx context.Context, payload IngestPayload, origin string) (Ack, error) {
	start := time.Now()

	reading, err := s.normalize(payload, origin)
	if err != nil {
		metrics.IngestError("validation", time.Since(start))
		return Ack{}, err
	}

	id, err := s.repo.Insert(ctx, reading)
	if err != nil {
		metrics.IngestError("persistence", time.Since(start))
		return Ack{}, err
	}
	reading.ID = id

	view := ViewOf(reading)
	s.publisher.Publish(origin, view)

	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, origin, view); err != nil {
			s.logger.Printf("ingest: latest cache write error: %v", err)
		}
	}

	metrics.IngestSuccess(time.Since(start))
	return Ack{Origin: origin}, nil
}

func (s *IngestionService) normalize(payload IngestPayload, origin string) (readings.Reading, error) {
	if origin == "" {
		return readings.Reading{}, fmt.Errorf("%w: empty origin", readings.ErrValidation)
	}

	distance := payload.DistanceCM
	if distance == nil {
		distance = payload.Distance
	}
	if distance == nil && payload.Temperature == nil {
		return readings.Reading{}, fmt.Errorf("%w: missing measurement value", readings.ErrValidation)
	}

	return readings.Reading{
		DistanceCM:  distance,
		Temperature: payload.Temperature,
		Humidity:    payload.Humidity,
		Alert:       payload.Alert,
		At:          s.resolveTimestamp(payload.Timestamp),
		Origin:      origin,
	}, nil
}

// resolveTimestamp parses the producer-supplied timestamp. A missing or
// unparseable value falls back to the current civil time; the fallback is
// silent and never rejects the reading.
func (s *IngestionService) resolveTimestamp(value string) time.Time {
	if value != "" {
		if t, err := time.ParseInLocation("2006-01-02T15:04:05", value, time.UTC); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return readings.CivilTime(t)
		}
	}
	return readings.CivilTime(s.clock.Now())
}
