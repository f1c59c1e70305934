package metrics

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "mobility_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	queryRequests *prometheus.CounterVec

	streamSubscribers prometheus.Gauge
	streamPublished   prometheus.Counter
	streamDropped     prometheus.Counter

	exportTotal *prometheus.CounterVec

	readingsStored prometheus.Gauge
)

// Init registers observability metrics and the DB-backed stored-readings
// gauge. Safe to call once; subsequent calls are no-ops.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total ingest requests by result",
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		queryRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "query_requests_total",
				Help: "Total historical query requests by endpoint",
			},
			[]string{"endpoint"},
		)

		streamSubscribers = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "stream_subscribers",
				Help: "Currently connected stream subscribers",
			},
		)
		streamPublished = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "stream_events_published_total",
				Help: "Total events fanned out to at least one subscriber",
			},
		)
		streamDropped = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "stream_events_dropped_total",
				Help: "Total events evicted from backed-up subscriber buffers",
			},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total export operations by format and result",
			},
			[]string{"format", "result"},
		)

		readingsStored = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "readings_stored",
				Help: "Total readings currently stored",
			},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestErrors,
			ingestLatency,
			queryRequests,
			streamSubscribers,
			streamPublished,
			streamDropped,
			exportTotal,
			readingsStored,
		)

		if db != nil {
			go pollStoredReadings(db, logger)
		}
	})
}

func pollStoredReadings(db *sql.DB, logger *log.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var count int64
		err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM leituras").Scan(&count)
		cancel()
		if err != nil {
			if logger != nil {
				logger.Printf("metrics: stored readings poll error: %v", err)
			}
			continue
		}
		readingsStored.Set(float64(count))
	}
}

// IngestSuccess records a successful ingest with its latency.
func IngestSuccess(elapsed time.Duration) {
	if ingestRequests == nil {
		return
	}
	ingestRequests.WithLabelValues(resultSuccess).Inc()
	ingestLatency.WithLabelValues(resultSuccess).Observe(elapsed.Seconds())
}

// IngestError records a failed ingest with its reason.
func IngestError(reason string, elapsed time.Duration) {
	if ingestRequests == nil {
		return
	}
	ingestRequests.WithLabelValues(resultError).Inc()
	ingestErrors.WithLabelValues(reason).Inc()
	ingestLatency.WithLabelValues(resultError).Observe(elapsed.Seconds())
}

// QueryServed records a historical query by endpoint.
func QueryServed(endpoint string) {
	if queryRequests == nil {
		return
	}
	queryRequests.WithLabelValues(endpoint).Inc()
}

// StreamSubscribed records a new live subscriber.
func StreamSubscribed() {
	if streamSubscribers == nil {
		return
	}
	streamSubscribers.Inc()
}

// StreamUnsubscribed records a subscriber leaving.
func StreamUnsubscribed() {
	if streamSubscribers == nil {
		return
	}
	streamSubscribers.Dec()
}

// StreamPublished records a fan-out that reached at least one subscriber.
func StreamPublished() {
	if streamPublished == nil {
		return
	}
	streamPublished.Inc()
}

// StreamDropped records an event evicted from a full subscriber buffer.
func StreamDropped() {
	if streamDropped == nil {
		return
	}
	streamDropped.Inc()
}

// ExportResult records an export operation outcome.
func ExportResult(format string, err error) {
	if exportTotal == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	exportTotal.WithLabelValues(format, result).Inc()
}
