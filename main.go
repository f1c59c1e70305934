package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	readingsapp "mobility-cloud/internal/readings/application"
	readingspostgres "mobility-cloud/internal/readings/infrastructure/postgres"
	readingsredis "mobility-cloud/internal/readings/infrastructure/redis"
	readingshttp "mobility-cloud/internal/readings/interfaces/http"

	"mobility-cloud/internal/observability/metrics"
	"mobility-cloud/internal/stream"
	"mobility-cloud/internal/tenancy"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)

	repo := readingspostgres.NewReadingRepository(db)
	query := readingspostgres.NewReadingQuery(db)
	broker := stream.NewBroker(stream.WithBufferSize(cfg.StreamBuffer))
	resolver := tenancy.AddressResolver{}

	var cache readingsapp.LatestCache
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		latest, err := readingsredis.NewLatestCache(client)
		if err != nil {
			logger.Fatalf("latest cache error: %v", err)
		}
		cache = latest
		logger.Printf("latest-reading cache enabled on %s", cfg.RedisAddr)
	}

	ingestOpts := []readingsapp.IngestOption{}
	aggOpts := []readingsapp.AggregationOption{}
	if cache != nil {
		ingestOpts = append(ingestOpts, readingsapp.WithLatestCache(cache))
		aggOpts = append(aggOpts, readingsapp.WithAggregationCache(cache))
	}

	ingestService, err := readingsapp.NewIngestionService(repo, broker, logger, ingestOpts...)
	if err != nil {
		logger.Fatalf("ingestion service error: %v", err)
	}
	aggService, err := readingsapp.NewAggregationService(query, logger, aggOpts...)
	if err != nil {
		logger.Fatalf("aggregation service error: %v", err)
	}
	ingestHandler, err := readingshttp.NewIngestHandler(ingestService, resolver, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/enviar", ingestHandler)
	mux.Handle("/api/leituras-hoje", readingshttp.NewTodayHandler(aggService, resolver))
	mux.Handle("/api/alertas-por-hora", readingshttp.NewAlertHistogramHandler(aggService, resolver))
	mux.Handle("/api/datas-disponiveis", readingshttp.NewAvailableDaysHandler(aggService, resolver))
	mux.Handle("/api/ultima-leitura", readingshttp.NewLatestHandler(aggService, resolver))
	mux.Handle("/api/stream", stream.NewStreamHandler(broker, resolver))
	mux.Handle("/api/exports/leituras.xlsx", readingshttp.NewExportReadingsXLSXHandler(aggService, resolver))
	mux.Handle("/api/exports/alertas.pdf", readingshttp.NewExportAlertsPDFHandler(aggService, resolver))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL  string
	HTTPAddr     string
	RedisAddr    string
	StreamBuffer int
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:  getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:     getenvDefault("HTTP_ADDR", ":8080"),
		RedisAddr:    getenvDefault("REDIS_ADDR", ""),
		StreamBuffer: getenvIntDefault("STREAM_BUFFER", 16),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush keeps SSE streaming working through the logging wrapper.
func (w *statusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
