package readingshttp

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"mobility-cloud/internal/observability/metrics"
	"mobility-cloud/internal/readings/application"
	readings "mobility-cloud/internal/readings/domain"
	"mobility-cloud/internal/tenancy"
)

const dayLayout = "2006-01-02"

// IngestHandler receives edge telemetry on POST /api/enviar.
type IngestHandler struct {
	service *application.IngestionService
	origins tenancy.KeyResolver
	logger  *log.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(service *application.IngestionService, origins tenancy.KeyResolver, logger *log.Logger) (*IngestHandler, error) {
	if service == nil {
		return nil, errors.New("ingest handler: nil service")
	}
	if origins == nil {
		return nil, errors.New("ingest handler: nil origin resolver")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestHandler{service: service, origins: origins, logger: logger}, nil
}

type ingestResponse struct {
	Status       string `json:"status"`
	RegisteredIP string `json:"ip_registrado"`
}

// ServeHTTP ingests one reading.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("ingest: read body error: %v", err)
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload application.IngestPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Printf("ingest: decode error: %v", err)
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	ack, err := h.service.Submit(r.Context(), payload, h.origins.Resolve(r))
	if errors.Is(err, readings.ErrValidation) {
		h.logger.Printf("ingest: invalid payload: %v", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Printf("ingest: %v", err)
		http.Error(w, "persistence error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(ingestResponse{Status: "sucesso", RegisteredIP: ack.Origin})
}

// TodayHandler serves GET /api/leituras-hoje.
type TodayHandler struct {
	service *application.AggregationService
	origins tenancy.KeyResolver
}

// NewTodayHandler constructs a today-readings handler.
func NewTodayHandler(service *application.AggregationService, origins tenancy.KeyResolver) *TodayHandler {
	return &TodayHandler{service: service, origins: origins}
}

// ServeHTTP returns the viewer's readings for the current civil day.
func (h *TodayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	metrics.QueryServed("leituras-hoje")

	views, err := h.service.TodayReadings(r.Context(), h.origins.Resolve(r))
	if err != nil {
		http.Error(w, "query error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, views)
}

// AlertHistogramHandler serves GET /api/alertas-por-hora.
type AlertHistogramHandler struct {
	service *application.AggregationService
	origins tenancy.KeyResolver
}

// NewAlertHistogramHandler constructs an alert-histogram handler.
func NewAlertHistogramHandler(service *application.AggregationService, origins tenancy.KeyResolver) *AlertHistogramHandler {
	return &AlertHistogramHandler{service: service, origins: origins}
}

// ServeHTTP returns the dense hourly alert histogram, defaulting to today
// when no explicit day is given.
func (h *AlertHistogramHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	metrics.QueryServed("alertas-por-hora")

	day, err := parseDayParam(r)
	if err != nil {
		http.Error(w, "invalid data parameter", http.StatusBadRequest)
		return
	}

	histogram, err := h.service.AlertsByHour(r.Context(), h.origins.Resolve(r), day)
	if err != nil {
		http.Error(w, "query error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, histogram)
}

// AvailableDaysHandler serves GET /api/datas-disponiveis.
type AvailableDaysHandler struct {
	service *application.AggregationService
	origins tenancy.KeyResolver
}

// NewAvailableDaysHandler constructs an available-days handler.
func NewAvailableDaysHandler(service *application.AggregationService, origins tenancy.KeyResolver) *AvailableDaysHandler {
	return &AvailableDaysHandler{service: service, origins: origins}
}

// ServeHTTP returns the viewer's days with data, newest first.
func (h *AvailableDaysHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	metrics.QueryServed("datas-disponiveis")

	days, err := h.service.AvailableDays(r.Context(), h.origins.Resolve(r))
	if err != nil {
		http.Error(w, "query error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, days)
}

// LatestHandler serves GET /api/ultima-leitura.
type LatestHandler struct {
	service *application.AggregationService
	origins tenancy.KeyResolver
}

// NewLatestHandler constructs a latest-reading handler.
func NewLatestHandler(service *application.AggregationService, origins tenancy.KeyResolver) *LatestHandler {
	return &LatestHandler{service: service, origins: origins}
}

// ServeHTTP returns the viewer's newest reading, or null when none exists.
func (h *LatestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	metrics.QueryServed("ultima-leitura")

	view, err := h.service.LatestReading(r.Context(), h.origins.Resolve(r))
	if err != nil {
		http.Error(w, "query error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, view)
}

func parseDayParam(r *http.Request) (*time.Time, error) {
	value := r.URL.Query().Get("data")
	if value == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation(dayLayout, value, time.UTC)
	if err != nil {
		return nil, err
	}
	return &day, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
