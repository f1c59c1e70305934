package stream

import (
	"net/http"

	"mobility-cloud/internal/tenancy"
)

// StreamHandler serves the live reading stream over SSE. Each connection is
// placed into the partition matching its resolved origin.
type StreamHandler struct {
	broker  *Broker
	origins tenancy.KeyResolver
}

// NewStreamHandler constructs a stream handler.
func NewStreamHandler(broker *Broker, origins tenancy.KeyResolver) *StreamHandler {
	return &StreamHandler{broker: broker, origins: origins}
}

// ServeHTTP handles GET /api/stream.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.broker == nil || h.origins == nil {
		http.Error(w, "stream not ready", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := h.broker.Subscribe(h.origins.Resolve(r))
	defer h.broker.Unsubscribe(sub)

	_, _ = w.Write([]byte("event: ready\ndata: {}\n\n"))
	flusher.Flush()

	done := r.Context().Done()
	for {
		select {
		case payload := <-sub.Events():
			_, _ = w.Write([]byte("event: reading\n"))
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-done:
			return
		}
	}
}
