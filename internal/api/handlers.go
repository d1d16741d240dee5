package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/yegors/flight-tracker/internal/bus"
	"github.com/yegors/flight-tracker/internal/tracker"
	"github.com/yegors/flight-tracker/pkg/logger"
)

// StatusProvider exposes the loop status
type StatusProvider interface {
	Status() tracker.Status
}

// SnapshotProvider exposes the last value published per topic
type SnapshotProvider interface {
	Last(topic string) (any, bool)
}

// Handler serves the status endpoints
type Handler struct {
	status    StatusProvider
	snapshots SnapshotProvider
	logger    *logger.Logger
}

// NewHandler creates a new handler
func NewHandler(status StatusProvider, snapshots SnapshotProvider, logger *logger.Logger) *Handler {
	return &Handler{
		status:    status,
		snapshots: snapshots,
		logger:    logger.Named("api-handler"),
	}
}

// HealthResponse is the body of GET /api/v1/health
type HealthResponse struct {
	Status  string         `json:"status"` // "ok" or "degraded"
	Tracker tracker.Status `json:"tracker"`
}

// GetHealth reports loop status. The last aircraft or weather fetch having
// failed marks the service degraded but still answers 200.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	st := h.status.Status()
	resp := HealthResponse{Status: "ok", Tracker: st}
	if st.LastAircraftError != "" || st.LastWeatherError != "" {
		resp.Status = "degraded"
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetAllAircraft returns the last published aircraft list
func (h *Handler) GetAllAircraft(w http.ResponseWriter, r *http.Request) {
	h.writeSnapshot(w, bus.TopicAircraft)
}

// GetWeatherData returns the last published weather
func (h *Handler) GetWeatherData(w http.ResponseWriter, r *http.Request) {
	h.writeSnapshot(w, bus.TopicWeather)
}

func (h *Handler) writeSnapshot(w http.ResponseWriter, topic string) {
	v, ok := h.snapshots.Last(topic)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
