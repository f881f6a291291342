package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Honey-Rajput/Stocks/internal/history"
	"github.com/Honey-Rajput/Stocks/internal/scheduler"
	"github.com/Honey-Rajput/Stocks/internal/sink"
	"github.com/Honey-Rajput/Stocks/pkg/logger"
)

// JobStatsSource exposes the scheduler's per-job statistics.
type JobStatsSource interface {
	GetJobStats() map[string]scheduler.JobStats
}

// ScannerHandler serves current results, history and statistics per
// scanner type. All endpoints are read-only.
type ScannerHandler struct {
	sink    sink.Sink
	history history.Store
	jobs    JobStatsSource
	logger  *logger.Logger
}

// NewScannerHandler creates a scanner handler.
func NewScannerHandler(resultSink sink.Sink, historyStore history.Store, jobs JobStatsSource, log *logger.Logger) *ScannerHandler {
	return &ScannerHandler{
		sink:    resultSink,
		history: historyStore,
		jobs:    jobs,
		logger:  log,
	}
}

// GetResults returns the latest result set for a scanner type
// GET /api/results/{scanner}
func (h *ScannerHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	scannerType := mux.Vars(r)["scanner"]

	rs, err := h.sink.Latest(r.Context(), scannerType)
	if errors.Is(err, sink.ErrNoResults) {
		respondError(w, http.StatusNotFound, "No results for scanner type")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest results")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve results")
		return
	}

	respondJSON(w, http.StatusOK, rs)
}

// GetHistory returns archived outcomes for a scanner type, newest
// first, limited to the requested window in hours
// GET /api/history/{scanner}?hours=24
func (h *ScannerHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	scannerType := mux.Vars(r)["scanner"]
	window := windowParam(r, 15*24*time.Hour)

	records, err := h.history.History(r.Context(), scannerType, window)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load history")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"scanner_type": scannerType,
		"window_hours": int(window.Hours()),
		"records":      records,
	})
}

// GetStats returns aggregated history statistics plus the change
// report for a scanner type
// GET /api/stats/{scanner}?hours=360
func (h *ScannerHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	scannerType := mux.Vars(r)["scanner"]
	window := windowParam(r, 15*24*time.Hour)

	stats, err := h.history.Statistics(r.Context(), scannerType, window)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute statistics")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve statistics")
		return
	}

	report, err := h.history.Changed(r.Context(), scannerType)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute change report")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve change report")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"stats":  stats,
		"change": report,
	})
}

// GetJobs returns scheduler statistics for all scan jobs
// GET /api/jobs
func (h *ScannerHandler) GetJobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		respondError(w, http.StatusNotFound, "No scheduler running")
		return
	}
	respondJSON(w, http.StatusOK, h.jobs.GetJobStats())
}

// windowParam reads the ?hours= query parameter.
func windowParam(r *http.Request, fallback time.Duration) time.Duration {
	raw := r.URL.Query().Get("hours")
	if raw == "" {
		return fallback
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		return fallback
	}
	return time.Duration(hours) * time.Hour
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
