package handlers

import (
	"net/http"
	"runtime"
	"time"

	"pixelbox/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Running bool   `json:"running"`

	LastRun    string `json:"lastRun,omitempty"`
	LastRunID  string `json:"lastRunId,omitempty"`
	LastFailed int    `json:"lastFailed"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck reports whether a run has completed and whether the last one
// had failures. It answers 200 in every state; a failed file is a property
// of the input, not of the service.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	status := h.runner.Status()

	response := HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Running:      status.Running,
		LastRunID:    status.LastRunID,
		LastFailed:   status.LastFailed,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	switch {
	case status.LastRun.IsZero():
		response.Status = statusStarting
	case status.LastFailed > 0:
		response.Status = statusDegraded
	}
	if !status.LastRun.IsZero() {
		response.LastRun = status.LastRun.Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, response)
}

// LivenessCheck is a simple liveness check (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}
