package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pixelbox/internal/logging"
	"pixelbox/internal/startup"
)

// VersionResponse is the body of GET /version.
type VersionResponse struct {
	startup.BuildInfo
	StartedAt time.Time `json:"startedAt"`
}

// GetVersion returns build information and when the server started
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, VersionResponse{
		BuildInfo: startup.GetBuildInfo(),
		StartedAt: h.startTime.UTC(),
	})
}

// promErrorLog routes scrape errors into the application log.
type promErrorLog struct{}

func (promErrorLog) Println(v ...interface{}) {
	logging.Error("metrics: %s", fmt.Sprint(v...))
}

// MetricsHandler serves the default registry, continuing past collector
// errors so a failing ledger stats query does not hide the other metrics.
func (h *Handlers) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorLog:          promErrorLog{},
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	})
}
