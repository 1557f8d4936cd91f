package handlers

import (
	"context"
	"time"

	"github.com/gorilla/mux"

	"pixelbox/internal/batch"
	"pixelbox/internal/database"
)

// Runner is the batch processor as seen by the API.
type Runner interface {
	Start(ctx context.Context, trigger batch.Trigger) error
	LastReport() *batch.Report
	Status() batch.Status
}

// RunHistory lists past runs. *database.Database implements it.
type RunHistory interface {
	RecentRuns(ctx context.Context, limit int) ([]database.Run, error)
}

type Handlers struct {
	runner    Runner
	history   RunHistory
	startTime time.Time
	baseCtx   context.Context
}

// New creates the handlers. history may be nil when the ledger is disabled.
// Runs started through the API use ctx, so they stop with the server.
func New(ctx context.Context, runner Runner, history RunHistory) *Handlers {
	return &Handlers{
		runner:    runner,
		history:   history,
		startTime: time.Now(),
		baseCtx:   ctx,
	}
}

// Router registers every route on a new router.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	r.Handle("/metrics", h.MetricsHandler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/report", h.GetReport).Methods("GET")
	api.HandleFunc("/runs", h.ListRuns).Methods("GET")
	api.HandleFunc("/run", h.TriggerRun).Methods("POST")

	return r
}
