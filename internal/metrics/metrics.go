package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelbox_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pixelbox_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pixelbox_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Batch run metrics
var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelbox_runs_total",
			Help: "Total number of batch runs",
		},
		[]string{"trigger", "status"}, // trigger: startup, watch, interval, api
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pixelbox_run_duration_seconds",
			Help:    "Batch run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 3600},
		},
	)

	RunIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pixelbox_run_in_progress",
			Help: "Whether a batch run is currently in progress (1 = running, 0 = idle)",
		},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pixelbox_last_run_timestamp",
			Help: "Unix timestamp of the last completed batch run",
		},
	)

	LastRunFiles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pixelbox_last_run_files",
			Help: "Number of files in the last batch run by status",
		},
		[]string{"status"}, // processed, skipped, failed
	)
)

// Per-file metrics
var (
	FilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelbox_files_total",
			Help: "Total number of files handled by status",
		},
		[]string{"status"},
	)

	FileErrorsByPhase = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelbox_file_errors_total",
			Help: "Total number of per-file failures by pipeline phase",
		},
		[]string{"phase"},
	)

	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pixelbox_phase_duration_seconds",
			Help:    "Duration of each pipeline phase per file",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"phase"}, // read, decode, transform, encode, write
	)

	DecodeByFormat = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelbox_decode_total",
			Help: "Total number of decoded images by source format and decoder",
		},
		[]string{"format", "decoder"},
	)

	SubsampleStride = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pixelbox_subsample_stride",
			Help:    "Stride chosen by the subsampler per image",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16, 32},
		},
	)

	OutputBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelbox_output_bytes_total",
			Help: "Total bytes of encoded output by codec",
		},
		[]string{"codec"},
	)
)

// Storage metrics
var (
	MirrorUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelbox_mirror_uploads_total",
			Help: "Total number of object storage uploads",
		},
		[]string{"status"},
	)

	MirrorUploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pixelbox_mirror_upload_duration_seconds",
			Help:    "Object storage upload duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelbox_db_queries_total",
			Help: "Total number of ledger database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pixelbox_db_query_duration_seconds",
			Help:    "Ledger database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pixelbox_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)

	LedgerFiles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pixelbox_ledger_files",
			Help: "Number of files tracked by the ledger by last status",
		},
		[]string{"status"},
	)

	LedgerRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pixelbox_ledger_runs",
			Help: "Number of runs recorded in the ledger",
		},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelbox_watcher_events_total",
			Help: "Total number of filesystem watcher events",
		},
		[]string{"event_type"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pixelbox_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pixelbox_watched_directories",
			Help: "Number of directories currently being watched",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pixelbox_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations including retries",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelbox_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelbox_filesystem_retry_attempts_total",
			Help: "Total number of retries after NFS stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelbox_filesystem_retry_success_total",
			Help: "Total number of operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelbox_filesystem_retry_failures_total",
			Help: "Total number of operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelbox_filesystem_stale_errors_total",
			Help: "Total number of NFS stale file handle errors",
		},
		[]string{"operation", "volume"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pixelbox_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
