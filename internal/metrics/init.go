package metrics

// Label values shared between InitializeMetrics and the code that records them.
var (
	Volumes  = []string{"input", "output", "database", "unknown"}
	FsOps    = []string{"stat", "open", "read", "readdir"}
	Phases   = []string{"read", "decode", "transform", "encode", "write"}
	Statuses = []string{"processed", "skipped", "failed"}
	Triggers = []string{"startup", "watch", "interval", "api"}
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, vol := range Volumes {
		for _, op := range FsOps {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
		}
	}

	for _, p := range Phases {
		PhaseDuration.WithLabelValues(p)
		FileErrorsByPhase.WithLabelValues(p)
	}

	for _, s := range Statuses {
		FilesTotal.WithLabelValues(s)
		LastRunFiles.WithLabelValues(s)
		LedgerFiles.WithLabelValues(s)
	}

	for _, trigger := range Triggers {
		RunsTotal.WithLabelValues(trigger, "success")
		RunsTotal.WithLabelValues(trigger, "error")
	}

	for _, format := range []string{"jpeg", "png", "bmp", "tiff", "webp", "unknown"} {
		DecodeByFormat.WithLabelValues(format, "native")
	}

	for _, codec := range []string{"jpeg", "png", "bmp", "tiff", "webp"} {
		OutputBytes.WithLabelValues(codec)
	}

	for _, status := range []string{"success", "error"} {
		MirrorUploadsTotal.WithLabelValues(status)
	}

	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}
}
