package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pixelbox/internal/batch"
	"pixelbox/internal/database"
	"pixelbox/internal/filesystem"
	"pixelbox/internal/handlers"
	"pixelbox/internal/logging"
	"pixelbox/internal/media"
	"pixelbox/internal/metrics"
	"pixelbox/internal/middleware"
	"pixelbox/internal/startup"
	"pixelbox/internal/storage"
	"pixelbox/internal/watcher"
	"pixelbox/internal/workers"
)

// Exit codes.
const (
	exitOK          = 0
	exitConfigError = 1
	exitFileErrors  = 2
)

func main() {
	code := run(os.Args[1:])
	_ = logging.Close()
	os.Exit(code)
}

func run(args []string) int {
	startTime := time.Now()

	config, err := startup.LoadConfig(args)
	if err != nil {
		logging.Error("Configuration error: %v", err)
		return exitConfigError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	metrics.InitializeMetrics()
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"input":    config.InputDir,
		"output":   config.OutputDir,
		"database": config.DatabaseDir,
	}))

	if config.VipsEnabled {
		err := media.InitVips()
		startup.LogVipsInit(true, err)
		if err == nil {
			defer media.ShutdownVips()
		}
	} else {
		startup.LogVipsInit(false, nil)
	}

	var db *database.Database
	var ledger batch.Ledger
	if config.LedgerEnabled() {
		dbStart := time.Now()
		db, err = database.New(ctx, config.DatabasePath)
		if err != nil {
			logging.Error("Failed to initialize database: %v", err)
			return exitConfigError
		}
		defer db.Close()
		ledger = db
		startup.LogDatabaseInit(db.Path(), time.Since(dbStart))
	}

	out, err := newOutput(ctx, config)
	if err != nil {
		logging.Error("Failed to initialize output: %v", err)
		return exitConfigError
	}

	proc, err := batch.New(batch.Options{
		InputDir:   config.InputDir,
		OutputDir:  config.OutputDir,
		Target:     config.Target,
		Background: config.BackgroundColor,
		Encode: media.EncodeOptions{
			JPEGQuality:  config.JPEGQuality,
			WebPQuality:  config.WebPQuality,
			WebPLossless: config.WebPLossless,
		},
		MaxPixels:     config.MaxPixels,
		Workers:       workers.Resolve(config.Workers, 0),
		Recursive:     config.Recursive,
		Exclude:       []string{config.OutputDir},
		SkipUnchanged: config.SkipUnchanged,
		ReportFile:    config.ReportFile,
	}, out, ledger)
	if err != nil {
		logging.Error("Failed to initialize processor: %v", err)
		return exitConfigError
	}

	if !config.Watch {
		return runOnce(ctx, proc, config.FailOnError)
	}
	return serve(ctx, config, proc, db, startTime)
}

// newOutput builds the local sink and, when configured, its S3 mirror.
func newOutput(ctx context.Context, config *startup.Config) (batch.Output, error) {
	local, err := storage.NewLocalSink(config.OutputDir)
	if err != nil {
		return nil, err
	}
	logging.Info("Writing outputs to %s", local.Root())
	if !config.S3.Enabled() {
		return local, nil
	}

	mirror, err := storage.NewS3Mirror(ctx, storage.S3Config{
		Bucket:          config.S3.Bucket,
		Region:          config.S3.Region,
		Endpoint:        config.S3.Endpoint,
		Prefix:          config.S3.Prefix,
		AccessKeyID:     config.S3.AccessKeyID,
		SecretAccessKey: config.S3.SecretAccessKey,
		UsePathStyle:    config.S3.UsePathStyle,
	})
	if err != nil {
		return nil, err
	}
	logging.Info("Mirroring outputs to s3://%s/%s", config.S3.Bucket, config.S3.Prefix)
	return &storage.Tee{Primary: local, Mirrors: []storage.Sink{mirror}}, nil
}

func runOnce(ctx context.Context, proc *batch.Processor, failOnError bool) int {
	report, err := proc.Run(ctx, batch.TriggerStartup)
	if err != nil {
		logging.Error("Run failed: %v", err)
		return exitConfigError
	}
	if report.Failed > 0 {
		logging.Warn("%d file(s) failed:", report.Failed)
		for _, err := range report.Errors() {
			var fileErr *batch.FileError
			if errors.As(err, &fileErr) {
				logging.Warn("  %s: %v", fileErr.Name, fileErr)
				continue
			}
			logging.Warn("  %v", err)
		}
	}
	if failOnError && report.Failed > 0 {
		logging.Error("%d file(s) failed and FAIL_ON_ERROR is set", report.Failed)
		return exitFileErrors
	}
	return exitOK
}

// serve runs watch mode until ctx is canceled.
func serve(ctx context.Context, config *startup.Config, proc *batch.Processor, db *database.Database, startTime time.Time) int {
	var collector *metrics.Collector
	var history handlers.RunHistory
	if db != nil {
		collector = metrics.NewCollector(db, time.Minute)
		collector.Start()
		history = db

		// Compact the ledger once a day
		go func() {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := db.Vacuum(); err != nil {
						logging.Warn("Database vacuum failed: %v", err)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	h := handlers.New(ctx, proc, history)
	router := h.Router()
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	router.Use(
		middleware.Metrics(middleware.DefaultMetricsConfig()),
		middleware.Logger(loggingConfig),
	)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	handler := middleware.Compression(middleware.DefaultCompressionConfig())(router)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	w := watcher.New(config.InputDir, watcher.Options{
		Recursive:      config.Recursive,
		Debounce:       config.WatchDebounce,
		RescanInterval: config.RescanInterval,
		Ignore:         []string{config.OutputDir},
	}, func(trigger batch.Trigger) {
		proc.TriggerRun(ctx, trigger)
	})
	if err := w.Start(); err != nil {
		logging.Error("Failed to start watcher: %v", err)
		return exitConfigError
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	startup.LogServerStarted(config.Port, time.Since(startTime))
	proc.TriggerRun(ctx, batch.TriggerStartup)

	code := exitOK
	select {
	case <-ctx.Done():
		startup.LogShutdownInitiated("signal")
	case err := <-serverErr:
		logging.Error("Server error: %v", err)
		code = exitConfigError
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping watcher")
	w.Stop()
	startup.LogShutdownStepComplete("Watcher stopped")

	if collector != nil {
		startup.LogShutdownStep("Stopping metrics collector")
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Waiting for the current run")
	for proc.IsRunning() {
		select {
		case <-shutdownCtx.Done():
			logging.Warn("Run still in progress at shutdown timeout")
			startup.LogShutdownComplete()
			return code
		case <-time.After(100 * time.Millisecond):
		}
	}
	startup.LogShutdownStepComplete("No run in progress")

	startup.LogShutdownComplete()
	return code
}
