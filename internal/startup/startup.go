package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"pixelbox/internal/logging"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// LoadConfig loads configuration, applies the log settings it carries and
// prepares the directories it names. args are the positional command line
// arguments: [input_dir [output_dir]].
func LoadConfig(args []string) (*Config, error) {
	config, err := parseConfig(newViper(), os.Getenv("CONFIG_FILE"), args)
	if err != nil {
		return nil, err
	}

	if config.LogLevel != "" {
		logging.SetLevel(logging.ParseLevel(config.LogLevel))
	}
	if err := logging.Configure(logging.Options{
		File:       config.LogFile,
		MaxSizeMB:  config.LogMaxSizeMB,
		MaxBackups: config.LogMaxBackups,
		MaxAgeDays: config.LogMaxAgeDays,
	}); err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}

	printBanner()
	logSystemInfo()
	logConfig(config)

	if err := setupDirectories(config); err != nil {
		return nil, err
	}
	return config, nil
}

func logConfig(c *Config) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if c.ConfigFile != "" {
		logging.Info("  CONFIG_FILE:      %s", c.ConfigFile)
	}
	logging.Info("  INPUT_DIR:        %s", c.InputDir)
	logging.Info("  OUTPUT_DIR:       %s", c.OutputDir)
	logging.Info("  TARGET:           %s", c.Target)
	logging.Info("  BACKGROUND:       %s", c.Background)
	logging.Info("  JPEG_QUALITY:     %d", c.JPEGQuality)
	logging.Info("  WEBP_QUALITY:     %d (lossless: %v)", c.WebPQuality, c.WebPLossless)
	logging.Info("  MAX_PIXELS:       %d", c.MaxPixels)
	logging.Info("  WORKERS:          %d", c.Workers)
	logging.Info("  RECURSIVE:        %v", c.Recursive)
	logging.Info("  FAIL_ON_ERROR:    %v", c.FailOnError)
	logging.Info("  VIPS_ENABLED:     %v", c.VipsEnabled)
	logging.Info("  LOG_LEVEL:        %s", logging.GetLevel())
	if c.LogFile != "" {
		logging.Info("  LOG_FILE:         %s", c.LogFile)
	}
	if c.ReportFile != "" {
		logging.Info("  REPORT_FILE:      %s", c.ReportFile)
	}
	if c.Watch {
		logging.Info("  WATCH:            true (debounce %v, rescan %v, port %s)", c.WatchDebounce, c.RescanInterval, c.Port)
	}
	if c.S3.Enabled() {
		logging.Info("  S3_BUCKET:        %s (region %s, prefix %q)", c.S3.Bucket, c.S3.Region, c.S3.Prefix)
		if c.S3.Endpoint != "" {
			logging.Info("  S3_ENDPOINT:      %s", c.S3.Endpoint)
		}
	}
}

func setupDirectories(c *Config) error {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	var err error
	if c.InputDir, err = filepath.Abs(c.InputDir); err != nil {
		return fmt.Errorf("failed to resolve input directory path: %w", err)
	}
	logging.Info("  Input directory (absolute): %s", c.InputDir)

	if c.OutputDir, err = filepath.Abs(c.OutputDir); err != nil {
		return fmt.Errorf("failed to resolve output directory path: %w", err)
	}
	logging.Info("  Output directory (absolute): %s", c.OutputDir)

	if err := checkInputDirectory(c.InputDir); err != nil {
		return fmt.Errorf("input directory error: %w", err)
	}

	if err := ensureDirectory(c.OutputDir, "output"); err != nil {
		return fmt.Errorf("output directory error: %w", err)
	}
	if err := testWriteAccess(c.OutputDir); err != nil {
		return fmt.Errorf("output directory is not writable: %w", err)
	}
	logging.Info("  [OK] Output directory is writable")

	if c.LedgerEnabled() {
		if c.DatabaseDir, err = filepath.Abs(c.DatabaseDir); err != nil {
			return fmt.Errorf("failed to resolve database directory path: %w", err)
		}
		if err := ensureDirectory(c.DatabaseDir, "database"); err != nil {
			return fmt.Errorf("database directory error: %w", err)
		}
		if err := testWriteAccess(c.DatabaseDir); err != nil {
			return fmt.Errorf("database directory is not writable: %w", err)
		}
		c.DatabasePath = filepath.Join(c.DatabaseDir, "pixelbox.db")
		logging.Info("  [OK] Database directory is writable")
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Run ledger:     %s", enabledString(c.LedgerEnabled()))
	logging.Info("    Skip unchanged: %s", enabledString(c.LedgerEnabled() && c.SkipUnchanged))
	logging.Info("    S3 mirror:      %s", enabledString(c.S3.Enabled()))
	logging.Info("    Watch mode:     %s", enabledString(c.Watch))
	if c.SkipUnchanged && !c.LedgerEnabled() {
		logging.Warn("    SKIP_UNCHANGED has no effect without DATABASE_DIR")
	}

	return nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(path string, duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Path: %s", path)
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogVipsInit logs the libvips fallback decoder status.
func LogVipsInit(enabled bool, err error) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DECODER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	switch {
	case !enabled:
		logging.Info("  libvips fallback disabled (set VIPS_ENABLED=true to enable)")
	case err != nil:
		logging.Warn("  libvips failed to initialize: %v", err)
		logging.Warn("  Only the built-in decoders will be used")
	default:
		logging.Info("  [OK] libvips fallback ready")
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., static file server)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	if logHealthChecks {
		logging.Info("  Health check logging: ON")
	} else {
		logging.Info("  Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// LogServerStarted logs successful server start with endpoint information
func LogServerStarted(port string, startupDuration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("WATCH MODE STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", startupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Health:        http://localhost:%s/healthz", port)
	logging.Info("    Metrics:       http://localhost:%s/metrics", port)
	logging.Info("    Last report:   http://localhost:%s/api/report", port)
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

func printBanner() {
	banner := `
------------------------------------------------------------
        _          _ _
  _ __ (_)_  _____| | |__   _____  __
 | '_ \| \ \/ / _ \ | '_ \ / _ \ \/ /
 | |_) | |>  <  __/ | |_) | (_) >  <
 | .__/|_/_/\_\___|_|_.__/ \___/_/\_\
 |_|
------------------------------------------------------------`
	fmt.Fprintln(os.Stderr, banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

// checkInputDirectory fails unless path is an existing, listable directory.
func checkInputDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("failed to list directory: %w", err)
	}
	logging.Debug("  Input contents: %d entries (top level)", len(entries))
	return nil
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
