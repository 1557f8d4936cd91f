// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] resolves settings with viper from, in increasing precedence:
// built-in defaults, the file named by CONFIG_FILE (yaml, json or toml),
// environment variables, and the positional command line arguments
// [input_dir [output_dir]]. The result is validated with struct tags.
//
//   - INPUT_DIR, OUTPUT_DIR: source and destination folders (./input, ./output)
//   - TARGET_WIDTH, TARGET_HEIGHT: canvas size (1280x720)
//   - BACKGROUND: canvas fill as #rrggbb (#000000)
//   - JPEG_QUALITY (95), WEBP_QUALITY (80), WEBP_LOSSLESS (false)
//   - MAX_PIXELS: decode guard, 0 disables (100000000)
//   - VIPS_ENABLED: retry undecodable files with libvips (false)
//   - WORKERS: files processed concurrently, 0 for one per CPU (1)
//   - RECURSIVE: descend into sub-directories (false)
//   - FAIL_ON_ERROR: exit with status 2 when any file fails (false)
//   - REPORT_FILE: write the run report as JSON
//   - DATABASE_DIR: enables the SQLite run ledger
//   - SKIP_UNCHANGED: skip inputs the ledger has already processed
//   - WATCH, WATCH_DEBOUNCE (2s), RESCAN_INTERVAL, PORT (8080)
//   - LOG_LEVEL, LOG_FILE, LOG_MAX_SIZE_MB, LOG_MAX_BACKUPS, LOG_MAX_AGE_DAYS
//   - LOG_HEALTH_CHECKS: log requests to health endpoints (false)
//   - S3_BUCKET, S3_REGION, S3_ENDPOINT, S3_PREFIX, S3_ACCESS_KEY_ID,
//     S3_SECRET_ACCESS_KEY, S3_USE_PATH_STYLE: optional output mirror
//
// # Directory Setup
//
// The input directory must exist and be listable. The output directory and,
// when set, the database directory are created if missing and must be
// writable.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
