// Package main provides the entry point for pixelbox.
//
// pixelbox fits every image of a directory onto a fixed-size canvas without
// resampling: each image is shrunk by keeping every n-th pixel of every n-th
// row, then centered on a canvas of the target size, padded with the
// background color where it is smaller and center-cropped where it is
// larger. Outputs keep the input's file name and format.
//
// # Usage
//
//	pixelbox [input_dir [output_dir]]
//
// Positional arguments override INPUT_DIR and OUTPUT_DIR.
//
// # Modes
//
// By default pixelbox processes the input directory once and exits. With
// WATCH=true it stays running: it processes the directory at startup, again
// whenever images are added or changed, and every RESCAN_INTERVAL, and serves
// an HTTP API on PORT:
//
//   - GET  /healthz      health and last run summary
//   - GET  /livez        liveness check
//   - GET  /version      build information
//   - GET  /metrics      Prometheus metrics
//   - GET  /api/report   report of the last run
//   - GET  /api/runs     run history (requires DATABASE_DIR)
//   - POST /api/run      start a run now (409 while one is running)
//
// # Exit Status
//
//   - 0: the batch ran, even if some files failed
//   - 1: configuration or startup error, or the input directory could not be read
//   - 2: FAIL_ON_ERROR is set and at least one file failed
//
// # Environment Variables
//
// Configuration comes from defaults, an optional CONFIG_FILE (yaml, json or
// toml) and environment variables, in increasing order of precedence:
//
//   - INPUT_DIR, OUTPUT_DIR: directories (default ./input, ./output)
//   - TARGET_WIDTH, TARGET_HEIGHT: canvas size (default 1280x720)
//   - BACKGROUND: padding color as #rrggbb (default #000000)
//   - JPEG_QUALITY (95), WEBP_QUALITY (80), WEBP_LOSSLESS (false)
//   - MAX_PIXELS: largest accepted width*height, 0 for no limit
//   - VIPS_ENABLED: fall back to libvips for images Go cannot decode
//   - WORKERS: files processed concurrently (default 1, 0 for one per CPU)
//   - RECURSIVE: descend into sub-directories, mirroring them in the output
//   - FAIL_ON_ERROR: exit with status 2 when a file fails
//   - REPORT_FILE: write a JSON report of every run
//   - DATABASE_DIR: keep a SQLite run ledger in this directory
//   - SKIP_UNCHANGED: skip inputs the ledger shows were already processed
//   - WATCH, WATCH_DEBOUNCE (2s), RESCAN_INTERVAL, PORT (8080)
//   - S3_BUCKET, S3_REGION, S3_ENDPOINT, S3_PREFIX, S3_ACCESS_KEY_ID,
//     S3_SECRET_ACCESS_KEY, S3_USE_PATH_STYLE: mirror outputs to S3
//   - LOG_LEVEL, LOG_FILE, LOG_MAX_SIZE_MB, LOG_MAX_BACKUPS, LOG_MAX_AGE_DAYS,
//     LOG_HEALTH_CHECKS
//
// # Build Requirements
//
// CGO is required for SQLite, libvips and WebP encoding.
package main
