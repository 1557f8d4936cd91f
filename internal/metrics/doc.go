// Package metrics provides Prometheus instrumentation for pixelbox.
//
// All metrics are registered with promauto at package init and prefixed with
// "pixelbox_". They fall into these groups:
//
//   - HTTP: request counts, durations and in-flight requests (watch mode only)
//   - Runs: batch runs by trigger and status, run duration, last-run gauges
//   - Files: per-file outcomes, per-phase durations, decode formats, chosen
//     subsample strides, encoded output bytes
//   - Storage: object storage mirror uploads
//   - Database: ledger queries and SQLite file sizes
//   - Watcher: fsnotify events and errors
//   - Filesystem: operation durations and NFS retry behavior per volume
//
// InitializeMetrics pre-creates the label combinations so dashboards see
// zero values before the first run. NewFilesystemObserver adapts the
// filesystem metrics to the filesystem.Observer interface, and Collector
// refreshes ledger gauges from a StatsProvider on an interval.
package metrics
