// Package handlers provides the HTTP surface of watch mode.
//
// It includes handlers for:
//   - Health and liveness checks
//   - Build version information
//   - Prometheus metrics
//   - The report of the last run and the run history from the ledger
//   - Triggering a run on demand
package handlers
