// Package database provides the SQLite run ledger for pixelbox.
//
// It records every batch run and the outcome of every file in it: content
// fingerprint, target geometry, background, status, failing phase and output
// size. With SKIP_UNCHANGED the batch processor asks the ledger whether an
// input with the same fingerprint was already processed successfully for
// the same target and background.
//
// The database uses WAL mode and applies its schema on open.
package database
