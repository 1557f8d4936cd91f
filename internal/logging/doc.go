// Package logging provides a simple leveled logging interface for pixelbox.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//
// The log level is configured via the LOG_LEVEL environment variable, or
// DEBUG=true. Configure can additionally copy output into a size-rotated
// log file.
package logging
