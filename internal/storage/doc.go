// Package storage persists encoded output images.
//
// LocalSink writes files under the output directory atomically (temp file
// plus rename) so a crash never leaves a truncated image behind. S3Mirror
// uploads the same bytes to an S3-compatible bucket. Tee combines a local
// sink with any number of mirrors.
package storage
